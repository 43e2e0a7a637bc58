// Package engine names the four ledger engines this orchestrator spans and
// implements the account-number encoding that ties an account to its owner.
package engine

import (
	"fmt"
	"strconv"
)

// Name identifies one of the four independently administered ledger engines.
type Name string

const (
	Doc  Name = "doc"   // document store, no multi-document transactions
	SQLA Name = "sql-a" // SQL engine, stored procedures
	SQLB Name = "sql-b" // SQL engine, stored procedures
	SQLC Name = "sql-c" // SQL engine, stored functions
)

// All lists every supported engine in a stable order, used wherever the load
// generator or seeder needs to enumerate engines deterministically.
var All = []Name{Doc, SQLA, SQLB, SQLC}

// SlotMin and SlotMax bound the per-engine account slot range tied to seed
// data (spec §9 open issue 3: this should be configurable but currently
// isn't — left as a constant rather than silently "fixed").
const (
	SlotMin = 1
	SlotMax = 795
)

// codes is the fixed leading-digit mapping from spec §6.
var codes = map[Name]int{
	Doc:  1,
	SQLA: 2,
	SQLB: 3,
	SQLC: 4,
}

var byCode = map[int]Name{
	1: Doc,
	2: SQLA,
	3: SQLB,
	4: SQLC,
}

// Code returns the engine's leading digit, or 0 if name is not recognized.
func (n Name) Code() int {
	return codes[n]
}

// Valid reports whether n is one of the four supported engines.
func (n Name) Valid() bool {
	_, ok := codes[n]
	return ok
}

// FirstChar returns the single character used to build idempotency-key
// prefixes (spec §4.3: K = first_char(S) + first_char(D) + "-" + uuid).
func (n Name) FirstChar() string {
	if len(n) == 0 {
		return ""
	}
	return string(n[0])
}

// AccountID builds the 6-digit account number for engine n and the given
// 1..795 local slot, per spec §6: first digit is the engine code, the
// remaining five digits are a zero-padded slot number.
func AccountID(n Name, slot int) (int64, error) {
	code, ok := codes[n]
	if !ok {
		return 0, fmt.Errorf("engine: unknown engine %q", n)
	}
	if slot < 1 || slot > 99999 {
		return 0, fmt.Errorf("engine: slot %d out of range 1..99999", slot)
	}
	id, err := strconv.ParseInt(fmt.Sprintf("%d%05d", code, slot), 10, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// OwnerOf decodes an account number's leading digit back into its engine.
func OwnerOf(accountID int64) (Name, error) {
	if accountID <= 0 {
		return "", fmt.Errorf("engine: invalid account id %d", accountID)
	}
	s := strconv.FormatInt(accountID, 10)
	code := int(s[0] - '0')
	n, ok := byCode[code]
	if !ok {
		return "", fmt.Errorf("engine: account id %d has unrecognized engine code %d", accountID, code)
	}
	return n, nil
}

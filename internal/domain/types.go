// Package domain holds the engine-agnostic shapes shared by every procedure
// layer implementation and by the transfer orchestrator: accounts,
// transactions, holds, and ledger entries.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxnType classifies a transaction record per spec §3.
type TxnType int

const (
	TxnInternal        TxnType = 1 // same-engine transfer
	TxnOutgoingExternal TxnType = 2
	TxnIncomingExternal TxnType = 3
)

// TxnStatus is the stringified single-digit status code carried over the
// wire (spec §6): callers must treat any value outside this set as an error.
type TxnStatus int

const (
	StatusHeld            TxnStatus = 1
	StatusConfirmed        TxnStatus = 2
	StatusReleased         TxnStatus = 3
	StatusInsufficient     TxnStatus = 5
	StatusUnknownAccount   TxnStatus = 6
)

// String renders the status as the single-digit wire form.
func (s TxnStatus) String() string {
	switch s {
	case StatusHeld:
		return "1"
	case StatusConfirmed:
		return "2"
	case StatusReleased:
		return "3"
	case StatusInsufficient:
		return "5"
	case StatusUnknownAccount:
		return "6"
	default:
		return "0"
	}
}

// ParseTxnStatus parses a wire status digit, rejecting anything not in the
// table defined by spec §6.
func ParseTxnStatus(s string) (TxnStatus, bool) {
	switch s {
	case "1":
		return StatusHeld, true
	case "2":
		return StatusConfirmed, true
	case "3":
		return StatusReleased, true
	case "5":
		return StatusInsufficient, true
	case "6":
		return StatusUnknownAccount, true
	default:
		return 0, false
	}
}

// HoldStatus tracks the debit-side reservation record (spec §3).
type HoldStatus int

const (
	HoldActive   HoldStatus = 1
	HoldCaptured HoldStatus = 2
	HoldReleased HoldStatus = 3
)

// Account is the per-engine balance record. Available funds are
// Balance.Sub(HoldAmount); invariant I1 requires Balance >= HoldAmount >= 0.
type Account struct {
	ID         int64
	Balance    decimal.Decimal
	HoldAmount decimal.Decimal
}

// Available returns the spendable balance, i.e. funds not already held.
func (a Account) Available() decimal.Decimal {
	return a.Balance.Sub(a.HoldAmount)
}

// Transaction is the engine-local transaction record created by
// remittance_hold or receive_prepare and mutated only by confirm/release.
type Transaction struct {
	TxnID          string
	IdempotencyKey string
	Type           TxnType
	Status         TxnStatus
	SrcAccount     int64
	DstAccount     int64
	DstBank        string
	Amount         decimal.Decimal
	CreatedAt      time.Time
}

// Hold is the debit-side reservation tied 1:1 to a remittance_hold call.
type Hold struct {
	IdempotencyKey string
	AccountID      int64
	Amount         decimal.Decimal
	Status         HoldStatus
}

// LedgerEntry is one leg of a double-entry posting. Amount is signed:
// negative for a debit leg, positive for a credit leg.
type LedgerEntry struct {
	TxnID     string
	AccountID int64
	Amount    decimal.Decimal
	CreatedAt time.Time
}

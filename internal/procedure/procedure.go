// Package procedure defines the six logical procedures every engine must
// expose (spec §4.1) and the uniform result shape the orchestrator consumes
// regardless of which engine answered.
package procedure

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ledgerops/heteroledger/internal/domain"
)

// Result is what every procedure call returns: a transaction id (once known)
// and the terminal wire status. Note is a human-readable detail (e.g.
// "ALREADY_CONFIRMED", "INSUFFICIENT_FUNDS") useful for logging; callers must
// branch on Status, never on Note.
type Result struct {
	TxnID  string
	Status domain.TxnStatus
	Note   string
}

// HoldRequest is the input to RemittanceHold and ReceivePrepare.
type HoldRequest struct {
	Src            int64
	Dst            int64
	DstBank        string
	Amount         decimal.Decimal
	IdempotencyKey string
	Type           domain.TxnType
}

// Procedures is the six-operation contract each engine's procedure layer
// implements (spec §4.1). Every method is idempotent on IdempotencyKey /
// idem: a second call with the same key returns the existing terminal
// state without double effect (I4).
type Procedures interface {
	// RemittanceHold reserves funds on the source account, or marks the
	// transaction INSUFFICIENT if available funds fall short.
	RemittanceHold(ctx context.Context, req HoldRequest) (Result, error)

	// RemittanceRelease compensates an active hold. Never undoes a capture.
	RemittanceRelease(ctx context.Context, idem string) (Result, error)

	// ReceivePrepare creates the "ready-to-credit" marker on the incoming
	// side; UNKNOWN_ACCOUNT if dst does not exist on this engine.
	ReceivePrepare(ctx context.Context, req HoldRequest) (Result, error)

	// ConfirmDebitLocal captures a hold: decrements hold_amount and balance,
	// writes the negative ledger leg.
	ConfirmDebitLocal(ctx context.Context, idem string) (Result, error)

	// ConfirmCreditLocal posts the positive ledger leg on the incoming
	// account and marks the incoming transaction CONFIRMED.
	ConfirmCreditLocal(ctx context.Context, idem string) (Result, error)

	// TransferConfirmInternal is the same-engine shortcut: debit (captured
	// hold or direct conditional debit) plus credit, in one call.
	TransferConfirmInternal(ctx context.Context, idem string) (Result, error)
}

package orchestrator

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/engine"
	"github.com/ledgerops/heteroledger/internal/procedure"
)

// fakeProcedures lets each test wire only the methods the scenario exercises;
// anything uncalled-for panics loudly instead of silently succeeding.
type fakeProcedures struct {
	hold     func(context.Context, procedure.HoldRequest) (procedure.Result, error)
	release  func(context.Context, string) (procedure.Result, error)
	prepare  func(context.Context, procedure.HoldRequest) (procedure.Result, error)
	debit    func(context.Context, string) (procedure.Result, error)
	credit   func(context.Context, string) (procedure.Result, error)
	internal func(context.Context, string) (procedure.Result, error)

	releaseCalls int
}

func (f *fakeProcedures) RemittanceHold(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	return f.hold(ctx, req)
}
func (f *fakeProcedures) RemittanceRelease(ctx context.Context, idem string) (procedure.Result, error) {
	f.releaseCalls++
	return f.release(ctx, idem)
}
func (f *fakeProcedures) ReceivePrepare(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	return f.prepare(ctx, req)
}
func (f *fakeProcedures) ConfirmDebitLocal(ctx context.Context, idem string) (procedure.Result, error) {
	return f.debit(ctx, idem)
}
func (f *fakeProcedures) ConfirmCreditLocal(ctx context.Context, idem string) (procedure.Result, error) {
	return f.credit(ctx, idem)
}
func (f *fakeProcedures) TransferConfirmInternal(ctx context.Context, idem string) (procedure.Result, error) {
	return f.internal(ctx, idem)
}

var _ procedure.Procedures = (*fakeProcedures)(nil)

func testLogger() *zap.Logger { return zap.NewNop() }

func testReq(src, dst engine.Name) TransferRequest {
	return TransferRequest{
		Src: src, Dst: dst, SrcAccount: 200001, DstAccount: 300001,
		Amount: decimal.RequireFromString("1000"), IdempotencyKey: "sb-abc",
	}
}

func TestTransfer_IntraEngine_Success(t *testing.T) {
	fp := &fakeProcedures{
		hold: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusHeld}, nil
		},
		internal: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusConfirmed}, nil
		},
	}
	reg := NewRegistry(map[engine.Name]procedure.Procedures{engine.SQLA: fp})
	o := New(reg, testLogger())

	ok := o.Transfer(context.Background(), testReq(engine.SQLA, engine.SQLA))
	require.True(t, ok)
	require.Equal(t, 0, fp.releaseCalls)
}

func TestTransfer_IntraEngine_InsufficientFunds_NoCompensation(t *testing.T) {
	fp := &fakeProcedures{
		hold: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusInsufficient}, nil
		},
	}
	reg := NewRegistry(map[engine.Name]procedure.Procedures{engine.SQLA: fp})
	o := New(reg, testLogger())

	ok := o.Transfer(context.Background(), testReq(engine.SQLA, engine.SQLA))
	require.False(t, ok)
	require.Equal(t, 0, fp.releaseCalls, "no hold was created, so release must not be called")
}

func TestTransfer_IntraEngine_ConfirmFails_Compensates(t *testing.T) {
	fp := &fakeProcedures{
		hold: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusHeld}, nil
		},
		internal: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{}, domain.ErrConcurrencyFail
		},
		release: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{Status: domain.StatusReleased}, nil
		},
	}
	reg := NewRegistry(map[engine.Name]procedure.Procedures{engine.SQLA: fp})
	o := New(reg, testLogger())

	ok := o.Transfer(context.Background(), testReq(engine.SQLA, engine.SQLA))
	require.False(t, ok)
	require.Equal(t, 1, fp.releaseCalls)
}

func TestTransfer_CrossEngine_Success(t *testing.T) {
	src := &fakeProcedures{
		hold: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusHeld}, nil
		},
		debit: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusConfirmed}, nil
		},
	}
	dst := &fakeProcedures{
		prepare: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T2", Status: domain.StatusHeld}, nil
		},
		credit: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{TxnID: "T2", Status: domain.StatusConfirmed}, nil
		},
	}
	reg := NewRegistry(map[engine.Name]procedure.Procedures{engine.SQLA: src, engine.SQLB: dst})
	o := New(reg, testLogger())

	ok := o.Transfer(context.Background(), testReq(engine.SQLA, engine.SQLB))
	require.True(t, ok)
	require.Equal(t, 0, src.releaseCalls)
}

func TestTransfer_CrossEngine_ReceivePrepareFails_CompensatesSource(t *testing.T) {
	src := &fakeProcedures{
		hold: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusHeld}, nil
		},
		release: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{Status: domain.StatusReleased}, nil
		},
	}
	dst := &fakeProcedures{
		prepare: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T2", Status: domain.StatusUnknownAccount}, nil
		},
	}
	reg := NewRegistry(map[engine.Name]procedure.Procedures{engine.SQLA: src, engine.SQLB: dst})
	o := New(reg, testLogger())

	ok := o.Transfer(context.Background(), testReq(engine.SQLA, engine.SQLB))
	require.False(t, ok)
	require.Equal(t, 1, src.releaseCalls)
}

// TestTransfer_CrossEngine_CreditFails_DebitStaysFinal mirrors spec §8's
// end-to-end scenario 2: a failure on the final credit leg is logged, not
// compensated — the debit is final and the incoming row is left HELD.
func TestTransfer_CrossEngine_CreditFails_DebitStaysFinal(t *testing.T) {
	src := &fakeProcedures{
		hold: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusHeld}, nil
		},
		debit: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{TxnID: "T1", Status: domain.StatusConfirmed}, nil
		},
	}
	dst := &fakeProcedures{
		prepare: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{TxnID: "T2", Status: domain.StatusHeld}, nil
		},
		credit: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{}, domain.ErrNetwork
		},
	}
	reg := NewRegistry(map[engine.Name]procedure.Procedures{engine.SQLA: src, engine.SQLB: dst})
	o := New(reg, testLogger())

	ok := o.Transfer(context.Background(), testReq(engine.SQLA, engine.SQLB))
	require.False(t, ok)
	require.Equal(t, 0, src.releaseCalls, "step 4 failure must not touch the already-final source debit")
}

func TestTransfer_NetworkErrorOnHold_TriggersSafetySweep(t *testing.T) {
	fp := &fakeProcedures{
		hold: func(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
			return procedure.Result{}, domain.ErrNetwork
		},
		release: func(ctx context.Context, idem string) (procedure.Result, error) {
			return procedure.Result{Status: domain.StatusReleased, Note: "NO_HOLD"}, nil
		},
	}
	reg := NewRegistry(map[engine.Name]procedure.Procedures{engine.SQLA: fp})
	o := New(reg, testLogger())

	ok := o.Transfer(context.Background(), testReq(engine.SQLA, engine.SQLA))
	require.False(t, ok)
	require.Equal(t, 1, fp.releaseCalls, "a lost reply on the hold call must still trigger the safety sweep")
}

// Package orchestrator runs the transfer protocol state machine: the
// two-step intra-engine choreography and the four-step cross-engine
// choreography, with per-step compensation, exactly as spec §4.2 describes.
// It depends only on procedure.Procedures, so it can be driven in tests by
// fakes with no live database or network behind them.
package orchestrator

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/engine"
	"github.com/ledgerops/heteroledger/internal/metrics"
	"github.com/ledgerops/heteroledger/internal/procedure"
)

// Registry resolves an engine name to its procedure layer, letting the
// orchestrator stay engine-agnostic.
type Registry interface {
	Procedures(n engine.Name) (procedure.Procedures, error)
}

// staticRegistry is the straightforward map-backed Registry implementation
// cmd/server wires up.
type staticRegistry struct {
	byEngine map[engine.Name]procedure.Procedures
}

// NewRegistry builds a Registry from a fixed engine-to-implementation map.
func NewRegistry(byEngine map[engine.Name]procedure.Procedures) Registry {
	return &staticRegistry{byEngine: byEngine}
}

func (r *staticRegistry) Procedures(n engine.Name) (procedure.Procedures, error) {
	p, ok := r.byEngine[n]
	if !ok {
		return nil, errors.New("orchestrator: no procedure layer registered for engine " + string(n))
	}
	return p, nil
}

// TransferRequest is one generator-synthesized transfer (spec §4.3).
type TransferRequest struct {
	Src            engine.Name
	Dst            engine.Name
	SrcAccount     int64
	DstAccount     int64
	Amount         decimal.Decimal
	IdempotencyKey string
}

// Orchestrator drives transfers to completion or failure, logging and
// emitting metrics for every step (spec §4.2's expanded [AMBIENT] note).
type Orchestrator struct {
	registry Registry
	log      *zap.Logger
}

// New returns an Orchestrator backed by registry.
func New(registry Registry, log *zap.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, log: log}
}

// Transfer runs the intra-engine or cross-engine protocol for req and
// reports success as a plain bool, never panicking (spec §7: "the
// orchestrator never raises; it returns a boolean success and logs").
func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) bool {
	if req.Src == req.Dst {
		return o.transferIntraEngine(ctx, req)
	}
	return o.transferCrossEngine(ctx, req)
}

func (o *Orchestrator) transferIntraEngine(ctx context.Context, req TransferRequest) bool {
	p, err := o.registry.Procedures(req.Src)
	if err != nil {
		o.log.Error("orchestrator: no procedure layer", zap.String("engine", string(req.Src)), zap.Error(err))
		return false
	}

	holdRes, err := p.RemittanceHold(ctx, procedure.HoldRequest{
		Src: req.SrcAccount, Dst: req.DstAccount, DstBank: string(req.Dst),
		Amount: req.Amount, IdempotencyKey: req.IdempotencyKey, Type: domain.TxnInternal,
	})
	o.recordStep("remittance_hold", err, holdRes.Status)
	if err != nil {
		if errors.Is(err, domain.ErrNetwork) {
			o.safetyRelease(ctx, p, req.IdempotencyKey)
		}
		o.finish(req, false)
		return false
	}
	if holdRes.Status != domain.StatusHeld {
		o.finish(req, false)
		return false
	}

	confirmRes, err := p.TransferConfirmInternal(ctx, req.IdempotencyKey)
	o.recordStep("transfer_confirm_internal", err, confirmRes.Status)
	if err != nil || confirmRes.Status != domain.StatusConfirmed {
		o.safetyRelease(ctx, p, req.IdempotencyKey)
		o.finish(req, false)
		return false
	}

	o.finish(req, true)
	return true
}

func (o *Orchestrator) transferCrossEngine(ctx context.Context, req TransferRequest) bool {
	srcP, err := o.registry.Procedures(req.Src)
	if err != nil {
		o.log.Error("orchestrator: no procedure layer", zap.String("engine", string(req.Src)), zap.Error(err))
		return false
	}
	dstP, err := o.registry.Procedures(req.Dst)
	if err != nil {
		o.log.Error("orchestrator: no procedure layer", zap.String("engine", string(req.Dst)), zap.Error(err))
		return false
	}

	// Step 1: hold on the source.
	holdRes, err := srcP.RemittanceHold(ctx, procedure.HoldRequest{
		Src: req.SrcAccount, Dst: req.DstAccount, DstBank: string(req.Dst),
		Amount: req.Amount, IdempotencyKey: req.IdempotencyKey, Type: domain.TxnOutgoingExternal,
	})
	o.recordStep("remittance_hold", err, holdRes.Status)
	if err != nil {
		if errors.Is(err, domain.ErrNetwork) {
			o.safetyRelease(ctx, srcP, req.IdempotencyKey)
		}
		o.finish(req, false)
		return false
	}
	if holdRes.Status != domain.StatusHeld {
		o.finish(req, false)
		return false
	}

	// Step 2: prepare the destination.
	prepRes, err := dstP.ReceivePrepare(ctx, procedure.HoldRequest{
		Src: req.SrcAccount, Dst: req.DstAccount, DstBank: string(req.Src),
		Amount: req.Amount, IdempotencyKey: req.IdempotencyKey, Type: domain.TxnIncomingExternal,
	})
	o.recordStep("receive_prepare", err, prepRes.Status)
	if err != nil || prepRes.Status != domain.StatusHeld {
		// Step 1 created a hold (or we can't tell); compensate regardless —
		// remittance_release is always safe to call (spec §4.2).
		o.safetyRelease(ctx, srcP, req.IdempotencyKey)
		o.finish(req, false)
		return false
	}

	// Step 3: capture the source debit.
	debitRes, err := srcP.ConfirmDebitLocal(ctx, req.IdempotencyKey)
	o.recordStep("confirm_debit_local", err, debitRes.Status)
	if err != nil || debitRes.Status != domain.StatusConfirmed {
		o.safetyRelease(ctx, srcP, req.IdempotencyKey)
		o.finish(req, false)
		return false
	}

	// Step 4: post the destination credit. The debit is final at this
	// point — failure here is logged but NOT compensated (spec §4.2,
	// §9 open issue 1): the incoming row is left HELD and is acknowledged
	// as open reconciliation work, not silently hidden.
	creditRes, err := dstP.ConfirmCreditLocal(ctx, req.IdempotencyKey)
	o.recordStep("confirm_credit_local", err, creditRes.Status)
	if err != nil || creditRes.Status != domain.StatusConfirmed {
		o.log.Error("orchestrator: credit leg failed after final debit — non-conservative state requires reconciliation",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("dst_engine", string(req.Dst)),
			zap.Error(err),
		)
		o.finish(req, false)
		return false
	}

	o.finish(req, true)
	return true
}

// safetyRelease invokes remittance_release as the unconditional compensation
// sweep described in spec §4.2: idempotent and safe whether or not a hold
// was actually created, and it never undoes a capture.
func (o *Orchestrator) safetyRelease(ctx context.Context, p procedure.Procedures, idem string) {
	res, err := p.RemittanceRelease(ctx, idem)
	if err != nil {
		o.log.Warn("orchestrator: compensation release failed", zap.String("idempotency_key", idem), zap.Error(err))
		return
	}
	o.log.Warn("orchestrator: compensated via release",
		zap.String("idempotency_key", idem),
		zap.String("note", res.Note),
	)
}

func (o *Orchestrator) recordStep(step string, err error, status domain.TxnStatus) {
	label := status.String()
	if err != nil {
		label = "error"
	}
	metrics.OrchestratorStepsTotal.WithLabelValues(step, label).Inc()
	if err != nil {
		o.log.Warn("orchestrator: step failed", zap.String("step", step), zap.Error(err))
	} else {
		o.log.Debug("orchestrator: step ok", zap.String("step", step), zap.String("status", label))
	}
}

func (o *Orchestrator) finish(req TransferRequest, ok bool) {
	outcome := "fail"
	if ok {
		outcome = "ok"
	}
	metrics.OrchestratorTransfersTotal.WithLabelValues(outcome).Inc()
	o.log.Info("orchestrator: transfer finished",
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("src", string(req.Src)),
		zap.String("dst", string(req.Dst)),
		zap.Bool("ok", ok),
	)
}

// Package reset implements the Reset Coordinator (spec §4.5): wipes
// transaction state across engines, refusing while the load generator is
// running and reporting per-engine lock timeouts verbatim.
package reset

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/engine"
)

// Truncator resets one engine's transaction/hold/ledger state and restores
// account balances to seed values. Implementations live alongside each
// engine's Store (sqlproc, mongodoc).
type Truncator interface {
	Reset(ctx context.Context) error
}

// GeneratorStatus reports whether the load generator is currently running;
// satisfied by *loadgen.Runner in production.
type GeneratorStatus interface {
	IsRunning() bool
}

// Coordinator wipes state across every registered engine.
type Coordinator struct {
	generator GeneratorStatus
	engines   map[engine.Name]Truncator
	log       *zap.Logger
}

// New returns a Coordinator that checks generator before truncating engines.
func New(generator GeneratorStatus, engines map[engine.Name]Truncator, log *zap.Logger) *Coordinator {
	return &Coordinator{generator: generator, engines: engines, log: log}
}

// EngineResult is the per-engine outcome returned by Reset.
type EngineResult struct {
	Engine engine.Name
	Err    error
}

// Reset truncates every engine independently. It refuses entirely
// (domain.ErrGeneratorRunning) while the generator is running; a per-engine
// lock timeout is surfaced as domain.ErrEngineBusy for that engine without
// retry, while the rest still proceed (spec §4.5: "Engines are reset
// independently").
func (c *Coordinator) Reset(ctx context.Context) ([]EngineResult, error) {
	if c.generator.IsRunning() {
		return nil, domain.ErrGeneratorRunning
	}

	results := make([]EngineResult, 0, len(c.engines))
	for _, n := range engine.All {
		t, ok := c.engines[n]
		if !ok {
			continue
		}
		err := t.Reset(ctx)
		if err != nil {
			c.log.Warn("reset: engine truncation failed", zap.String("engine", string(n)), zap.Error(err))
			err = fmt.Errorf("%s: %w", n, err)
		} else {
			c.log.Info("reset: engine truncated", zap.String("engine", string(n)))
		}
		results = append(results, EngineResult{Engine: n, Err: err})
	}
	return results, nil
}

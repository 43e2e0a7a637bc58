// Package loadgen is the synthetic load generator (spec §4.3): an
// event-pacing engine that sustains a target request rate, bounds in-flight
// concurrency, synthesizes well-formed transfer requests, and drains
// gracefully on shutdown. [SUPPLEMENT] restored from
// original_source/BE/services/rdg_runner.py: the generator is a long-lived,
// lock-protected singleton started and stopped over HTTP rather than a
// one-shot CLI process.
package loadgen

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerops/heteroledger/internal/engine"
	"github.com/ledgerops/heteroledger/internal/metrics"
	"github.com/ledgerops/heteroledger/internal/orchestrator"
)

// ErrAlreadyRunning is returned by Start when the generator is already active.
var ErrAlreadyRunning = errors.New("loadgen: already running")

// gracefulShutdownBudget bounds how long Stop waits for in-flight requests
// to drain before giving up (spec §4.3, §5: "awaited up to the graceful-
// shutdown budget (30s)").
const gracefulShutdownBudget = 30 * time.Second

// Config parameterizes one run (spec §4.3's "Inputs" list). Field names and
// json tags follow the `/rdg/start` request body (spec §6).
type Config struct {
	BaseURL       string        `json:"base_url"`
	RPS           int           `json:"rps"`
	Concurrency   int           `json:"concurrent"`
	ActiveEngines []engine.Name `json:"active_dbms"`
	MinAmount     int64         `json:"min_amount"`
	MaxAmount     int64         `json:"max_amount"`
	AllowSameDB   bool          `json:"allow_same_db"`
}

// TransferFunc runs one synthesized transfer to completion and reports
// success; in production this is Orchestrator.Transfer, in tests a fake.
type TransferFunc func(ctx context.Context, req orchestrator.TransferRequest) bool

// TransferFactory builds the TransferFunc a run drives transfers through,
// targeting baseURL — the per-run `base_url` spec §4.3 lists among the
// generator's inputs. In production this points a fresh Orchestrator's
// procedure-layer clients (Component E, spec §2) at baseURL; in tests it can
// ignore baseURL and return a fixed fake.
type TransferFactory func(baseURL string) TransferFunc

// Runner is the lock-protected singleton generator, mirroring RDGRunner's
// start/stop/status/is_running shape.
type Runner struct {
	mu              sync.Mutex
	running         bool
	cancel          context.CancelFunc
	done            chan struct{}
	cfg             Config
	stats           *Stats
	transferFactory TransferFactory
	transfer        TransferFunc
	log             *zap.Logger
}

// NewRunner returns a Runner that builds its transfer path via factory,
// targeting whatever base_url each /rdg/start call supplies.
func NewRunner(factory TransferFactory, log *zap.Logger) *Runner {
	return &Runner{transferFactory: factory, log: log}
}

// Start launches the generator with cfg, or returns ErrAlreadyRunning if one
// is already active.
func (r *Runner) Start(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}
	if len(cfg.ActiveEngines) == 0 {
		return errors.New("loadgen: active_engines must be non-empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cfg = cfg
	r.stats = newStats()
	r.transfer = r.transferFactory(cfg.BaseURL)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.run(ctx, r.done)
	return nil
}

// Stop signals shutdown and waits up to gracefulShutdownBudget for in-flight
// tasks to drain (spec §4.3, §5). It is a no-op if not running.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(gracefulShutdownBudget):
		r.log.Warn("loadgen: shutdown budget exceeded, hard-stopping with requests still in flight")
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// IsRunning reports whether a generator run is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status is the `/rdg/status` response shape (spec §6).
type Status struct {
	Running bool     `json:"running"`
	Cfg     *Config  `json:"cfg,omitempty"`
	Stats   Snapshot `json:"stats"`
	BaseURL string   `json:"base_url,omitempty"`
}

// Status returns a point-in-time snapshot of the generator's state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{Running: r.running}
	if r.running {
		cfg := r.cfg
		st.Cfg = &cfg
		st.BaseURL = r.cfg.BaseURL
	}
	if r.stats != nil {
		st.Stats = r.stats.snapshot()
	}
	return st
}

// run is the generator's main loop: once per second, launch exactly cfg.RPS
// tasks, await them all, then sleep the remainder of the second (spec §4.3's
// scheduling rule — no drift accumulation).
func (r *Runner) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	sem := make(chan struct{}, r.cfg.Concurrency)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tickStart := time.Now()
		r.stats.markTick(tickStart)

		var wg sync.WaitGroup
		for i := 0; i < r.cfg.RPS; i++ {
			select {
			case <-ctx.Done():
				wg.Wait()
				return
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				// Deliberately not ctx: cancelling the tick loop must not
				// cancel an in-flight HTTP call (spec §5) — Stop() drains
				// via wg.Wait() under its own gracefulShutdownBudget
				// instead of aborting the request context.
				r.singleRequest(context.Background())
			}()
		}
		wg.Wait()

		elapsed := time.Since(tickStart)
		sleepLeft := time.Second - elapsed
		if sleepLeft <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepLeft):
		}
	}
}

func (r *Runner) singleRequest(ctx context.Context) {
	r.stats.incInFlight()
	metrics.GeneratorInFlight.Inc()
	start := time.Now()
	defer func() {
		r.stats.decInFlight()
		metrics.GeneratorInFlight.Dec()
	}()

	src, dst := pickEngines(r.cfg.ActiveEngines, r.cfg.AllowSameDB)
	srcAcct, dstAcct, err := synthesizeAccounts(src, dst)
	if err != nil {
		r.log.Error("loadgen: account synthesis failed", zap.Error(err))
		r.stats.recordResult(false, time.Since(start))
		return
	}
	amount := synthesizeAmount(r.cfg.MinAmount, r.cfg.MaxAmount)
	key := idempotencyKey(src, dst)

	ok := r.transfer(ctx, orchestrator.TransferRequest{
		Src: src, Dst: dst, SrcAccount: srcAcct, DstAccount: dstAcct,
		Amount: amount, IdempotencyKey: key,
	})

	metrics.GeneratorSentTotal.Inc()
	r.stats.recordResult(ok, time.Since(start))
}

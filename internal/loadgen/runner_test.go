package loadgen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerops/heteroledger/internal/engine"
	"github.com/ledgerops/heteroledger/internal/orchestrator"
)

func TestRunner_StartTwice_ReturnsAlreadyRunning(t *testing.T) {
	r := NewRunner(func(baseURL string) TransferFunc {
		return func(ctx context.Context, req orchestrator.TransferRequest) bool { return true }
	}, zap.NewNop())
	cfg := Config{RPS: 1, Concurrency: 2, ActiveEngines: []engine.Name{engine.SQLA}, MinAmount: 100, MaxAmount: 200}

	require.NoError(t, r.Start(cfg))
	defer r.Stop()

	err := r.Start(cfg)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

// TestRunner_SustainsRateAndDrains mirrors spec §8's end-to-end scenario 5:
// at a fixed rps, over a short run, sent tracks rps*seconds within a small
// tolerance, and in_flight returns to zero once Stop drains the generator.
func TestRunner_SustainsRateAndDrains(t *testing.T) {
	r := NewRunner(func(baseURL string) TransferFunc {
		return func(ctx context.Context, req orchestrator.TransferRequest) bool { return true }
	}, zap.NewNop())
	cfg := Config{
		RPS: 5, Concurrency: 50,
		ActiveEngines: []engine.Name{engine.SQLA, engine.SQLB},
		MinAmount:     100, MaxAmount: 200, AllowSameDB: true,
	}

	require.NoError(t, r.Start(cfg))
	time.Sleep(2200 * time.Millisecond) // spans roughly 2 ticks
	r.Stop()

	snap := r.Status().Stats
	require.InDelta(t, 10, snap.Sent, 6, "sent should track rps*elapsed_ticks within tolerance")
	require.Equal(t, int64(0), snap.InFlight, "in_flight must drain to zero on stop")
	require.False(t, r.IsRunning())
}

func TestRunner_Status_NotRunningHasNoConfig(t *testing.T) {
	r := NewRunner(func(baseURL string) TransferFunc {
		return func(ctx context.Context, req orchestrator.TransferRequest) bool { return true }
	}, zap.NewNop())
	st := r.Status()
	require.False(t, st.Running)
	require.Nil(t, st.Cfg)
}

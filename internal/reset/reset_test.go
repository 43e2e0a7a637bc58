package reset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/engine"
)

type fakeGenerator struct{ running bool }

func (f fakeGenerator) IsRunning() bool { return f.running }

type fakeTruncator struct{ err error }

func (f fakeTruncator) Reset(ctx context.Context) error { return f.err }

func TestReset_RefusesWhileGeneratorRunning(t *testing.T) {
	c := New(fakeGenerator{running: true}, map[engine.Name]Truncator{engine.SQLA: fakeTruncator{}}, zap.NewNop())
	_, err := c.Reset(context.Background())
	require.ErrorIs(t, err, domain.ErrGeneratorRunning)
}

func TestReset_TruncatesEveryRegisteredEngineIndependently(t *testing.T) {
	engines := map[engine.Name]Truncator{
		engine.Doc:  fakeTruncator{},
		engine.SQLA: fakeTruncator{err: domain.ErrEngineBusy},
		engine.SQLB: fakeTruncator{},
	}
	c := New(fakeGenerator{running: false}, engines, zap.NewNop())

	results, err := c.Reset(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byEngine := map[engine.Name]error{}
	for _, r := range results {
		byEngine[r.Engine] = r.Err
	}
	require.NoError(t, byEngine[engine.Doc])
	require.NoError(t, byEngine[engine.SQLB])
	require.Error(t, byEngine[engine.SQLA])
	require.True(t, errors.Is(byEngine[engine.SQLA], domain.ErrEngineBusy))
}

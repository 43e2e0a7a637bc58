package loadgen

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerops/heteroledger/internal/engine"
)

func TestPickEngines_AllowSameDB_CanCollide(t *testing.T) {
	active := []engine.Name{engine.SQLA}
	src, dst := pickEngines(active, true)
	require.Equal(t, engine.SQLA, src)
	require.Equal(t, engine.SQLA, dst)
}

func TestPickEngines_DisallowSameDB_NeverCollides(t *testing.T) {
	active := []engine.Name{engine.SQLA, engine.SQLB}
	for i := 0; i < 50; i++ {
		src, dst := pickEngines(active, false)
		require.NotEqual(t, src, dst)
	}
}

func TestSynthesizeAccounts_SameEngineNeverCollides(t *testing.T) {
	for i := 0; i < 50; i++ {
		src, dst, err := synthesizeAccounts(engine.Doc, engine.Doc)
		require.NoError(t, err)
		require.NotEqual(t, src, dst)
	}
}

func TestSynthesizeAccounts_EncodesEngine(t *testing.T) {
	src, dst, err := synthesizeAccounts(engine.SQLA, engine.SQLB)
	require.NoError(t, err)
	owner, err := engine.OwnerOf(src)
	require.NoError(t, err)
	require.Equal(t, engine.SQLA, owner)
	owner, err = engine.OwnerOf(dst)
	require.NoError(t, err)
	require.Equal(t, engine.SQLB, owner)
}

func TestSynthesizeAmount_WithinBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		amt := synthesizeAmount(1000, 100000)
		require.True(t, amt.GreaterThanOrEqual(decimal.NewFromInt(1000)))
		require.True(t, amt.LessThanOrEqual(decimal.NewFromInt(100000)))
	}
}

func TestIdempotencyKey_PrefixedByFirstChars(t *testing.T) {
	key := idempotencyKey(engine.SQLA, engine.Doc)
	require.True(t, strings.HasPrefix(key, "sd-"))
}

package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/procedure"
)

func TestIsRetryable(t *testing.T) {
	require.False(t, isRetryable(errors.New("some other error")))
}

func TestSQLProcClient_RemittanceHold_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/db/proc/exec", r.URL.Path)
		var req procRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "sql-a", req.DBMS)
		require.Equal(t, "sp_remittance_hold", req.Name)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"data": map[string]string{"txn_id": "T1", "status": "1"},
		})
	}))
	defer srv.Close()

	c := NewSQLProcClient(New(srv.URL), "sql-a", "proc", false)
	res, err := c.RemittanceHold(context.Background(), testHoldReq())
	require.NoError(t, err)
	require.Equal(t, "T1", res.TxnID)
	require.Equal(t, domain.StatusHeld, res.Status)
}

func TestSQLProcClient_EnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "boom"})
	}))
	defer srv.Close()

	c := NewSQLProcClient(New(srv.URL), "sql-a", "proc", false)
	_, err := c.RemittanceHold(context.Background(), testHoldReq())
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrProtocol)
}

func TestSQLProcClient_PadArgsForOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req procRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Args, 3) // 1 in-arg + 2 OUT placeholders
		require.Nil(t, req.Args[1])
		require.Nil(t, req.Args[2])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"data": map[string]string{"txn_id": "T1", "status": "2"},
		})
	}))
	defer srv.Close()

	c := NewSQLProcClient(New(srv.URL), "sql-a", "proc", true)
	_, err := c.TransferConfirmInternal(context.Background(), "idem-1")
	require.NoError(t, err)
}

func testHoldReq() procedure.HoldRequest {
	return procedure.HoldRequest{
		Src:            200001,
		Dst:            300001,
		DstBank:        "sql-b",
		Amount:         decimal.RequireFromString("1000"),
		IdempotencyKey: "sb-abc123",
		Type:           domain.TxnOutgoingExternal,
	}
}

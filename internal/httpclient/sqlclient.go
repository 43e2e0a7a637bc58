package httpclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/procedure"
)

// outSpec lists the OUT-parameter SQL type hints for a procedure's trailing
// slots, in positional order (spec §4.4). Every logical procedure returns
// exactly (txn_id, status), so every dialect needing OUT hints uses the same
// two-element spec regardless of which procedure is called.
var outSpec = []string{"varchar", "varchar"}

// procRequest is the wire body for POST {base_url}/db/proc/exec (spec §6).
type procRequest struct {
	DBMS     string   `json:"dbms"`
	Name     string   `json:"name"`
	Args     []any    `json:"args"`
	OutCount int      `json:"out_count,omitempty"`
	OutTypes []string `json:"out_types,omitempty"`
	Mode     string   `json:"mode,omitempty"`
}

type procResultWire struct {
	TxnID  string `json:"txn_id"`
	Status string `json:"status"`
}

// SQLProcClient implements procedure.Procedures for one SQL engine by
// calling {base_url}/db/proc/exec over HTTP, the way the orchestrator
// reaches engine B per spec §2's component table ("invokes B via HTTP").
type SQLProcClient struct {
	client *Client
	dbms   string // "sql-a", "sql-b", "sql-c"
	mode   string // "proc" or "func"
	// padArgsForOut mirrors sqlproc.Dialect.PadArgsForOut: one SQL dialect
	// expects the args array padded with placeholders for OUT positions.
	padArgsForOut bool
}

// NewSQLProcClient returns a client for one SQL engine's /db/proc/exec route.
func NewSQLProcClient(client *Client, dbms, mode string, padArgsForOut bool) *SQLProcClient {
	return &SQLProcClient{client: client, dbms: dbms, mode: mode, padArgsForOut: padArgsForOut}
}

var _ procedure.Procedures = (*SQLProcClient)(nil)

func (c *SQLProcClient) RemittanceHold(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	return c.call(ctx, "sp_remittance_hold", []any{
		req.Src, req.Dst, req.DstBank, req.Amount, req.IdempotencyKey, int(req.Type),
	})
}

func (c *SQLProcClient) RemittanceRelease(ctx context.Context, idem string) (procedure.Result, error) {
	return c.call(ctx, "sp_remittance_release", []any{idem})
}

func (c *SQLProcClient) ReceivePrepare(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	return c.call(ctx, "sp_receive_prepare", []any{
		req.Src, req.Dst, req.DstBank, req.Amount, req.IdempotencyKey, int(req.Type),
	})
}

func (c *SQLProcClient) ConfirmDebitLocal(ctx context.Context, idem string) (procedure.Result, error) {
	return c.call(ctx, "sp_confirm_debit_local", []any{idem})
}

func (c *SQLProcClient) ConfirmCreditLocal(ctx context.Context, idem string) (procedure.Result, error) {
	return c.call(ctx, "sp_confirm_credit_local", []any{idem})
}

func (c *SQLProcClient) TransferConfirmInternal(ctx context.Context, idem string) (procedure.Result, error) {
	return c.call(ctx, "sp_transfer_confirm_internal", []any{idem})
}

func (c *SQLProcClient) call(ctx context.Context, name string, args []any) (procedure.Result, error) {
	bound := args
	if c.padArgsForOut {
		bound = append(append([]any{}, args...), nil, nil)
	}

	req := procRequest{
		DBMS:     c.dbms,
		Name:     name,
		Args:     bound,
		Mode:     c.mode,
		OutCount: len(outSpec),
		OutTypes: outSpec,
	}

	env, err := c.client.postJSON(ctx, "/db/proc/exec", req)
	if err != nil {
		return procedure.Result{}, classifyEngineErr(err)
	}
	if !env.OK {
		return procedure.Result{}, fmt.Errorf("%w: %s: %s", domain.ErrProtocol, name, env.Error)
	}

	var wire procResultWire
	if err := json.Unmarshal(env.Data, &wire); err != nil {
		return procedure.Result{}, fmt.Errorf("%w: %s: malformed data: %v", domain.ErrProtocol, name, err)
	}
	status, ok := domain.ParseTxnStatus(wire.Status)
	if !ok {
		return procedure.Result{}, fmt.Errorf("%w: %s: unrecognized status %q", domain.ErrProtocol, name, wire.Status)
	}
	return procedure.Result{TxnID: wire.TxnID, Status: status}, nil
}

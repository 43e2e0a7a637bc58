package httpclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/procedure"
)

// mongoProcRequest is the wire body for POST {base_url}/mongo_proc/{op}.
// Confirm/release calls only ever populate IdempotencyKey.
type mongoProcRequest struct {
	Src            int64           `json:"src,omitempty"`
	Dst            int64           `json:"dst,omitempty"`
	DstBank        string          `json:"dst_bank,omitempty"`
	Amount         decimal.Decimal `json:"amount,omitempty"`
	IdempotencyKey string          `json:"idem"`
	Type           int             `json:"type,omitempty"`
}

// MongoProcClient implements procedure.Procedures for the document-store
// engine by calling {base_url}/mongo_proc/{op} (spec §6).
type MongoProcClient struct {
	client *Client
}

// NewMongoProcClient returns a client for the doc-store's /mongo_proc routes.
func NewMongoProcClient(client *Client) *MongoProcClient {
	return &MongoProcClient{client: client}
}

var _ procedure.Procedures = (*MongoProcClient)(nil)

func (c *MongoProcClient) RemittanceHold(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	return c.call(ctx, "remittance/hold", mongoProcRequest{
		Src: req.Src, Dst: req.Dst, DstBank: req.DstBank, Amount: req.Amount,
		IdempotencyKey: req.IdempotencyKey, Type: int(req.Type),
	})
}

func (c *MongoProcClient) RemittanceRelease(ctx context.Context, idem string) (procedure.Result, error) {
	return c.call(ctx, "remittance/release", mongoProcRequest{IdempotencyKey: idem})
}

func (c *MongoProcClient) ReceivePrepare(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	return c.call(ctx, "receive/prepare", mongoProcRequest{
		Src: req.Src, Dst: req.Dst, DstBank: req.DstBank, Amount: req.Amount,
		IdempotencyKey: req.IdempotencyKey, Type: int(req.Type),
	})
}

func (c *MongoProcClient) ConfirmDebitLocal(ctx context.Context, idem string) (procedure.Result, error) {
	return c.call(ctx, "confirm/debit/local", mongoProcRequest{IdempotencyKey: idem})
}

func (c *MongoProcClient) ConfirmCreditLocal(ctx context.Context, idem string) (procedure.Result, error) {
	return c.call(ctx, "confirm/credit/local", mongoProcRequest{IdempotencyKey: idem})
}

func (c *MongoProcClient) TransferConfirmInternal(ctx context.Context, idem string) (procedure.Result, error) {
	return c.call(ctx, "transfer/confirm/internal", mongoProcRequest{IdempotencyKey: idem})
}

func (c *MongoProcClient) call(ctx context.Context, op string, body mongoProcRequest) (procedure.Result, error) {
	env, err := c.client.postJSON(ctx, "/mongo_proc/"+op, body)
	if err != nil {
		return procedure.Result{}, classifyEngineErr(err)
	}
	if !env.OK {
		return procedure.Result{}, fmt.Errorf("%w: %s: %s", domain.ErrProtocol, op, env.Error)
	}

	var wire procResultWire
	if err := json.Unmarshal(env.Data, &wire); err != nil {
		return procedure.Result{}, fmt.Errorf("%w: %s: malformed data: %v", domain.ErrProtocol, op, err)
	}
	status, ok := domain.ParseTxnStatus(wire.Status)
	if !ok {
		return procedure.Result{}, fmt.Errorf("%w: %s: unrecognized status %q", domain.ErrProtocol, op, wire.Status)
	}
	return procedure.Result{TxnID: wire.TxnID, Status: status}, nil
}

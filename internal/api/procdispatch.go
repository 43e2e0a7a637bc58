package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/procedure"
)

// normalizeProcName strips the sp_/fn_ object-name prefix the SQL dialects
// use (spec §1's "external contract" framing means only the shape of the
// call matters to this dispatcher, not which dialect produced the name).
func normalizeProcName(name string) string {
	name = strings.TrimPrefix(name, "sp_")
	name = strings.TrimPrefix(name, "fn_")
	return name
}

// dispatchProc routes a logical procedure name to the matching
// procedure.Procedures method, decoding args from the loosely-typed JSON
// wire shape spec §6 defines.
func dispatchProc(ctx context.Context, p procedure.Procedures, name string, args []any) (procedure.Result, error) {
	switch normalizeProcName(name) {
	case "remittance_hold":
		req, err := parseHoldArgs(args)
		if err != nil {
			return procedure.Result{}, err
		}
		return p.RemittanceHold(ctx, req)
	case "remittance_release":
		idem, err := parseIdemArg(args)
		if err != nil {
			return procedure.Result{}, err
		}
		return p.RemittanceRelease(ctx, idem)
	case "receive_prepare":
		req, err := parseHoldArgs(args)
		if err != nil {
			return procedure.Result{}, err
		}
		return p.ReceivePrepare(ctx, req)
	case "confirm_debit_local":
		idem, err := parseIdemArg(args)
		if err != nil {
			return procedure.Result{}, err
		}
		return p.ConfirmDebitLocal(ctx, idem)
	case "confirm_credit_local":
		idem, err := parseIdemArg(args)
		if err != nil {
			return procedure.Result{}, err
		}
		return p.ConfirmCreditLocal(ctx, idem)
	case "transfer_confirm_internal":
		idem, err := parseIdemArg(args)
		if err != nil {
			return procedure.Result{}, err
		}
		return p.TransferConfirmInternal(ctx, idem)
	default:
		return procedure.Result{}, fmt.Errorf("%w: unknown procedure %q", domain.ErrProtocol, name)
	}
}

// parseHoldArgs decodes the positional (src, dst, dst_bank, amount, idem,
// type) argument list remittance_hold/receive_prepare expect (spec §4.1).
// Trailing OUT placeholders (nil) are ignored if present.
func parseHoldArgs(args []any) (procedure.HoldRequest, error) {
	if len(args) < 6 {
		return procedure.HoldRequest{}, fmt.Errorf("%w: expected at least 6 args, got %d", domain.ErrProtocol, len(args))
	}
	src, err := toInt64(args[0])
	if err != nil {
		return procedure.HoldRequest{}, err
	}
	dst, err := toInt64(args[1])
	if err != nil {
		return procedure.HoldRequest{}, err
	}
	dstBank, _ := args[2].(string)
	amount, err := toDecimal(args[3])
	if err != nil {
		return procedure.HoldRequest{}, err
	}
	idem, _ := args[4].(string)
	typ, err := toInt64(args[5])
	if err != nil {
		return procedure.HoldRequest{}, err
	}

	return procedure.HoldRequest{
		Src: src, Dst: dst, DstBank: dstBank, Amount: amount,
		IdempotencyKey: idem, Type: domain.TxnType(typ),
	}, nil
}

// parseIdemArg decodes the single idempotency-key argument the confirm/
// release procedures expect.
func parseIdemArg(args []any) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("%w: expected at least 1 arg, got 0", domain.ErrProtocol)
	}
	idem, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: first arg must be a string idempotency key", domain.ErrProtocol)
	}
	return idem, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot parse %q as integer", domain.ErrProtocol, n)
		}
		return d.IntPart(), nil
	default:
		return 0, fmt.Errorf("%w: unexpected argument type %T", domain.ErrProtocol, v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: cannot parse %q as decimal", domain.ErrProtocol, n)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unexpected amount argument type %T", domain.ErrProtocol, v)
	}
}

// Package sqlproc implements the procedure.Procedures contract for the
// three SQL engines (spec §4.1) by invoking stored procedures/functions
// that are themselves an external contract: this package only has to bind
// arguments correctly and interpret the (txn_id, status) result, the way
// the teacher's own service layer binds parameters and scans rows rather
// than reimplementing business logic client-side.
package sqlproc

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/procedure"
)

// Store invokes one SQL engine's six stored procedures/functions over a
// pgx connection pool. One Store instance serves exactly one engine.
type Store struct {
	pool    *pgxpool.Pool
	dialect Dialect
}

// New returns a Store bound to pool, calling procedures per dialect.
func New(pool *pgxpool.Pool, dialect Dialect) *Store {
	return &Store{pool: pool, dialect: dialect}
}

var _ procedure.Procedures = (*Store)(nil)

func (s *Store) RemittanceHold(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	return s.invoke(ctx, "remittance_hold", []any{
		req.Src, req.Dst, req.DstBank, req.Amount, req.IdempotencyKey, int(req.Type),
	})
}

func (s *Store) RemittanceRelease(ctx context.Context, idem string) (procedure.Result, error) {
	return s.invoke(ctx, "remittance_release", []any{idem})
}

func (s *Store) ReceivePrepare(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	return s.invoke(ctx, "receive_prepare", []any{
		req.Src, req.Dst, req.DstBank, req.Amount, req.IdempotencyKey, int(req.Type),
	})
}

func (s *Store) ConfirmDebitLocal(ctx context.Context, idem string) (procedure.Result, error) {
	return s.invoke(ctx, "confirm_debit_local", []any{idem})
}

func (s *Store) ConfirmCreditLocal(ctx context.Context, idem string) (procedure.Result, error) {
	return s.invoke(ctx, "confirm_credit_local", []any{idem})
}

func (s *Store) TransferConfirmInternal(ctx context.Context, idem string) (procedure.Result, error) {
	return s.invoke(ctx, "transfer_confirm_internal", []any{idem})
}

// invoke calls the named logical procedure through this Store's dialect and
// parses the (txn_id, status) result. The stored object's internal logic
// (balance checks, conditional updates, idempotent replay) is the external
// contract spec.md §1 describes; invoke's only job is correct binding and
// result interpretation.
func (s *Store) invoke(ctx context.Context, name string, args []any) (procedure.Result, error) {
	stmt, _ := s.dialect.buildCallSQL(name, len(args))
	bound := s.dialect.padForOut(args)

	row := s.pool.QueryRow(ctx, stmt, bound...)

	var txnID, status string
	if err := row.Scan(&txnID, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return procedure.Result{}, fmt.Errorf("%w: %s returned no row", domain.ErrProtocol, name)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "55P03": // lock_not_available
				return procedure.Result{}, domain.ErrEngineBusy
			case "23505": // unique_violation — the stored object should have
				// absorbed this as an idempotent replay; surfacing it here
				// means the external contract was violated.
				return procedure.Result{}, fmt.Errorf("%w: unexpected unique violation from %s", domain.ErrProtocol, name)
			}
		}
		return procedure.Result{}, fmt.Errorf("sqlproc: invoke %s: %w", name, err)
	}

	parsed, ok := domain.ParseTxnStatus(status)
	if !ok {
		return procedure.Result{}, fmt.Errorf("%w: %s returned unrecognized status %q", domain.ErrProtocol, name, status)
	}

	return procedure.Result{TxnID: txnID, Status: parsed}, nil
}

// Reset truncates this engine's transactions/holds/ledger entries and
// restores account balances to seed values (spec §4.5). The reset script
// itself is a static, schema-qualified statement — not a reimplementation of
// the stored procedures' logic, same external-contract framing as invoke.
func (s *Store) Reset(ctx context.Context) error {
	stmt := fmt.Sprintf(`
		TRUNCATE TABLE %[1]s.ledger_entries, %[1]s.holds, %[1]s.transactions;
		UPDATE %[1]s.accounts SET balance = seed_balance, hold_amount = 0;
	`, s.dialect.Schema)

	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return domain.ErrEngineBusy
		}
		return fmt.Errorf("sqlproc: reset %s: %w", s.dialect.Schema, err)
	}
	return nil
}

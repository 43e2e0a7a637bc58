// Package mongodoc implements the procedure.Procedures contract on top of a
// document store that has no multi-document transactions to lean on (spec
// §1's "hard variant"). Every operation that needs atomicity across more
// than one document reaches for the same two tools instead: a single-document
// conditional update guarded by $expr, and a unique index that turns a
// replayed insert into a detectable duplicate-key error. This mirrors
// original_source/BE/services/mongo_tx_service.py line for line — that file
// is the ground truth for every branch below.
package mongodoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/procedure"
)

// Store implements procedure.Procedures against one Mongo database. One
// Store instance serves exactly the "doc" engine.
type Store struct {
	accounts     *mongo.Collection
	transactions *mongo.Collection
	holds        *mongo.Collection
	ledger       *mongo.Collection
}

// New returns a Store bound to db's accounts/transactions/holds/ledger_entries
// collections.
func New(db *mongo.Database) *Store {
	return &Store{
		accounts:     db.Collection("accounts"),
		transactions: db.Collection("transactions"),
		holds:        db.Collection("holds"),
		ledger:       db.Collection("ledger_entries"),
	}
}

var _ procedure.Procedures = (*Store)(nil)

// EnsureIndexes creates the unique indexes the idempotent-insert and
// conservation invariants depend on. Call once at startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.transactions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongodoc: transactions index: %w", err)
	}
	if _, err := s.holds.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongodoc: holds index: %w", err)
	}
	// Unique on (txn_id, account_id, amount): under correct protocol usage
	// each (txn, account) pair posts at most one signed amount, so this also
	// enforces "one leg per sign" in practice without needing a derived
	// sign() field.
	if _, err := s.ledger.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "txn_id", Value: 1},
			{Key: "account_id", Value: 1},
			{Key: "amount", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongodoc: ledger index: %w", err)
	}
	return nil
}

type txnDoc struct {
	TxnID          string                `bson:"txn_id"`
	IdempotencyKey string                `bson:"idempotency_key"`
	Type           int                   `bson:"type"`
	Status         int                   `bson:"status"`
	SrcAccount     int64                 `bson:"src_account"`
	DstAccount     int64                 `bson:"dst_account"`
	DstBank        string                `bson:"dst_bank"`
	Amount         primitive.Decimal128  `bson:"amount"`
	CreatedAt      time.Time             `bson:"created_at"`
}

type holdDoc struct {
	IdempotencyKey string               `bson:"idempotency_key"`
	AccountID      int64                `bson:"account_id"`
	Amount         primitive.Decimal128 `bson:"amount"`
	Status         int                  `bson:"status"`
	CreatedAt      time.Time            `bson:"created_at"`
}

type ledgerDoc struct {
	TxnID     string               `bson:"txn_id"`
	AccountID int64                `bson:"account_id"`
	Amount    primitive.Decimal128 `bson:"amount"`
	CreatedAt time.Time            `bson:"created_at"`
}

// RemittanceHold reserves funds on req.Src, or marks the transaction
// INSUFFICIENT if the conditional update matches no document. Mirrors
// mongo_tx_service.remittance_hold.
func (s *Store) RemittanceHold(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	// A replayed idempotency key returns the recorded status without
	// incrementing hold_amount again, unless the first call stopped before
	// creating the hold.
	txnID, created, err := s.idemInsertTxn(ctx, req, domain.StatusHeld)
	if err != nil {
		return procedure.Result{}, err
	}
	if !created {
		existing, err := s.findTxnByIdem(ctx, req.IdempotencyKey)
		if err != nil {
			return procedure.Result{}, err
		}
		hold, err := s.findHoldByIdem(ctx, req.IdempotencyKey)
		if err != nil {
			return procedure.Result{}, err
		}
		if hold != nil || domain.TxnStatus(existing.Status) != domain.StatusHeld {
			return procedure.Result{TxnID: txnID, Status: domain.TxnStatus(existing.Status), Note: "REPLAY"}, nil
		}
	}

	res, err := s.accounts.UpdateOne(ctx,
		bson.M{
			"_id": req.Src,
			"$expr": bson.M{
				"$gte": bson.A{
					bson.M{"$subtract": bson.A{"$balance", "$hold_amount"}},
					toD128(req.Amount),
				},
			},
		},
		bson.M{"$inc": bson.M{"hold_amount": toD128(req.Amount)}},
	)
	if err != nil {
		return procedure.Result{}, fmt.Errorf("mongodoc: remittance_hold update: %w", err)
	}
	if res.MatchedCount != 1 {
		if err := s.setTxnStatus(ctx, txnID, domain.StatusInsufficient); err != nil {
			return procedure.Result{}, err
		}
		return procedure.Result{TxnID: txnID, Status: domain.StatusInsufficient, Note: "INSUFFICIENT_FUNDS"}, nil
	}

	if _, _, err := s.idemInsertHold(ctx, req); err != nil {
		return procedure.Result{}, err
	}
	return procedure.Result{TxnID: txnID, Status: domain.StatusHeld, Note: "OK"}, nil
}

// ReceivePrepare creates the incoming-side transaction marker and checks the
// destination account exists on this engine. Mirrors
// mongo_tx_service.receive_prepare.
func (s *Store) ReceivePrepare(ctx context.Context, req procedure.HoldRequest) (procedure.Result, error) {
	txnID, _, err := s.idemInsertTxn(ctx, req, domain.StatusHeld)
	if err != nil {
		return procedure.Result{}, err
	}

	n, err := s.accounts.CountDocuments(ctx, bson.M{"_id": req.Dst})
	if err != nil {
		return procedure.Result{}, fmt.Errorf("mongodoc: receive_prepare lookup: %w", err)
	}
	if n == 0 {
		if err := s.setTxnStatus(ctx, txnID, domain.StatusUnknownAccount); err != nil {
			return procedure.Result{}, err
		}
		return procedure.Result{TxnID: txnID, Status: domain.StatusUnknownAccount, Note: "UNKNOWN_ACCOUNT"}, nil
	}
	return procedure.Result{TxnID: txnID, Status: domain.StatusHeld, Note: "OK"}, nil
}

// ConfirmDebitLocal captures an active hold: conditional decrement of
// hold_amount and balance, plus the negative ledger leg. Mirrors
// mongo_tx_service.confirm_debit_local.
func (s *Store) ConfirmDebitLocal(ctx context.Context, idem string) (procedure.Result, error) {
	txn, err := s.findTxnByIdem(ctx, idem)
	if err != nil {
		return procedure.Result{}, err
	}
	hold, err := s.findHoldByIdem(ctx, idem)
	if err != nil {
		return procedure.Result{}, err
	}
	if hold == nil {
		return procedure.Result{}, fmt.Errorf("%w: confirm_debit_local: no hold for idem %q", domain.ErrProtocol, idem)
	}

	switch domain.HoldStatus(hold.Status) {
	case domain.HoldCaptured:
		return procedure.Result{TxnID: txn.TxnID, Status: domain.StatusConfirmed, Note: "ALREADY_CONFIRMED"}, nil
	case domain.HoldReleased:
		return procedure.Result{}, domain.ErrAlreadyReleased
	}

	amt := fromD128(hold.Amount)
	res, err := s.accounts.UpdateOne(ctx,
		bson.M{
			"_id":         hold.AccountID,
			"hold_amount": bson.M{"$gte": toD128(amt)},
		},
		bson.M{"$inc": bson.M{
			"hold_amount": negD128(toD128(amt)),
			"balance":     negD128(toD128(amt)),
		}},
	)
	if err != nil {
		return procedure.Result{}, fmt.Errorf("mongodoc: confirm_debit_local update: %w", err)
	}
	if res.MatchedCount != 1 {
		return procedure.Result{}, domain.ErrConcurrencyFail
	}

	if err := s.insertLedgerLeg(ctx, txn.TxnID, hold.AccountID, amt.Neg()); err != nil {
		return procedure.Result{}, err
	}
	if _, err := s.holds.UpdateOne(ctx, bson.M{"idempotency_key": idem}, bson.M{"$set": bson.M{"status": int(domain.HoldCaptured)}}); err != nil {
		return procedure.Result{}, fmt.Errorf("mongodoc: confirm_debit_local mark captured: %w", err)
	}
	if err := s.setTxnStatus(ctx, txn.TxnID, domain.StatusConfirmed); err != nil {
		return procedure.Result{}, err
	}
	return procedure.Result{TxnID: txn.TxnID, Status: domain.StatusConfirmed, Note: "OK"}, nil
}

// ConfirmCreditLocal posts the positive ledger leg on the incoming account.
// Idempotent: a replay finds the existing leg and short-circuits. Mirrors
// mongo_tx_service.confirm_credit_local.
func (s *Store) ConfirmCreditLocal(ctx context.Context, idem string) (procedure.Result, error) {
	txn, err := s.findTxnByIdem(ctx, idem)
	if err != nil {
		return procedure.Result{}, err
	}

	var existing ledgerDoc
	err = s.ledger.FindOne(ctx, bson.M{"txn_id": txn.TxnID, "account_id": txn.DstAccount, "amount": toD128(fromD128(txn.Amount))}).Decode(&existing)
	if err == nil {
		if err := s.setTxnStatus(ctx, txn.TxnID, domain.StatusConfirmed); err != nil {
			return procedure.Result{}, err
		}
		return procedure.Result{TxnID: txn.TxnID, Status: domain.StatusConfirmed, Note: "ALREADY_POSTED"}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return procedure.Result{}, fmt.Errorf("mongodoc: confirm_credit_local lookup: %w", err)
	}

	amt := fromD128(txn.Amount)
	res, err := s.accounts.UpdateOne(ctx, bson.M{"_id": txn.DstAccount}, bson.M{"$inc": bson.M{"balance": toD128(amt)}})
	if err != nil {
		return procedure.Result{}, fmt.Errorf("mongodoc: confirm_credit_local update: %w", err)
	}
	if res.MatchedCount == 0 {
		// receive_prepare already validated dst exists; reaching here means
		// the account vanished between prepare and confirm.
		return procedure.Result{}, fmt.Errorf("%w: confirm_credit_local: dst %d no longer exists", domain.ErrProtocol, txn.DstAccount)
	}

	if err := s.insertLedgerLeg(ctx, txn.TxnID, txn.DstAccount, amt); err != nil {
		return procedure.Result{}, err
	}
	if err := s.setTxnStatus(ctx, txn.TxnID, domain.StatusConfirmed); err != nil {
		return procedure.Result{}, err
	}
	return procedure.Result{TxnID: txn.TxnID, Status: domain.StatusConfirmed, Note: "OK"}, nil
}

// TransferConfirmInternal is the same-engine shortcut: debit plus credit in
// one call, with or without a preceding hold. Mirrors
// mongo_tx_service.transfer_confirm_internal.
func (s *Store) TransferConfirmInternal(ctx context.Context, idem string) (procedure.Result, error) {
	txn, err := s.findTxnByIdem(ctx, idem)
	if err != nil {
		return procedure.Result{}, err
	}
	hold, err := s.findHoldByIdem(ctx, idem)
	if err != nil {
		return procedure.Result{}, err
	}

	if hold != nil && domain.HoldStatus(hold.Status) == domain.HoldCaptured {
		return procedure.Result{TxnID: txn.TxnID, Status: domain.StatusConfirmed, Note: "ALREADY_CONFIRMED"}, nil
	}

	amt := fromD128(txn.Amount)

	if hold != nil {
		res, err := s.accounts.UpdateOne(ctx,
			bson.M{"_id": txn.SrcAccount, "hold_amount": bson.M{"$gte": toD128(amt)}},
			bson.M{"$inc": bson.M{"hold_amount": negD128(toD128(amt)), "balance": negD128(toD128(amt))}},
		)
		if err != nil {
			return procedure.Result{}, fmt.Errorf("mongodoc: transfer_confirm_internal debit: %w", err)
		}
		if res.MatchedCount != 1 {
			return procedure.Result{}, domain.ErrConcurrencyFail
		}
		if _, err := s.holds.UpdateOne(ctx, bson.M{"idempotency_key": idem}, bson.M{"$set": bson.M{"status": int(domain.HoldCaptured)}}); err != nil {
			return procedure.Result{}, fmt.Errorf("mongodoc: transfer_confirm_internal mark captured: %w", err)
		}
	} else {
		res, err := s.accounts.UpdateOne(ctx,
			bson.M{"_id": txn.SrcAccount, "balance": bson.M{"$gte": toD128(amt)}},
			bson.M{"$inc": bson.M{"balance": negD128(toD128(amt))}},
		)
		if err != nil {
			return procedure.Result{}, fmt.Errorf("mongodoc: transfer_confirm_internal direct debit: %w", err)
		}
		if res.MatchedCount != 1 {
			// No hold preceded this call, so a failed conditional debit means
			// funds genuinely fell short, not a concurrent capture racing us.
			return procedure.Result{TxnID: txn.TxnID, Status: domain.StatusInsufficient, Note: "INSUFFICIENT_FUNDS"}, nil
		}
	}

	if _, err := s.accounts.UpdateOne(ctx, bson.M{"_id": txn.DstAccount}, bson.M{"$inc": bson.M{"balance": toD128(amt)}}); err != nil {
		return procedure.Result{}, fmt.Errorf("mongodoc: transfer_confirm_internal credit: %w", err)
	}

	if err := s.insertLedgerLeg(ctx, txn.TxnID, txn.SrcAccount, amt.Neg()); err != nil {
		return procedure.Result{}, err
	}
	if err := s.insertLedgerLeg(ctx, txn.TxnID, txn.DstAccount, amt); err != nil {
		return procedure.Result{}, err
	}
	if err := s.setTxnStatus(ctx, txn.TxnID, domain.StatusConfirmed); err != nil {
		return procedure.Result{}, err
	}
	return procedure.Result{TxnID: txn.TxnID, Status: domain.StatusConfirmed, Note: "OK"}, nil
}

// RemittanceRelease compensates an active hold. It is always safe to call —
// whether or not a hold was ever created, and whether or not it has already
// been captured — which is what lets the orchestrator use it unconditionally
// as a safety sweep on network-error paths (spec §4.2).
func (s *Store) RemittanceRelease(ctx context.Context, idem string) (procedure.Result, error) {
	hold, err := s.findHoldByIdem(ctx, idem)
	if err != nil {
		return procedure.Result{}, err
	}
	if hold == nil {
		return procedure.Result{Status: domain.StatusReleased, Note: "NO_HOLD"}, nil
	}

	switch domain.HoldStatus(hold.Status) {
	case domain.HoldCaptured:
		return procedure.Result{Status: domain.StatusConfirmed, Note: "ALREADY_CAPTURED"}, nil
	case domain.HoldReleased:
		return procedure.Result{Status: domain.StatusReleased, Note: "ALREADY_RELEASED"}, nil
	}

	amt := fromD128(hold.Amount)
	if _, err := s.accounts.UpdateOne(ctx, bson.M{"_id": hold.AccountID}, bson.M{"$inc": bson.M{"hold_amount": negD128(toD128(amt))}}); err != nil {
		return procedure.Result{}, fmt.Errorf("mongodoc: remittance_release update: %w", err)
	}
	if _, err := s.holds.UpdateOne(ctx, bson.M{"idempotency_key": idem}, bson.M{"$set": bson.M{"status": int(domain.HoldReleased)}}); err != nil {
		return procedure.Result{}, fmt.Errorf("mongodoc: remittance_release mark released: %w", err)
	}
	if txn, err := s.findTxnByIdem(ctx, idem); err == nil {
		_ = s.setTxnStatus(ctx, txn.TxnID, domain.StatusReleased)
	}
	return procedure.Result{Status: domain.StatusReleased, Note: "RELEASED"}, nil
}

// idemInsertTxn inserts a transaction document unless one already exists for
// req.IdempotencyKey, mirroring _idem_insert applied to the transactions
// collection. Returns the (possibly pre-existing) txn_id and whether this
// call created it.
func (s *Store) idemInsertTxn(ctx context.Context, req procedure.HoldRequest, initial domain.TxnStatus) (txnID string, created bool, err error) {
	var existing txnDoc
	err = s.transactions.FindOne(ctx, bson.M{"idempotency_key": req.IdempotencyKey}).Decode(&existing)
	if err == nil {
		return existing.TxnID, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, fmt.Errorf("mongodoc: idemInsertTxn lookup: %w", err)
	}

	doc := txnDoc{
		TxnID:          req.IdempotencyKey,
		IdempotencyKey: req.IdempotencyKey,
		Type:           int(req.Type),
		Status:         int(initial),
		SrcAccount:     req.Src,
		DstAccount:     req.Dst,
		DstBank:        req.DstBank,
		Amount:         toD128(req.Amount),
		CreatedAt:      time.Now(),
	}
	_, err = s.transactions.InsertOne(ctx, doc)
	if err == nil {
		return doc.TxnID, true, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		if derr := s.transactions.FindOne(ctx, bson.M{"idempotency_key": req.IdempotencyKey}).Decode(&existing); derr != nil {
			return "", false, fmt.Errorf("mongodoc: idemInsertTxn re-read after duplicate: %w", derr)
		}
		return existing.TxnID, false, nil
	}
	return "", false, fmt.Errorf("mongodoc: idemInsertTxn insert: %w", err)
}

// idemInsertHold inserts a hold document unless one already exists for the
// idempotency key, mirroring _idem_insert applied to the holds collection.
func (s *Store) idemInsertHold(ctx context.Context, req procedure.HoldRequest) (created bool, alreadyExisted bool, err error) {
	var existing holdDoc
	err = s.holds.FindOne(ctx, bson.M{"idempotency_key": req.IdempotencyKey}).Decode(&existing)
	if err == nil {
		return false, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, false, fmt.Errorf("mongodoc: idemInsertHold lookup: %w", err)
	}

	doc := holdDoc{
		IdempotencyKey: req.IdempotencyKey,
		AccountID:      req.Src,
		Amount:         toD128(req.Amount),
		Status:         int(domain.HoldActive),
		CreatedAt:      time.Now(),
	}
	_, err = s.holds.InsertOne(ctx, doc)
	if err == nil {
		return true, false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return false, true, nil
	}
	return false, false, fmt.Errorf("mongodoc: idemInsertHold insert: %w", err)
}

// insertLedgerLeg inserts one signed ledger posting, tolerating a duplicate
// as an idempotent replay rather than an error.
func (s *Store) insertLedgerLeg(ctx context.Context, txnID string, accountID int64, amount decimal.Decimal) error {
	doc := ledgerDoc{
		TxnID:     txnID,
		AccountID: accountID,
		Amount:    toD128(amount),
		CreatedAt: time.Now(),
	}
	_, err := s.ledger.InsertOne(ctx, doc)
	if err == nil || mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return fmt.Errorf("mongodoc: insertLedgerLeg: %w", err)
}

func (s *Store) findTxnByIdem(ctx context.Context, idem string) (txnDoc, error) {
	var doc txnDoc
	err := s.transactions.FindOne(ctx, bson.M{"idempotency_key": idem}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return txnDoc{}, fmt.Errorf("%w: no transaction for idem %q", domain.ErrProtocol, idem)
	}
	if err != nil {
		return txnDoc{}, fmt.Errorf("mongodoc: findTxnByIdem: %w", err)
	}
	return doc, nil
}

func (s *Store) findHoldByIdem(ctx context.Context, idem string) (*holdDoc, error) {
	var doc holdDoc
	err := s.holds.FindOne(ctx, bson.M{"idempotency_key": idem}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodoc: findHoldByIdem: %w", err)
	}
	return &doc, nil
}

// Reset truncates transactions/holds/ledger entries and restores every
// account's balance to its seed value (spec §4.5). Unlike the SQL engines
// there is no lock-timeout failure mode to surface here: Mongo's delete/
// update operations do not take the kind of session lock a reset script can
// time out waiting on.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.transactions.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("mongodoc: reset transactions: %w", err)
	}
	if _, err := s.holds.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("mongodoc: reset holds: %w", err)
	}
	if _, err := s.ledger.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("mongodoc: reset ledger: %w", err)
	}
	// Pipeline-style update: restore balance from each account's own
	// seed_balance field rather than a single literal.
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "balance", Value: "$seed_balance"},
			{Key: "hold_amount", Value: toD128(decimal.Zero)},
		}}},
	}
	if _, err := s.accounts.UpdateMany(ctx, bson.M{}, pipeline); err != nil {
		return fmt.Errorf("mongodoc: reset account balances: %w", err)
	}
	return nil
}

func (s *Store) setTxnStatus(ctx context.Context, txnID string, status domain.TxnStatus) error {
	_, err := s.transactions.UpdateOne(ctx, bson.M{"txn_id": txnID}, bson.M{"$set": bson.M{"status": int(status)}})
	if err != nil {
		return fmt.Errorf("mongodoc: setTxnStatus: %w", err)
	}
	return nil
}

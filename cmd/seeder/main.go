// Command seeder populates every engine's account slots 1..795 (spec §9
// open issue 3) at the seed balance the scenarios in spec §8 assume,
// generalizing the teacher's single-engine CopyFrom seeder to four engines
// and adding the seed_balance column the reset coordinator restores from.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ledgerops/heteroledger/internal/config"
	"github.com/ledgerops/heteroledger/internal/engine"
)

// seedBalance matches spec §8 scenario 1's assumed starting balance.
const seedBalance = "10000"

var sqlSchemas = map[engine.Name]string{
	engine.SQLA: "bank_a",
	engine.SQLB: "bank_b",
	engine.SQLC: "bank_c",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	for _, name := range []engine.Name{engine.SQLA, engine.SQLB, engine.SQLC} {
		if err := seedSQL(ctx, name, cfg.DSNFor(name)); err != nil {
			log.Fatalf("seed %s: %v", name, err)
		}
		log.Printf("seeded %s: slots %d..%d at balance %s", name, engine.SlotMin, engine.SlotMax, seedBalance)
	}

	if err := seedMongo(ctx, cfg.MongoURI, cfg.MongoDB); err != nil {
		log.Fatalf("seed %s: %v", engine.Doc, err)
	}
	log.Printf("seeded %s: slots %d..%d at balance %s", engine.Doc, engine.SlotMin, engine.SlotMax, seedBalance)
}

func seedSQL(ctx context.Context, name engine.Name, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	schema := sqlSchemas[name]

	var count int
	if err := conn.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s.accounts", schema)).Scan(&count); err != nil {
		return fmt.Errorf("count existing: %w", err)
	}
	if count >= engine.SlotMax-engine.SlotMin+1 {
		log.Printf("%s already has %d accounts, skipping", name, count)
		return nil
	}

	rows := make([][]any, 0, engine.SlotMax-engine.SlotMin+1)
	for slot := engine.SlotMin; slot <= engine.SlotMax; slot++ {
		id, err := engine.AccountID(name, slot)
		if err != nil {
			return err
		}
		rows = append(rows, []any{id, seedBalance, "0", seedBalance, time.Now()})
	}

	_, err = conn.CopyFrom(ctx,
		pgx.Identifier{schema, "accounts"},
		[]string{"id", "balance", "hold_amount", "seed_balance", "created_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func seedMongo(ctx context.Context, uri, db string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect(ctx)

	accounts := client.Database(db).Collection("accounts")

	count, err := accounts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("count existing: %w", err)
	}
	if count >= int64(engine.SlotMax-engine.SlotMin+1) {
		log.Printf("%s already has %d accounts, skipping", engine.Doc, count)
		return nil
	}

	seed, err := primitive.ParseDecimal128(decimal.RequireFromString(seedBalance).String())
	if err != nil {
		return fmt.Errorf("parse seed balance: %w", err)
	}
	zero, err := primitive.ParseDecimal128(decimal.Zero.String())
	if err != nil {
		return fmt.Errorf("parse zero: %w", err)
	}

	docs := make([]any, 0, engine.SlotMax-engine.SlotMin+1)
	for slot := engine.SlotMin; slot <= engine.SlotMax; slot++ {
		id, err := engine.AccountID(engine.Doc, slot)
		if err != nil {
			return err
		}
		docs = append(docs, bson.M{
			"_id":          id,
			"balance":      seed,
			"hold_amount":  zero,
			"seed_balance": seed,
		})
	}

	_, err = accounts.InsertMany(ctx, docs)
	return err
}

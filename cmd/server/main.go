// Command server is the HTTP process that exposes the procedure layers, the
// load generator, and the reset coordinator per spec §6 — the teacher's
// cmd/api/main.go bootstrap, generalized from one SQL pool to three SQL
// pools plus a Mongo client.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ledgerops/heteroledger/internal/api"
	"github.com/ledgerops/heteroledger/internal/config"
	"github.com/ledgerops/heteroledger/internal/engine"
	"github.com/ledgerops/heteroledger/internal/httpclient"
	"github.com/ledgerops/heteroledger/internal/loadgen"
	"github.com/ledgerops/heteroledger/internal/logging"
	"github.com/ledgerops/heteroledger/internal/orchestrator"
	"github.com/ledgerops/heteroledger/internal/procedure"
	"github.com/ledgerops/heteroledger/internal/procedure/mongodoc"
	"github.com/ledgerops/heteroledger/internal/procedure/sqlproc"
	"github.com/ledgerops/heteroledger/internal/reset"
)

// dialects assigns each SQL engine its calling convention (spec §4.4):
// sql-a and sql-b expose stored procedures, sql-c exposes stored functions;
// sql-b is the one dialect whose CALL convention needs its args padded with
// OUT placeholders.
var dialects = map[engine.Name]sqlproc.Dialect{
	engine.SQLA: {Schema: "bank_a", Mode: sqlproc.ModeProcedure, PadArgsForOut: false},
	engine.SQLB: {Schema: "bank_b", Mode: sqlproc.ModeProcedure, PadArgsForOut: true},
	engine.SQLC: {Schema: "bank_c", Mode: sqlproc.ModeFunction, PadArgsForOut: false},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("mongo connect failed", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := mongodoc.New(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo index setup failed", zap.Error(err))
	}

	sqlStores := map[engine.Name]*sqlproc.Store{}
	sqlProcedures := map[engine.Name]procedure.Procedures{}
	for _, name := range []engine.Name{engine.SQLA, engine.SQLB, engine.SQLC} {
		pool, err := pgxpool.New(ctx, cfg.DSNFor(name))
		if err != nil {
			logger.Fatal("sql pool connect failed", zap.Error(err))
		}
		defer pool.Close()

		store := sqlproc.New(pool, dialects[name])
		sqlStores[name] = store
		sqlProcedures[name] = store
	}

	// The orchestrator never touches sqlStores/mongoStore directly: spec §2's
	// data flow is "D -> E -> (network) -> engine-specific B", with the
	// orchestrator (C) embedded in the generator's per-request task but still
	// reaching every procedure layer over HTTP, through Component E's
	// bounded-retry client. sqlStores/mongoStore are wired directly only into
	// the handlers that /db/proc/exec and /mongo_proc/{op} dispatch to, and
	// into reset. transferFactory rebuilds the HTTP-backed registry against
	// whichever base_url a given /rdg/start call supplies (spec §4.3's
	// generator "Inputs" list), falling back to this process's own address
	// when the caller leaves it blank.
	transferFactory := func(baseURL string) loadgen.TransferFunc {
		if baseURL == "" {
			baseURL = cfg.SelfBaseURL
		}
		httpBase := httpclient.New(baseURL)
		registry := orchestrator.NewRegistry(map[engine.Name]procedure.Procedures{
			engine.Doc:  httpclient.NewMongoProcClient(httpBase),
			engine.SQLA: httpclient.NewSQLProcClient(httpBase, string(engine.SQLA), string(dialects[engine.SQLA].Mode), dialects[engine.SQLA].PadArgsForOut),
			engine.SQLB: httpclient.NewSQLProcClient(httpBase, string(engine.SQLB), string(dialects[engine.SQLB].Mode), dialects[engine.SQLB].PadArgsForOut),
			engine.SQLC: httpclient.NewSQLProcClient(httpBase, string(engine.SQLC), string(dialects[engine.SQLC].Mode), dialects[engine.SQLC].PadArgsForOut),
		})
		return orchestrator.New(registry, logger).Transfer
	}

	runner := loadgen.NewRunner(transferFactory, logger)

	truncators := map[engine.Name]reset.Truncator{
		engine.Doc:  mongoStore,
		engine.SQLA: sqlStores[engine.SQLA],
		engine.SQLB: sqlStores[engine.SQLB],
		engine.SQLC: sqlStores[engine.SQLC],
	}
	resetCoord := reset.New(runner, truncators, logger)

	handler := api.NewHandler(sqlProcedures, mongoStore, runner, resetCoord, cfg.RDGPassword, logger)
	router := api.NewRouter(handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	logger.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	log.Fatal(srv.ListenAndServe())
}

// Package config loads the small set of environment variables this repo
// needs to wire up. Per spec.md §1, configuration loading itself is an
// external-collaborator concern — this loader stays deliberately thin.
package config

import (
	"fmt"
	"os"

	"github.com/ledgerops/heteroledger/internal/engine"
)

// Config holds everything cmd/server needs to start serving.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	MongoURI string
	MongoDB  string

	SQLADSN string
	SQLBDSN string
	SQLCDSN string

	RDGPassword string

	// SelfBaseURL is where this process's own /db/proc/exec and
	// /mongo_proc/{op} routes are reachable. The orchestrator is embedded in
	// the generator's per-request task (spec §2) but still reaches engine B
	// over HTTP, never in-process (spec §2's data flow: "D -> E -> (network)
	// -> engine-specific B"), so it needs a URL back to this same server.
	SelfBaseURL string
}

// Load reads Config from the environment, applying the same defaulting
// pattern the teacher's config.Load uses (required DSN, defaulted port/env).
func Load() (*Config, error) {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return nil, fmt.Errorf("config: MONGO_URI environment variable is required")
	}
	sqlA := os.Getenv("SQL_A_DSN")
	if sqlA == "" {
		return nil, fmt.Errorf("config: SQL_A_DSN environment variable is required")
	}
	sqlB := os.Getenv("SQL_B_DSN")
	if sqlB == "" {
		return nil, fmt.Errorf("config: SQL_B_DSN environment variable is required")
	}
	sqlC := os.Getenv("SQL_C_DSN")
	if sqlC == "" {
		return nil, fmt.Errorf("config: SQL_C_DSN environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "heteroledger"
	}

	rdgPassword := os.Getenv("RDG_PASSWORD")

	selfBaseURL := os.Getenv("SELF_BASE_URL")
	if selfBaseURL == "" {
		selfBaseURL = "http://localhost:" + port
	}

	return &Config{
		Port:        port,
		Env:         env,
		LogLevel:    logLevel,
		MongoURI:    mongoURI,
		MongoDB:     mongoDB,
		SQLADSN:     sqlA,
		SQLBDSN:     sqlB,
		SQLCDSN:     sqlC,
		RDGPassword: rdgPassword,
		SelfBaseURL: selfBaseURL,
	}, nil
}

// DSNFor returns the SQL DSN for one of the sql-* engines; it panics on any
// other engine name, doc included, so callers pass only the three SQL
// engine names.
func (c *Config) DSNFor(n engine.Name) string {
	switch n {
	case engine.SQLA:
		return c.SQLADSN
	case engine.SQLB:
		return c.SQLBDSN
	case engine.SQLC:
		return c.SQLCDSN
	default:
		panic(fmt.Sprintf("config: DSNFor called with non-SQL engine %q", n))
	}
}

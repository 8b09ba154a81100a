// load-csvs runs the Northwind CSV normalization pipeline against the
// gateway database and prints the load report as JSON.
//
// Usage: go run ./scripts/load-csvs -csv-root /path/to/csvs
//
// Database connection: Uses standard PG* environment variables
//
// Flags:
//
//	-csv-root                Root folder where the CSV files live (required)
//	-create-missing-parents  Synthesize placeholder parents for dangling references
//	-truncate                Delete existing rows before loading
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tradewind-io/tradewind-gateway/pkg/ingest"
)

func main() {
	csvRoot := flag.String("csv-root", "", "Root folder where the CSV files live")
	createMissingParents := flag.Bool("create-missing-parents", false, "Synthesize placeholder parents for dangling references")
	truncate := flag.Bool("truncate", false, "Delete existing rows before loading")
	flag.Parse()

	if *csvRoot == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -csv-root <dir> [-create-missing-parents] [-truncate]\n", os.Args[0])
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// A pool, not a single connection: the loader copies the parent tables
	// concurrently when the connection can support it.
	pool, err := pgxpool.New(ctx, buildConnString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	loader := ingest.NewLoader(pool, ingest.Config{
		CSVRoot:              *csvRoot,
		CreateMissingParents: *createMissingParents,
		Truncate:             *truncate,
	}, logger)

	report, err := loader.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// buildConnString assembles a connection string from PG* environment
// variables, with local development defaults.
func buildConnString() string {
	host := envOr("PGHOST", "localhost")
	port := envOr("PGPORT", "5432")
	user := envOr("PGUSER", "postgres")
	password := os.Getenv("PGPASSWORD")
	dbname := envOr("PGDATABASE", "tradewind")
	sslmode := envOr("PGSSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

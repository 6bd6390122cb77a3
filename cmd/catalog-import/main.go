// Command catalog-import loads gzip'd JSON-lines catalog dumps into
// PostgreSQL. When the same product ID appears in several dumps, the record
// from the last dump on the command line wins.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/nilecart/internal/catalogimport"
	"github.com/xenking/nilecart/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		seller        string
		approve       bool
		bloomCapacity uint
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seller, "seller", "nilecart", "seller ID for records without sellerId")
	flag.BoolVar(&approve, "approve", false, "publish imported products immediately")
	flag.UintVar(&bloomCapacity, "bloom-capacity", 10_000_000, "expected product IDs per file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] dump.jsonl.gz...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	opts := catalogimport.Options{
		BloomCapacity: bloomCapacity,
		DefaultSeller: seller,
		Approve:       approve,
	}
	if err := run(ctx, lg, databaseURL, flag.Args(), opts); err != nil {
		lg.Error("Catalog import failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, opts catalogimport.Options) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	stats, err := catalogimport.New(postgres.NewProductRepository(pool), lg, opts).Run(ctx, files)
	if err != nil {
		return err
	}
	lg.Info("Catalog import completed",
		zap.Int("files", stats.Files),
		zap.Int("duplicates", stats.Duplicates),
		zap.Uint64("upserted", stats.Upserted),
	)
	return nil
}

// gridloader ingests a comma-delimited record file into a keyed index.
// With a database configured the index is persisted to PostgreSQL; with a
// grid master configured it can list zones or push ingested address
// records as A records.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/opsforge/gridloader/internal/config"
	"github.com/opsforge/gridloader/internal/grid"
	"github.com/opsforge/gridloader/internal/ingest"
	"github.com/opsforge/gridloader/internal/logging"
	"github.com/opsforge/gridloader/internal/pgsink"
)

func main() {
	keyColumn := flag.String("key", "", "key column name (default: first header column)")
	reportEvery := flag.Int("every", 0, "progress reporting granularity in records (default: from config)")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	listZones := flag.Bool("zones", false, "list authoritative zones on the grid master and exit")
	push := flag.Bool("push", false, "push ingested records to the grid master as A records")
	nameColumn := flag.String("name-column", "name", "column holding the DNS name for -push")
	addrColumn := flag.String("addr-column", "ip_address", "column holding the IPv4 address for -push")
	ttl := flag.Uint("ttl", 0, "TTL for pushed records (0 uses the zone default)")
	flag.Usage = usage
	flag.Parse()

	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listZones {
		os.Exit(runZones(ctx, cfg))
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	if *keyColumn == "" {
		*keyColumn = cfg.Ingest.KeyColumn
	}
	if *reportEvery == 0 {
		*reportEvery = cfg.Ingest.ReportEvery
	}

	opts := ingest.Options{
		KeyColumn:   *keyColumn,
		ReportEvery: *reportEvery,
	}
	if !*quiet {
		opts.OnProgress = func(p ingest.Progress) {
			if p.Total > 0 {
				slog.Info("progress", "records", p.Records, "total", p.Total,
					"percent", p.Percent())
			} else {
				slog.Info("progress", "records", p.Records)
			}
		}
	}

	res, err := ingest.IngestFile(ctx, path, opts)
	if err != nil {
		slog.Error("ingestion failed", "file", path, "error", err)
		os.Exit(1)
	}

	if cfg.HasDatabase() {
		if err := persist(ctx, cfg, res.Index); err != nil {
			slog.Error("persisting index failed", "error", err)
			os.Exit(1)
		}
		slog.Info("index persisted", "records", len(res.Index))
	}

	if *push {
		if !cfg.HasGrid() {
			slog.Error("-push requires GRID_HOST to be configured")
			os.Exit(1)
		}
		client, err := grid.NewClient(cfg.Grid, logging.WithComponent("grid"))
		if err != nil {
			slog.Error("grid session failed", "error", err)
			os.Exit(1)
		}
		if _, err := client.PushAddresses(ctx, res.Index, *nameColumn, *addrColumn, uint32(*ttl)); err != nil {
			slog.Error("push failed", "error", err)
			os.Exit(1)
		}
	}
}

// persist writes every indexed record to the configured PostgreSQL sink.
func persist(ctx context.Context, cfg *config.Config, idx ingest.ResultIndex) error {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	sink := pgsink.New(pool, "")
	if err := sink.EnsureSchema(ctx); err != nil {
		return err
	}
	for key, rec := range idx {
		if err := sink.Put(ctx, key, rec); err != nil {
			return err
		}
	}
	return nil
}

func runZones(ctx context.Context, cfg *config.Config) int {
	if !cfg.HasGrid() {
		slog.Error("-zones requires GRID_HOST to be configured")
		return 1
	}
	client, err := grid.NewClient(cfg.Grid, logging.WithComponent("grid"))
	if err != nil {
		slog.Error("grid session failed", "error", err)
		return 1
	}
	zones, err := client.Zones(ctx)
	if err != nil {
		slog.Error("zone query failed", "error", err)
		return 1
	}

	fqdns := make([]string, 0, len(zones))
	for _, fqdn := range zones {
		fqdns = append(fqdns, fqdn)
	}
	sort.Strings(fqdns)
	for _, fqdn := range fqdns {
		fmt.Println(fqdn)
	}
	return 0
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: gridloader [flags] <file.csv>
       gridloader -zones

Ingests a comma-delimited record file into a keyed index. The first header
column keys each record unless -key names another column.

`)
	flag.PrintDefaults()
}

// wapifetch scrapes a grid master's web directory listing for the WAPI
// distribution archive, downloads it if missing, and extracts it if not
// already unpacked.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/opsforge/gridloader/internal/config"
	"github.com/opsforge/gridloader/internal/fetch"
	"github.com/opsforge/gridloader/internal/logging"
)

func main() {
	baseURL := flag.String("url", "", "directory listing URL (default: FETCH_BASE_URL)")
	destDir := flag.String("dest", "", "download and extraction directory (default: FETCH_DEST_DIR)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `usage: wapifetch [-url <listing-url>] [-dest <dir>]

Locates the WAPI distribution archive in the grid master's directory
listing, downloads it, and extracts it. Artifacts already on disk are
kept as is.

`)
		flag.PrintDefaults()
	}
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

	if *baseURL != "" {
		cfg.Fetch.BaseURL = *baseURL
	}
	if *destDir != "" {
		cfg.Fetch.DestDir = *destDir
	}

	f, err := fetch.New(cfg.Fetch, logging.WithComponent("fetch"))
	if err != nil {
		slog.Error("invalid fetch configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := f.Run(ctx)
	if err != nil {
		slog.Error("fetch failed", "error", err)
		os.Exit(1)
	}

	slog.Info("fetch complete",
		"archive", res.ArchiveName,
		"downloaded", res.Downloaded,
		"extracted", res.Extracted,
		"dir", res.ExtractDir,
	)
}

// Package fetch locates, downloads, and extracts the WAPI distribution
// archive published in a grid master's web directory listing.
//
// The workflow is sequential: scrape the listing, pick out the archive link,
// download the tarball unless it is already on disk, extract it unless the
// target directory already exists. Nothing is retried; a failed step fails
// the run.
package fetch

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/opsforge/gridloader/internal/config"
)

// maxListingSize caps the directory listing read at 10MB.
const maxListingSize = 10 << 20

// ErrNoArchiveLink means the listing did not contain a link matching the
// configured pattern.
var ErrNoArchiveLink = errors.New("no archive link found in directory listing")

// Fetcher downloads and extracts the WAPI distribution archive.
type Fetcher struct {
	baseURL string
	destDir string
	pattern *regexp.Regexp
	client  *http.Client
	logger  *slog.Logger
}

// Result reports what one run did and where the artifacts ended up.
type Result struct {
	ArchiveName string
	ArchivePath string
	ExtractDir  string
	Downloaded  bool // false when the archive was already on disk
	Extracted   bool // false when the extract directory already existed
}

// New builds a Fetcher from configuration.
func New(cfg config.FetchConfig, logger *slog.Logger) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("fetch base URL is not configured")
	}
	pattern, err := regexp.Compile(cfg.LinkPattern)
	if err != nil {
		return nil, fmt.Errorf("compile link pattern: %w", err)
	}
	if pattern.NumSubexp() < 1 {
		return nil, errors.New("link pattern needs a capture group for the file name")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseURL: cfg.BaseURL,
		destDir: cfg.DestDir,
		pattern: pattern,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

// Run executes the fetch workflow and returns what it did.
func (f *Fetcher) Run(ctx context.Context) (*Result, error) {
	link, err := f.findArchiveLink(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ArchiveName: path.Base(link),
		ArchivePath: filepath.Join(f.destDir, path.Base(link)),
	}
	res.ExtractDir = strings.TrimSuffix(res.ArchivePath, ".tar.gz")

	if _, err := os.Stat(res.ArchivePath); err == nil {
		f.logger.Info("archive already downloaded", "path", res.ArchivePath)
	} else {
		if err := f.download(ctx, link, res.ArchivePath); err != nil {
			return nil, err
		}
		res.Downloaded = true
		f.logger.Info("archive downloaded", "path", res.ArchivePath)
	}

	if _, err := os.Stat(res.ExtractDir); err == nil {
		f.logger.Info("archive already extracted", "dir", res.ExtractDir)
	} else {
		if err := extractTarGz(res.ArchivePath, f.destDir); err != nil {
			return nil, fmt.Errorf("extract %s: %w", res.ArchiveName, err)
		}
		res.Extracted = true
		f.logger.Info("archive extracted", "dir", res.ExtractDir)
	}

	// Installation stays a human decision; suggest the follow-up commands
	// instead of running them.
	f.logger.Info("next steps",
		"hint", fmt.Sprintf("cd %s && perl Makefile.PL && make install", res.ExtractDir))

	return res, nil
}

// findArchiveLink fetches the directory listing and extracts the first link
// matching the configured pattern, resolved against the base URL.
func (f *Fetcher) findArchiveLink(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL, nil)
	if err != nil {
		return "", fmt.Errorf("build listing request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch directory listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch directory listing: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingSize))
	if err != nil {
		return "", fmt.Errorf("read directory listing: %w", err)
	}

	m := f.pattern.FindSubmatch(body)
	if m == nil {
		return "", ErrNoArchiveLink
	}

	base, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(string(m[1]))
	if err != nil {
		return "", fmt.Errorf("parse archive link %q: %w", m[1], err)
	}
	return base.ResolveReference(ref).String(), nil
}

// download streams the archive to a temporary file and renames it into
// place, so a partial download never looks like a finished one.
func (f *Fetcher) download(ctx context.Context, link, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", link, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return os.Rename(tmp.Name(), dest)
}

// extractTarGz unpacks a gzipped tarball under destDir. Entries that would
// escape destDir are rejected.
func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write %s: %w", hdr.Name, err)
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			// Symlinks and specials in a docs tarball are not expected;
			// skip rather than create them.
		}
	}
}

// safeJoin joins name under dir and rejects entries escaping it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.Clean("/"+name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsforge/gridloader/internal/config"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// buildArchive produces a small wapidoc-style tar.gz in memory.
func buildArchive(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	entries := []struct {
		name string
		body string
	}{
		{"wapidoc-2.10/README", "WAPI documentation\n"},
		{"wapidoc-2.10/objects/network.html", "<html>network</html>\n"},
	}
	if err := tw.WriteHeader(&tar.Header{
		Name: "wapidoc-2.10/", Typeflag: tar.TypeDir, Mode: 0o755,
	}); err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if err := tw.WriteHeader(&tar.Header{
			Name: e.name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(e.body)),
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newListingServer(t *testing.T, archive []byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body>
			<a href="release-notes.txt">release-notes.txt</a>
			<a href="wapidoc-2.10.tar.gz">wapidoc-2.10.tar.gz</a>
		</body></html>`)
	})
	mux.HandleFunc("/wapidoc-2.10.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	return httptest.NewServer(mux)
}

func testConfig(baseURL, destDir string) config.FetchConfig {
	return config.FetchConfig{
		BaseURL:     baseURL,
		DestDir:     destDir,
		LinkPattern: `href="([^"]*wapidoc[^"]*\.tar\.gz)"`,
		Timeout:     10 * time.Second,
	}
}

func TestRun_DownloadAndExtract(t *testing.T) {
	srv := newListingServer(t, buildArchive(t))
	defer srv.Close()

	dest := t.TempDir()
	f, err := New(testConfig(srv.URL, dest), quiet)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !res.Downloaded || !res.Extracted {
		t.Errorf("first run downloaded=%v extracted=%v, want true/true", res.Downloaded, res.Extracted)
	}
	if res.ArchiveName != "wapidoc-2.10.tar.gz" {
		t.Errorf("ArchiveName = %q, want wapidoc-2.10.tar.gz", res.ArchiveName)
	}

	readme := filepath.Join(dest, "wapidoc-2.10", "README")
	data, err := os.ReadFile(readme)
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(data) != "WAPI documentation\n" {
		t.Errorf("README content = %q", data)
	}
}

func TestRun_SkipsExistingArtifacts(t *testing.T) {
	srv := newListingServer(t, buildArchive(t))
	defer srv.Close()

	dest := t.TempDir()
	f, err := New(testConfig(srv.URL, dest), quiet)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := f.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if res.Downloaded || res.Extracted {
		t.Errorf("second run downloaded=%v extracted=%v, want false/false", res.Downloaded, res.Extracted)
	}
}

func TestRun_NoArchiveLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>nothing here</body></html>")
	}))
	defer srv.Close()

	f, err := New(testConfig(srv.URL, t.TempDir()), quiet)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = f.Run(context.Background())
	if !errors.Is(err, ErrNoArchiveLink) {
		t.Fatalf("Run() error = %v, want ErrNoArchiveLink", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(config.FetchConfig{LinkPattern: "x"}, quiet); err == nil {
		t.Error("New() must reject a missing base URL")
	}

	cfg := testConfig("http://example.net", ".")
	cfg.LinkPattern = "(["
	if _, err := New(cfg, quiet); err == nil {
		t.Error("New() must reject an invalid pattern")
	}

	cfg.LinkPattern = "no-capture-group"
	if _, err := New(cfg, quiet); err == nil {
		t.Error("New() must reject a pattern without a capture group")
	}
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := "evil"
	if err := tw.WriteHeader(&tar.Header{
		Name: "../escape.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body)),
	}); err != nil {
		t.Fatal(err)
	}
	tw.Write([]byte(body))
	tw.Close()
	gz.Close()

	dir := t.TempDir()
	archive := filepath.Join(dir, "bad.tar.gz")
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	// The cleaned path lands inside dest, never at dir/escape.txt.
	if err := extractTarGz(archive, dest); err != nil {
		t.Fatalf("extractTarGz() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err == nil {
		t.Error("entry escaped the destination directory")
	}
}

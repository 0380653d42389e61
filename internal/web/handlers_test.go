package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opsforge/gridloader/internal/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			RequestTimeout: 10 * time.Second,
		},
		Ingest: config.IngestConfig{
			ReportEvery: 2500,
			MaxFileSize: 1 << 20,
		},
	}
	return NewServer(cfg, nil)
}

// uploadRequest builds a multipart POST with the CSV body in the file field.
func uploadRequest(t *testing.T, target, field, csv string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "hosts.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(csv)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthz(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", rec.Body.String())
	}
}

func TestIngestUpload(t *testing.T) {
	s := testServer(t)

	csv := "Host_Name,IP_Address,MAC\n" +
		"gw01,10.0.0.1,aa:bb:cc:00:00:01\n" +
		"gw02,10.0.0.2,aa:bb:cc:00:00:02\n" +
		",10.0.0.3,aa:bb:cc:00:00:03\n"

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, "/api/ingest", "file", csv))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID == "" {
		t.Error("response is missing a run ID")
	}
	if resp.FileName != "hosts.csv" {
		t.Errorf("FileName = %q, want hosts.csv", resp.FileName)
	}
	if resp.LinesRead != 3 || resp.Indexed != 2 || resp.Dropped != 1 {
		t.Errorf("summary = read %d / indexed %d / dropped %d, want 3/2/1",
			resp.LinesRead, resp.Indexed, resp.Dropped)
	}
}

func TestIngestUpload_KeyColumnOverride(t *testing.T) {
	s := testServer(t)

	csv := "Host_Name,IP_Address\ngw01,10.0.0.1\n"

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, "/api/ingest?key=ip_address", "file", csv))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestIngestUpload_UnknownKeyColumn(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, "/api/ingest?key=no_such_column", "file", "a,b\n1,2\n"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no_such_column") {
		t.Errorf("error body should name the bad column, got %q", rec.Body.String())
	}
}

func TestIngestUpload_MissingFileField(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, "/api/ingest", "wrong_field", "a,b\n1,2\n"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

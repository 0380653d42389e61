package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/opsforge/gridloader/internal/ingest"
	"github.com/opsforge/gridloader/internal/logging"
)

// ingestResponse is the JSON summary returned for one upload.
type ingestResponse struct {
	RunID      string `json:"runId"`
	FileName   string `json:"fileName"`
	LinesRead  int    `json:"linesRead"`
	Indexed    int    `json:"indexed"`
	Rejected   int    `json:"rejected"`
	Dropped    int    `json:"dropped"`
	DurationMS int64  `json:"durationMs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, map[string]string{"status": "ok"})
}

// handleIngest accepts a multipart CSV upload in the "file" field, ingests
// it, and returns the run summary. The optional "key" query parameter
// overrides the key column.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxFileSize)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(ctx, w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(ctx, w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	keyColumn := r.URL.Query().Get("key")
	if keyColumn == "" {
		keyColumn = s.cfg.Ingest.KeyColumn
	}

	runID := uuid.NewString()
	runLogger := logging.FromContext(ctx).With("run_id", runID, "file", header.Filename)

	res, err := ingest.Ingest(ctx, file, ingest.Options{
		KeyColumn:   keyColumn,
		ReportEvery: s.cfg.Ingest.ReportEvery,
		Sink:        s.sink,
		Logger:      runLogger,
		OnProgress: func(p ingest.Progress) {
			runLogger.Debug("ingestion progress", "records", p.Records)
		},
	})
	if err != nil {
		// A bad key column or unreadable body is the client's doing.
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, w, ingestResponse{
		RunID:      runID,
		FileName:   header.Filename,
		LinesRead:  res.LinesRead,
		Indexed:    res.Indexed,
		Rejected:   res.Rejected,
		Dropped:    res.Dropped,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

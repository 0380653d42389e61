package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
)

// maxLineSize caps a single input line at 1MB. Lines beyond this indicate a
// binary or corrupt source, not CSV data.
const maxLineSize = 1024 * 1024

// Options configures one ingestion call. The zero value ingests into a fresh
// in-memory sink, keyed by the first header column, with no progress output.
type Options struct {
	// KeyColumn names the column whose value keys each record. Empty means
	// the first header column. Matching is case-insensitive.
	KeyColumn string

	// ReportEvery is the progress granularity in records (default 2500).
	ReportEvery int

	// TotalHint is the known number of data lines from a pre-scan of the
	// same source; 0 means unknown and suppresses percentages.
	TotalHint int

	// OnProgress receives periodic progress snapshots. Nil disables
	// progress reporting entirely.
	OnProgress ProgressFunc

	// Sink receives indexed records. Nil means a fresh MemorySink whose
	// index is returned in Result.Index.
	Sink Sink

	// Logger receives malformed-line warnings and the end-of-ingestion
	// summary. Nil means slog.Default().
	Logger *slog.Logger
}

// Result is what one ingestion call produced.
type Result struct {
	// Index holds the full result when the default in-memory sink was
	// used; nil when records went to a caller-supplied sink.
	Index ResultIndex

	LinesRead int // data lines read (header and blank lines excluded)
	Indexed   int // records inserted into the sink
	Rejected  int // malformed lines skipped
	Dropped   int // records dropped for a missing key value
}

// Ingest reads comma-delimited records from r, binds them to the schema
// taken from the first line, and inserts each into the sink keyed by the
// designated column's value. The caller owns r and must close it.
//
// Malformed lines are warned about and counted, never fatal. A record whose
// key column carries no value is dropped silently. A key collision is
// resolved by suffixing the physical line number, so insertion never
// overwrites an earlier record.
func Ingest(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var mem *MemorySink
	sink := opts.Sink
	if sink == nil {
		mem = NewMemorySink()
		sink = mem
	}

	rep := newReporter(opts.ReportEvery, opts.TotalHint, opts.OnProgress)
	res := &Result{}

	var schema Schema
	keyIdx := -1

	scanner := bufio.NewScanner(newBOMSkipReader(r))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		fields, err := parseLine(scanner.Text())
		if err != nil {
			res.Rejected++
			logger.Warn("malformed line skipped", "line", lineNo, "reason", err)
			continue
		}
		if fields == nil {
			continue // blank line: not data, not a rejection
		}

		if schema == nil {
			schema = bindHeader(fields)
			if opts.KeyColumn == "" {
				keyIdx = 0
			} else if keyIdx = schema.keyIndex(opts.KeyColumn); keyIdx < 0 {
				return nil, fmt.Errorf("key column %q not in header", opts.KeyColumn)
			}
			continue
		}

		res.LinesRead++
		rec := schema.bind(fields)

		keyVal, ok := rec[schema[keyIdx]]
		if !ok || keyVal.IsEmpty() {
			res.Dropped++
			rep.observe(res.LinesRead)
			continue
		}

		key := keyVal.String()
		if _, exists, err := sink.Get(ctx, key); err != nil {
			return nil, fmt.Errorf("sink lookup for %q: %w", key, err)
		} else if exists {
			// Later occurrence gets the suffix; the earlier record keeps
			// the bare key. A genuine key of the same shape can still
			// collide with this; accepted.
			key = key + "-" + strconv.Itoa(lineNo)
		}

		if err := sink.Put(ctx, key, rec); err != nil {
			return nil, fmt.Errorf("sink insert for %q: %w", key, err)
		}
		res.Indexed++
		rep.observe(res.LinesRead)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	if mem != nil {
		res.Index = mem.Index()
	}

	logger.Info("ingestion complete",
		"lines", res.LinesRead,
		"indexed", res.Indexed,
		"rejected", res.Rejected,
		"dropped", res.Dropped,
	)
	return res, nil
}

// IngestFile opens path, pre-scans it to size the progress total, ingests
// it, and closes it on every exit path. An unopenable source is fatal to the
// call; nothing partial is returned.
func IngestFile(ctx context.Context, path string, opts Options) (*Result, error) {
	if opts.TotalHint == 0 {
		total, err := countFileLines(path)
		if err != nil {
			return nil, fmt.Errorf("source unavailable: %w", err)
		}
		if total > 0 {
			opts.TotalHint = total - 1 // exclude the header line
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source unavailable: %w", err)
	}
	defer f.Close()

	return Ingest(ctx, f, opts)
}

func countFileLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return CountLines(f)
}

// CountLines counts the lines in r. Used as the pre-scan that sizes the
// progress reporter's total.
func CountLines(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

package ingest

// DefaultReportEvery is the progress reporting granularity when the caller
// does not configure one.
const DefaultReportEvery = 2500

// Progress is a point-in-time progress snapshot handed to a ProgressFunc.
type Progress struct {
	Records int // records indexed so far
	Total   int // known total from a pre-scan, 0 if unknown
}

// Percent returns progress as 0-100, or 0 when the total is unknown.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Records * 100 / p.Total
}

// ProgressFunc is called periodically during ingestion.
type ProgressFunc func(Progress)

// reporter emits progress on an exact multiple of the granularity, or when
// the count reaches the known total, whichever comes first. With no
// callback it is a no-op, which is how verbosity gating is realized.
type reporter struct {
	every int
	total int
	fn    ProgressFunc
}

func newReporter(every, total int, fn ProgressFunc) *reporter {
	if every <= 0 {
		every = DefaultReportEvery
	}
	return &reporter{every: every, total: total, fn: fn}
}

func (r *reporter) observe(count int) {
	if r.fn == nil || count <= 0 {
		return
	}
	if count%r.every == 0 || (r.total > 0 && count == r.total) {
		r.fn(Progress{Records: count, Total: r.total})
	}
}

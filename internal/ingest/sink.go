package ingest

import "context"

// Sink receives indexed records. The indexer is agnostic to whether results
// live in memory or in a persistent store; it only needs Put and Get.
// Get is used to detect key collisions before insertion.
type Sink interface {
	Put(ctx context.Context, key string, rec Record) error
	Get(ctx context.Context, key string) (Record, bool, error)
}

// MemorySink is the default sink: a plain map. It doubles as the returned
// ResultIndex for callers that want the whole index in memory.
type MemorySink struct {
	index ResultIndex
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{index: make(ResultIndex)}
}

// Put stores the record under key.
func (m *MemorySink) Put(_ context.Context, key string, rec Record) error {
	m.index[key] = rec
	return nil
}

// Get looks up a previously stored record.
func (m *MemorySink) Get(_ context.Context, key string) (Record, bool, error) {
	rec, ok := m.index[key]
	return rec, ok, nil
}

// Index returns the accumulated result index. The caller owns it afterwards.
func (m *MemorySink) Index() ResultIndex {
	return m.index
}

// ResultIndex maps a derived key to its record. Key uniqueness is enforced
// by the indexer, never by the input data.
type ResultIndex map[string]Record

// Equal compares two result indexes key by key, field by field.
func (ri ResultIndex) Equal(o ResultIndex) bool {
	if len(ri) != len(o) {
		return false
	}
	for k, rec := range ri {
		orec, ok := o[k]
		if !ok || !rec.Equal(orec) {
			return false
		}
	}
	return true
}

package ingest

import "strings"

// Schema is the ordered list of lower-cased field names taken from the
// header line. It is fixed once bound and discarded when ingestion returns.
type Schema []string

// bindHeader builds the schema from the first successfully parsed line.
// Header values are lower-cased regardless of input case.
func bindHeader(fields []string) Schema {
	s := make(Schema, len(fields))
	for i, f := range fields {
		s[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return s
}

// keyIndex returns the position of the named column, or -1 if the schema
// does not contain it. Matching is case-insensitive.
func (s Schema) keyIndex(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, f := range s {
		if f == name {
			return i
		}
	}
	return -1
}

// bind zips the schema against one line's field values positionally.
// Fields beyond the schema length are ignored; schema columns beyond the
// line length stay absent from the record.
func (s Schema) bind(fields []string) Record {
	rec := make(Record, len(s))
	for i, name := range s {
		if i >= len(fields) {
			break
		}
		rec[name] = Text(fields[i])
	}
	return rec
}

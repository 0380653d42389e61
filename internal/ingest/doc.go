// Package ingest implements delimited-record ingestion and key-indexing.
//
// A source file is a text file with CRLF or LF line endings, comma-delimited
// fields, optional double-quote wrapping, and optional blank lines. The first
// non-blank line is the header; its lower-cased field names form the schema
// for every following data line. Each data line is bound to the schema and
// inserted into a keyed index under the value of a designated key column.
//
// Ingestion is single-threaded and synchronous. Malformed lines are counted
// and skipped; ingestion always continues to the next line.
package ingest

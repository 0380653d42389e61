package ingest

import (
	"errors"
	"strings"
)

// escMarker is the reserved escape character. Any character following it is
// taken literally by the tokenizer. Literal backticks in user data are
// doubled during preprocessing so they survive as data.
const escMarker = '`'

// Parser failure modes. Both classify a line as malformed; the indexer
// counts the line as rejected and continues.
var (
	ErrUnterminatedQuote = errors.New("unterminated quoted segment")
	ErrDanglingEscape    = errors.New("dangling escape at end of line")
)

// prepareLine normalizes one raw line before tokenization. The steps run in
// this exact order because later substitutions depend on earlier ones:
//
//  1. strip trailing CR/LF, whatever the source OS used
//  2. double literal backticks so user data cannot be read as escapes
//  3. four quotes -> two escaped quotes (doubled-escaped-quote exports)
//  4. three quotes -> one bare quote (quoted field ending in a quoted value)
//  5. two quotes -> one escaped quote (standard CSV doubled-quote rule)
func prepareLine(raw string) string {
	line := strings.TrimRight(raw, "\r\n")
	line = strings.ReplaceAll(line, "`", "``")
	line = strings.ReplaceAll(line, `""""`, "`\"`\"")
	line = strings.ReplaceAll(line, `"""`, `"`)
	line = strings.ReplaceAll(line, `""`, "`\"")
	return line
}

// parseLine tokenizes one raw line into its ordered field values.
//
// Fields are comma-separated. A double quote toggles quoted mode; quoting is
// loose, so a quoted segment may cover only part of a field. The escape
// marker protects the next character, including quotes and commas, from
// structural interpretation.
//
// A blank line (empty after CR/LF stripping) returns (nil, nil): skipped,
// neither data nor malformed. A line that ends inside a quoted segment or
// with a trailing escape marker is malformed.
func parseLine(raw string) ([]string, error) {
	line := prepareLine(raw)
	if line == "" {
		return nil, nil
	}

	var fields []string
	var buf strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == escMarker:
			i++
			if i >= len(line) {
				return nil, ErrDanglingEscape
			}
			buf.WriteByte(line[i])
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, buf.String())
			buf.Reset()
		default:
			buf.WriteByte(c)
		}
	}

	if inQuotes {
		return nil, ErrUnterminatedQuote
	}

	fields = append(fields, buf.String())
	return fields, nil
}

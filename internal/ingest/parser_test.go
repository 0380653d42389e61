package ingest

import (
	"errors"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "plain fields",
			input: "a,b,c",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "trailing CRLF stripped",
			input: "a,b,c\r\n",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "quoted field with comma",
			input: `a,"b,c",d`,
			want:  []string{"a", "b,c", "d"},
		},
		{
			name:  "doubled quote becomes literal quote",
			input: `a,"b""c",d`,
			want:  []string{"a", `b"c`, "d"},
		},
		{
			name:  "quadrupled quotes become two literal quotes",
			input: `a,"b""""c",d`,
			want:  []string{"a", `b""c`, "d"},
		},
		{
			name:  "tripled quote closes a quoted field ending in a quoted value",
			input: `a,"b""",c`,
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "loose quoting inside a field",
			input: `pre"quoted,part"post,b`,
			want:  []string{"prequoted,partpost", "b"},
		},
		{
			name:  "literal backtick survives as data",
			input: "a,b`tick,c",
			want:  []string{"a", "b`tick", "c"},
		},
		{
			name:  "empty fields kept",
			input: "a,,c,",
			want:  []string{"a", "", "c", ""},
		},
		{
			name:  "single field",
			input: "alone",
			want:  []string{"alone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.input)
			if err != nil {
				t.Fatalf("parseLine(%q) error = %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseLine(%q) = %q, want %q", tt.input, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "unterminated quote",
			input:   `a,"b,c`,
			wantErr: ErrUnterminatedQuote,
		},
		{
			name:    "lone opening quote",
			input:   `"abc`,
			wantErr: ErrUnterminatedQuote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseLine(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseLine(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseLine_BlankSkipped(t *testing.T) {
	for _, input := range []string{"", "\r\n", "\n"} {
		fields, err := parseLine(input)
		if err != nil {
			t.Fatalf("parseLine(%q) error = %v", input, err)
		}
		if fields != nil {
			t.Errorf("parseLine(%q) = %q, want nil (blank skip)", input, fields)
		}
	}
}

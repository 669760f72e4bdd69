package parser

import (
	"context"
	"io"
	"strings"

	"github.com/logflow/tablelog/pkg/source"
)

// ctxCheckInterval is how many records are read between cancellation checks.
const ctxCheckInterval = 1024

// CSVLoader reads CSV logs with the FSM scanner.
type CSVLoader struct {
	cfg Config
}

// NewCSVLoader creates a new CSV loader.
func NewCSVLoader(cfg Config) *CSVLoader {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &CSVLoader{cfg: cfg}
}

// Load implements the Loader interface. Gzip files are decompressed.
func (l *CSVLoader) Load(ctx context.Context, path string) (*Table, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return l.Read(ctx, rc)
}

// Read parses a CSV document from r.
//
// Blank lines are skipped. The simulator appends to its log and writes a
// header on every run, so rows equal to the header are skipped as well.
func (l *CSVLoader) Read(ctx context.Context, r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = NormalizeLineEndings(SanitizeUTF8(data))

	sc := NewCSVScanner(data, l.cfg.Delimiter)

	var header []string
	for {
		fields, ok := sc.Next()
		if !ok {
			return nil, ErrEmptyInput
		}
		if !isBlank(fields) {
			header = trimAll(fields)
			break
		}
	}

	t := &Table{Header: header}
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ErrContextCanceled
			default:
			}
		}

		fields, ok := sc.Next()
		if !ok {
			break
		}
		if isBlank(fields) || isHeader(fields, header) {
			continue
		}
		t.Rows = append(t.Rows, fields)
	}
	return t, nil
}

func trimAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}

func isHeader(fields, header []string) bool {
	if len(fields) != len(header) {
		return false
	}
	for i, f := range fields {
		if strings.TrimSpace(f) != header[i] {
			return false
		}
	}
	return true
}

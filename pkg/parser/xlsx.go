package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/tablelog/pkg/source"
)

// XLSXLoader reads Excel workbooks.
type XLSXLoader struct {
	cfg Config
}

// NewXLSXLoader creates a new XLSX loader.
func NewXLSXLoader(cfg Config) *XLSXLoader {
	return &XLSXLoader{cfg: cfg}
}

// Load implements the Loader interface.
func (l *XLSXLoader) Load(ctx context.Context, path string) (*Table, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return l.Read(ctx, rc)
}

// Read parses a workbook from r. excelize needs random access, so the
// workbook is buffered in memory.
func (l *XLSXLoader) Read(ctx context.Context, r io.Reader) (*Table, error) {
	xlFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xlFile.Close()

	sheetName := l.cfg.Sheet
	if sheetName == "" {
		sheetList := xlFile.GetSheetList()
		if len(sheetList) == 0 {
			return nil, ErrNoSheets
		}
		sheetName = sheetList[0]
	}

	rows, err := xlFile.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", sheetName, err)
	}
	defer rows.Close()

	var header []string
	for header == nil {
		if !rows.Next() {
			return nil, ErrEmptyInput
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		if !isBlank(cols) && len(cols) > 0 {
			header = trimAll(cols)
		}
	}

	t := &Table{Header: header}
	for n := 0; rows.Next(); n++ {
		if n%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ErrContextCanceled
			default:
			}
		}

		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", n+2, err)
		}
		// Trailing empty cells are omitted by excelize; Table.Cell pads them.
		if len(cols) == 0 || isBlank(cols) || isHeader(cols, t.Header) {
			continue
		}
		t.Rows = append(t.Rows, cols)
	}
	return t, rows.Error()
}

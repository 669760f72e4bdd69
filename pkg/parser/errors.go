package parser

import "errors"

var (
	// ErrUnsupportedFormat is returned when the input format is not supported.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// ErrEmptyInput is returned when the input has no header row.
	ErrEmptyInput = errors.New("parser: input has no header")

	// ErrNoSheets is returned when an XLSX workbook has no sheets.
	ErrNoSheets = errors.New("parser: no sheets found in xlsx file")

	// ErrContextCanceled is returned when the context is canceled.
	ErrContextCanceled = errors.New("parser: context canceled")
)

package parser

import (
	"bytes"
	"unicode/utf8"
)

// CSVState represents the current state of the CSV state machine.
type CSVState uint8

const (
	// StateFieldStart indicates we're at the start of a field.
	StateFieldStart CSVState = iota
	// StateInField indicates we're inside an unquoted field.
	StateInField
	// StateInQuotedField indicates we're inside a quoted field.
	StateInQuotedField
	// StateQuoteInQuotedField indicates we encountered a quote inside a quoted field.
	StateQuoteInQuotedField
)

// CSVScanner splits a buffer into records using a finite state machine.
// Quoted fields may contain delimiters, escaped quotes ("") and newlines.
// Line endings must already be normalized to \n.
type CSVScanner struct {
	delimiter byte
	data      []byte
	pos       int
	state     CSVState
	buf       []byte
	line      int
	embedded  int
}

// NewCSVScanner creates a scanner over data.
func NewCSVScanner(data []byte, delimiter byte) *CSVScanner {
	return &CSVScanner{
		delimiter: delimiter,
		data:      data,
		buf:       make([]byte, 0, 256),
	}
}

// Line returns the 1-based input line on which the last record started.
func (s *CSVScanner) Line() int {
	return s.line
}

// Next returns the next record. ok is false at end of input.
// A blank line yields a record with a single empty field.
func (s *CSVScanner) Next() (fields []string, ok bool) {
	if s.pos >= len(s.data) {
		return nil, false
	}

	s.line += 1 + s.pendingNewlines()
	s.state = StateFieldStart
	s.buf = s.buf[:0]
	fields = make([]string, 0, 8)

	emit := func() {
		fields = append(fields, string(s.buf))
		s.buf = s.buf[:0]
	}

	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++

		switch s.state {
		case StateFieldStart:
			switch c {
			case '"':
				s.state = StateInQuotedField
			case s.delimiter:
				emit()
			case '\n':
				emit()
				return fields, true
			default:
				s.buf = append(s.buf, c)
				s.state = StateInField
			}

		case StateInField:
			switch c {
			case s.delimiter:
				emit()
				s.state = StateFieldStart
			case '\n':
				emit()
				return fields, true
			default:
				s.buf = append(s.buf, c)
			}

		case StateInQuotedField:
			if c == '"' {
				s.state = StateQuoteInQuotedField
			} else {
				if c == '\n' {
					s.embedded++
				}
				s.buf = append(s.buf, c)
			}

		case StateQuoteInQuotedField:
			switch c {
			case '"':
				// Escaped quote.
				s.buf = append(s.buf, '"')
				s.state = StateInQuotedField
			case s.delimiter:
				emit()
				s.state = StateFieldStart
			case '\n':
				emit()
				return fields, true
			default:
				// Text after a closing quote is kept, as most spreadsheet tools do.
				s.buf = append(s.buf, c)
				s.state = StateInField
			}
		}
	}

	// End of input terminates the last field, including an unterminated quote.
	emit()
	return fields, true
}

// pendingNewlines returns and clears the count of newlines consumed inside
// quoted fields of the previous record.
func (s *CSVScanner) pendingNewlines() int {
	n := s.embedded
	s.embedded = 0
	return n
}

// isBlank reports whether a record came from an empty line.
func isBlank(fields []string) bool {
	return len(fields) == 0 || (len(fields) == 1 && fields[0] == "")
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NormalizeLineEndings normalizes \r\n and \r to \n in-place.
// Returns the normalized byte slice (may be shorter than input).
func NormalizeLineEndings(data []byte) []byte {
	if bytes.IndexByte(data, '\r') < 0 {
		return data
	}

	j := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\r' {
			data[j] = '\n'
			j++
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
		} else {
			data[j] = data[i]
			j++
		}
	}
	return data[:j]
}

// SanitizeUTF8 drops a leading byte order mark and replaces invalid UTF-8
// sequences with the replacement character.
func SanitizeUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("�"))
}

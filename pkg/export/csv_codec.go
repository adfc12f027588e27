package export

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EscapeField quotes a value containing a comma, a double quote or a line
// break (LF or CR), doubling embedded quotes. Other values are returned untouched.
func EscapeField(value string) string {
	if !strings.ContainsAny(value, ",\"\n\r") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// JoinRecord escapes and comma-joins fields into one record.
func JoinRecord(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = EscapeField(f)
	}
	return strings.Join(escaped, ",")
}

// SplitRecord is the inverse of JoinRecord. Each quote toggles the quoted state;
// a doubled quote inside a quoted section yields one literal quote. Commas only
// separate fields outside quotes.
func SplitRecord(record string) ([]string, error) {
	fields := make([]string, 0, 8)
	var current strings.Builder
	inQuotes := false
	runes := []rune(record)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted field")
	}
	fields = append(fields, current.String())
	return fields, nil
}

// MaxRecordSize bounds one logical record. Longer records are consumed and
// reported through RecordErr rather than failing the whole read.
const MaxRecordSize = 4 * 1024 * 1024

// ErrRecordTooLong marks a record that exceeded the scanner limit.
var ErrRecordTooLong = errors.New("record exceeds maximum size")

// RecordScanner yields logical records from a reader. A line break inside a
// quoted field continues the record onto the next physical line and is kept
// verbatim, CR included. The CR of a CRLF record terminator is dropped.
type RecordScanner struct {
	reader *bufio.Reader
	limit  int
	record string
	line   int
	start  int
	recErr error
	err    error
}

// NewRecordScanner wraps r with the MaxRecordSize limit.
func NewRecordScanner(r io.Reader) *RecordScanner {
	return NewRecordScannerSize(r, MaxRecordSize)
}

// NewRecordScannerSize wraps r with a custom record limit.
func NewRecordScannerSize(r io.Reader, limit int) *RecordScanner {
	if limit <= 0 {
		limit = MaxRecordSize
	}
	return &RecordScanner{reader: bufio.NewReader(r), limit: limit}
}

// Scan advances to the next record, returning false at EOF or on a read error.
func (s *RecordScanner) Scan() bool {
	s.record, s.recErr = "", nil
	var (
		buf      []byte
		open     bool
		midLine  bool
		consumed bool
	)
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if len(chunk) > 0 {
			if !midLine {
				s.line++
				if !consumed {
					s.start = s.line
				}
				midLine = true
			}
			consumed = true
			if bytes.Count(chunk, []byte{'"'})%2 == 1 {
				open = !open
			}
			buf = s.keep(buf, chunk)
			if chunk[len(chunk)-1] == '\n' {
				midLine = false
				if !open {
					s.finish(buf)
					return true
				}
			}
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if consumed {
				s.finish(buf)
				return true
			}
			return false
		default:
			s.err = err
			return false
		}
	}
}

func (s *RecordScanner) keep(buf, chunk []byte) []byte {
	if s.recErr != nil {
		return buf
	}
	if len(buf)+len(chunk) > s.limit {
		s.recErr = fmt.Errorf("%w (%d bytes)", ErrRecordTooLong, s.limit)
		return buf
	}
	return append(buf, chunk...)
}

func (s *RecordScanner) finish(buf []byte) {
	if s.recErr != nil {
		return
	}
	buf = bytes.TrimSuffix(buf, []byte{'\n'})
	buf = bytes.TrimSuffix(buf, []byte{'\r'})
	s.record = string(buf)
}

// Text returns the current logical record.
func (s *RecordScanner) Text() string { return s.record }

// Line returns the physical line number on which the current record starts.
func (s *RecordScanner) Line() int { return s.start }

// RecordErr reports why the current record could not be captured, such as
// ErrRecordTooLong. Scanning can continue past it.
func (s *RecordScanner) RecordErr() error { return s.recErr }

// Err returns the first read error.
func (s *RecordScanner) Err() error { return s.err }

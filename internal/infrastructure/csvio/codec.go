// Package csvio encodes and decodes student records in the CSV exchange
// format:
//
//	ID,Name,Age,Grade,Date,Courses
//	<id>,<name>,<age>,<grade:2dp>,<YYYY-MM-DD>,<code1;code2;...>
//
// Input may start with a UTF-8 BOM. Grades are always written with a '.'
// decimal point, independent of locale.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alem-hub/student-records/internal/domain/shared"
	"github.com/alem-hub/student-records/internal/domain/student"
	"github.com/alem-hub/student-records/pkg/timeutil"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Header is the column layout of the exchange format.
var Header = []string{"ID", "Name", "Age", "Grade", "Date", "Courses"}

// CourseSeparator joins course codes inside the Courses column.
const CourseSeparator = ";"

// ErrMalformedRecord is returned for a record that cannot be turned into a student.
var ErrMalformedRecord = shared.NewDomainError("csv", "Parse", shared.ErrValidation, "malformed record")

// ══════════════════════════════════════════════════════════════════════════════
// ENCODING
// ══════════════════════════════════════════════════════════════════════════════

// Writer writes students as CSV records.
type Writer struct {
	w *csv.Writer
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// WriteHeader writes the header line.
func (w *Writer) WriteHeader() error {
	return w.w.Write(Header)
}

// Write writes one student.
func (w *Writer) Write(s *student.Student) error {
	return w.w.Write(EncodeRecord(s))
}

// Flush writes buffered data and reports any error from earlier writes.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// EncodeRecord converts a student to its CSV fields.
func EncodeRecord(s *student.Student) []string {
	return []string{
		s.ID(),
		s.Name(),
		strconv.Itoa(s.Age()),
		strconv.FormatFloat(s.Grade(), 'f', 2, 64),
		timeutil.FormatDate(s.EnrollmentDate()),
		strings.Join(s.Courses(), CourseSeparator),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING
// ══════════════════════════════════════════════════════════════════════════════

// Record is one raw CSV record with its position in the input.
type Record struct {
	Line   int
	Fields []string
}

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// Reader reads raw records line by line, dropping a leading BOM and the
// header line. Each physical line is parsed on its own, so a broken quote
// cannot swallow the lines after it.
type Reader struct {
	scanner    *bufio.Scanner
	line       int
	headerSeen bool
}

// NewReader creates a Reader on r.
func NewReader(r io.Reader) *Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &Reader{scanner: scanner}
}

// Read returns the next record. A *csv.ParseError affects only the current
// line and reading may continue; any other error ends the input.
// Blank lines are skipped. io.EOF is returned at the end of input.
func (r *Reader) Read() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields, err := parseLine(text)
		if err != nil {
			r.headerSeen = true
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				lineErr := *parseErr
				lineErr.StartLine, lineErr.Line = r.line, r.line
				return Record{Line: r.line}, &lineErr
			}
			return Record{Line: r.line}, err
		}

		if !r.headerSeen {
			r.headerSeen = true
			if len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), Header[0]) {
				continue
			}
		}

		return Record{Line: r.line, Fields: fields}, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

func parseLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.Read()
}

// ParseRecord converts exactly six fields into restore parameters.
// An empty Date field means today; an empty Courses field means no courses.
func ParseRecord(fields []string) (student.RestoreParams, error) {
	if len(fields) != len(Header) {
		return student.RestoreParams{}, malformed("expected %d fields, got %d", len(Header), len(fields))
	}

	age, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return student.RestoreParams{}, malformed("invalid age %q", fields[2])
	}

	grade, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return student.RestoreParams{}, malformed("invalid grade %q", fields[3])
	}

	params := student.RestoreParams{
		ID:    strings.TrimSpace(fields[0]),
		Name:  fields[1],
		Age:   age,
		Grade: grade,
	}

	if raw := strings.TrimSpace(fields[4]); raw != "" {
		date, err := timeutil.ParseISODate(raw)
		if err != nil {
			return student.RestoreParams{}, malformed("invalid date %q", fields[4])
		}
		params.EnrollmentDate = date
	}

	for _, code := range strings.Split(fields[5], CourseSeparator) {
		if code = strings.TrimSpace(code); code != "" {
			params.Courses = append(params.Courses, code)
		}
	}

	return params, nil
}

// DecodeRecord parses and validates a record into a Student.
func DecodeRecord(fields []string) (*student.Student, error) {
	params, err := ParseRecord(fields)
	if err != nil {
		return nil, err
	}
	return student.Restore(params)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}

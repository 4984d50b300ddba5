// Package imports parses fitment rows pasted from spreadsheets or CSV files.
package imports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"go.uber.org/multierr"

	"github.com/introcar/introcar-backend/pkg/chassis"
)

// Column names a recognized import field.
type Column string

const (
	ColumnSKU   Column = "sku"
	ColumnMake  Column = "make"
	ColumnModel Column = "model"
	ColumnStart Column = "start"
	ColumnEnd   Column = "end"
	ColumnInfo  Column = "info"
)

// ErrNoHeader is returned when the first line has no recognizable SKU column.
var ErrNoHeader = errors.New("import header must include a sku column")

// Row is one parsed fitment record.
type Row struct {
	Line           int     `json:"line"`
	SKU            string  `json:"sku"`
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	ChassisStart   *string `json:"chassisStart,omitempty"`
	ChassisEnd     *string `json:"chassisEnd,omitempty"`
	AdditionalInfo *string `json:"additionalInfo,omitempty"`
}

// RowError rejects one input line.
type RowError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s %s", e.Line, e.Field, e.Message)
}

// Options supplies values for columns absent from the input.
type Options struct {
	DefaultMake  string
	DefaultModel string
}

// Result is the outcome of a parse. Rows and Errors are disjoint.
type Result struct {
	Delimiter rune           `json:"-"`
	Columns   map[Column]int `json:"-"`
	Rows      []Row          `json:"rows"`
	Errors    []RowError     `json:"errors,omitempty"`
}

// Err combines every row error, or nil when all rows parsed.
func (r Result) Err() error {
	var err error
	for _, rowErr := range r.Errors {
		err = multierr.Append(err, rowErr)
	}
	return err
}

// DetectDelimiter picks tab or comma by counting both in the first line.
func DetectDelimiter(text string) rune {
	first := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		first = text[:i]
	}
	if strings.Count(first, "\t") >= strings.Count(first, ",") && strings.Contains(first, "\t") {
		return '\t'
	}
	return ','
}

// Parse reads a header line followed by data rows.
func Parse(text string, opts Options) (Result, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return Result{}, errors.New("import data is empty")
	}

	delim := DetectDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	// Tabs count as leading space, so trimming would swallow empty cells.
	reader.TrimLeadingSpace = delim != '\t'

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("reading import header: %w", err)
	}
	columns := DetectColumns(header)
	if _, ok := columns[ColumnSKU]; !ok {
		return Result{}, ErrNoHeader
	}

	res := Result{Delimiter: delim, Columns: columns}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			line := 0
			if errors.As(err, &parseErr) {
				line = parseErr.StartLine
			}
			res.Errors = append(res.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		line, _ := reader.FieldPos(0)
		if blank(fields) {
			continue
		}
		row, rowErrs := buildRow(line, fields, columns, opts)
		if len(rowErrs) > 0 {
			res.Errors = append(res.Errors, rowErrs...)
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func buildRow(line int, fields []string, columns map[Column]int, opts Options) (Row, []RowError) {
	get := func(c Column) string {
		i, ok := columns[c]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	row := Row{
		Line:  line,
		SKU:   strings.ToUpper(get(ColumnSKU)),
		Make:  get(ColumnMake),
		Model: get(ColumnModel),
	}
	if row.Make == "" {
		row.Make = strings.TrimSpace(opts.DefaultMake)
	}
	if row.Model == "" {
		row.Model = strings.TrimSpace(opts.DefaultModel)
	}
	row.ChassisStart = optional(chassis.Normalize(get(ColumnStart)))
	row.ChassisEnd = optional(chassis.Normalize(get(ColumnEnd)))
	row.AdditionalInfo = optional(get(ColumnInfo))

	var errs []RowError
	if row.SKU == "" {
		errs = append(errs, RowError{Line: line, Field: "sku", Message: "is required"})
	}
	if row.Make == "" {
		errs = append(errs, RowError{Line: line, Field: "make", Message: "is required"})
	}
	if row.Model == "" {
		errs = append(errs, RowError{Line: line, Field: "model", Message: "is required"})
	}
	if err := chassis.NewInterval(row.ChassisStart, row.ChassisEnd).Validate(); err != nil {
		errs = append(errs, RowError{Line: line, Field: "chassisStart", Message: err.Error()})
	}
	return row, errs
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// DetectColumns maps header cells to fields using loose name matching, so
// "Parent SKU", "Chassis Start" or "Additional Info" are all recognized.
// The first cell matching a field wins.
func DetectColumns(header []string) map[Column]int {
	columns := make(map[Column]int)
	for i, cell := range header {
		col, ok := classify(cell)
		if !ok {
			continue
		}
		if _, taken := columns[col]; !taken {
			columns[col] = i
		}
	}
	return columns
}

func classify(cell string) (Column, bool) {
	name := headerWords(cell)
	words := strings.Fields(name)
	has := func(w string) bool {
		for _, word := range words {
			if word == w {
				return true
			}
		}
		return false
	}

	switch {
	case strings.Contains(name, "sku") || name == "part" || name == "part number" || name == "part no":
		return ColumnSKU, true
	case has("start") || has("from"):
		return ColumnStart, true
	case has("end") || has("to"):
		return ColumnEnd, true
	case strings.Contains(name, "info") || strings.Contains(name, "note") || strings.Contains(name, "comment"):
		return ColumnInfo, true
	case strings.Contains(name, "make"):
		return ColumnMake, true
	case strings.Contains(name, "model"):
		return ColumnModel, true
	}
	return "", false
}

// headerWords lowercases, replaces punctuation with spaces and splits
// camel case, so "ChassisEnd" becomes "chassis end".
func headerWords(cell string) string {
	var b strings.Builder
	prev := ' '
	for _, r := range strings.TrimSpace(cell) {
		switch {
		case unicode.IsUpper(r):
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteRune(' ')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
		prev = r
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

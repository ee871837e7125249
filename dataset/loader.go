package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// Frame holds the survey rows as validated raw strings, before imputation.
// Rows are in Schema column order and missing cells are "".
type Frame struct {
	// Source names the input in error messages.
	Source string

	// Rows holds one slice of len(Schema) cells per data row.
	Rows [][]string

	// Lines holds the 1-based source line of every row.
	Lines []int
}

// Len returns the number of data rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Column returns the cells of the named column, or nil if it is not in Schema.
func (f *Frame) Column(name string) []string {
	j := schemaIndex(name)
	if j < 0 {
		return nil
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[j]
	}
	return out
}

// MissingCounts returns the number of missing cells per Schema column.
func (f *Frame) MissingCounts() map[string]int {
	counts := make(map[string]int, len(Schema))
	for _, c := range Schema {
		counts[c.Name] = 0
	}
	for _, row := range f.Rows {
		for j, cell := range row {
			if cell == "" {
				counts[Schema[j].Name]++
			}
		}
	}
	return counts
}

func schemaIndex(name string) int {
	for j, c := range Schema {
		if c.Name == name {
			return j
		}
	}
	return -1
}

// Load reads the survey CSV at path.
//
// A missing path, or one that is not a regular file, yields a
// *errors.FileNotFoundError. Malformed content
// (missing required column, ragged row, a cell that does not parse for its
// column kind) yields a *errors.ParseError carrying the line and column.
func Load(path string) (*Frame, error) {
	info, err := os.Stat(path)
	if err != nil {
		if personaErrors.Is(err, fs.ErrNotExist) {
			return nil, personaErrors.NewFileNotFoundError(path, err)
		}
		return nil, personaErrors.Wrapf(err, "stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil, personaErrors.NewFileNotFoundError(path, nil)
	}

	file, err := os.Open(path)
	if err != nil {
		if personaErrors.Is(err, fs.ErrNotExist) {
			return nil, personaErrors.NewFileNotFoundError(path, err)
		}
		return nil, personaErrors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadReader(file, path)
}

// LoadReader reads survey CSV content from r. name is used in error messages.
func LoadReader(r io.Reader, name string) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, personaErrors.NewParseError(name, 1, "", "missing header row", err)
	}
	if err != nil {
		return nil, csvError(name, err)
	}

	positions, err := mapHeader(name, header)
	if err != nil {
		return nil, err
	}

	frame := &Frame{Source: name}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		line, _ := reader.FieldPos(0)

		row := make([]string, len(Schema))
		for j, c := range Schema {
			cell := strings.TrimSpace(record[positions[j]])
			if IsMissing(cell) {
				continue
			}
			if reason := checkCell(c, cell); reason != "" {
				return nil, personaErrors.NewParseError(name, line, c.Name, reason, nil)
			}
			row[j] = cell
		}
		frame.Rows = append(frame.Rows, row)
		frame.Lines = append(frame.Lines, line)
	}
	return frame, nil
}

// mapHeader returns, for every Schema column, its position in header.
func mapHeader(name string, header []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[h]; dup && h != "" {
			return nil, personaErrors.NewParseError(name, 1, h, "duplicate column", nil)
		}
		index[h] = i
	}

	positions := make([]int, len(Schema))
	for j, c := range Schema {
		i, ok := index[c.Name]
		if !ok {
			return nil, personaErrors.NewParseError(name, 1, c.Name, "required column is missing", nil)
		}
		positions[j] = i
	}
	return positions, nil
}

// checkCell returns why cell is invalid for c, or "" when it parses.
func checkCell(c Column, cell string) string {
	switch c.Kind {
	case KindNumeric:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsInf(v, 0) {
			return fmt.Sprintf("invalid numeric value %q", cell)
		}
	case KindFlag:
		if _, ok := ParseFlag(cell); !ok {
			return fmt.Sprintf("flag must be %s or %s, got %q", FlagYes, FlagNo, cell)
		}
	case KindLabel:
		if _, ok := ParseLabel(cell); !ok {
			return fmt.Sprintf("label must be %s or %s, got %q", LabelExtrovert, LabelIntrovert, cell)
		}
	}
	return ""
}

// csvError converts an encoding/csv failure into a ParseError.
func csvError(name string, err error) error {
	var pe *csv.ParseError
	if personaErrors.As(err, &pe) {
		return personaErrors.NewParseError(name, pe.Line, "", pe.Err.Error(), err)
	}
	return personaErrors.Wrapf(err, "read %s", name)
}

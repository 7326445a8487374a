// Package tabular reads the header-addressed CSV files the catalogs are
// distributed as.
package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// contextCheckInterval is how often, in rows, cancellation is checked.
const contextCheckInterval = 1000

// Record is one data row addressed by lower-cased header names.
type Record struct {
	Line   int
	fields []string
	index  map[string]int
}

func (r Record) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// Float parses a finite number; NaN and infinities are rejected.
func (r Record) Float(column string) (float64, error) {
	v, err := strconv.ParseFloat(r.Get(column), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", r.Line, column, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("line %d: column %s: %q is not a finite number", r.Line, column, r.Get(column))
	}
	return v, nil
}

// OptionalFloat returns fallback for an empty cell.
func (r Record) OptionalFloat(column string, fallback float64) (float64, error) {
	if r.Get(column) == "" {
		return fallback, nil
	}
	return r.Float(column)
}

func (r Record) Int(column string) (int, error) {
	v, err := strconv.Atoi(r.Get(column))
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", r.Line, column, err)
	}
	return v, nil
}

func (r Record) Int64(column string) (int64, error) {
	v, err := strconv.ParseInt(r.Get(column), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", r.Line, column, err)
	}
	return v, nil
}

// Read parses a CSV stream with a header row, calling fn for each data row.
// Lines starting with '#' are skipped. Every name in required must appear in
// the header.
func Read(ctx context.Context, r io.Reader, required []string, fn func(Record) error) (int, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("missing header row")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return 0, fmt.Errorf("header is missing column %q", name)
		}
	}

	rows := 0
	for {
		if rows%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return rows, err
			}
		}

		fields, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if err := fn(Record{Line: line, fields: fields, index: index}); err != nil {
			return rows, err
		}
		rows++
	}
}

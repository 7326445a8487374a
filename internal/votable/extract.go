// Package votable pulls single values out of VOTable responses returned by
// the CDS services. It scans for literal markers and does not parse XML.
package votable

import (
	"strconv"
	"strings"
)

const (
	cellOpen  = "<TD>"
	cellClose = "</TD>"
	rowOpen   = "<TR>"
	rowClose  = "</TR>"
)

// NumberAfterTag finds the first occurrence of tag in body and parses the run
// of decimal digits that immediately follows it.
func NumberAfterTag(body, tag string) (int, bool) {
	if tag == "" {
		return 0, false
	}
	pos := strings.Index(body, tag)
	if pos < 0 {
		return 0, false
	}
	return leadingNumber(body[pos+len(tag):])
}

// FirstCellNumber parses the content of the first table cell. Whitespace
// inside the cell is ignored; the cell must start with a digit.
func FirstCellNumber(body string) (int, bool) {
	start := strings.Index(body, cellOpen)
	if start < 0 {
		return 0, false
	}
	start += len(cellOpen)

	end := strings.Index(body[start:], cellClose)
	if end < 0 {
		return 0, false
	}

	return leadingNumber(stripSpace(body[start : start+end]))
}

// FirstRowCells returns the trimmed cells of the first table row, in order.
func FirstRowCells(body string) []string {
	start := strings.Index(body, rowOpen)
	if start < 0 {
		return nil
	}
	start += len(rowOpen)

	end := strings.Index(body[start:], rowClose)
	if end < 0 {
		return nil
	}
	row := body[start : start+end]

	var cells []string
	for {
		open := strings.Index(row, cellOpen)
		if open < 0 {
			break
		}
		row = row[open+len(cellOpen):]

		closeAt := strings.Index(row, cellClose)
		if closeAt < 0 {
			break
		}
		cells = append(cells, strings.TrimFunc(row[:closeAt], isASCIISpace))
		row = row[closeAt+len(cellClose):]
	}
	return cells
}

func leadingNumber(s string) (int, bool) {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, false
	}

	v, err := strconv.Atoi(s[:n])
	if err != nil {
		// out of range
		return 0, false
	}
	return v, true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if isASCIISpace(r) {
			return -1
		}
		return r
	}, s)
}

// isASCIISpace matches the C locale's isspace: space, \t, \n, \v, \f, \r.
func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

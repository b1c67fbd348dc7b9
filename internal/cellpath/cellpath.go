// Package cellpath converts between spreadsheet column letters and their
// numeric index, and between a cell's on-disk address and its components.
//
// The on-disk convention keeps the source system's inverted naming at the
// storage boundary ("row" holds letters, "col" holds the numeric index) but
// this package itself uses the natural names Letters/Number internally.
package cellpath

import (
	"fmt"
	"strings"
)

// LettersToNumber converts a column letter run (A, B, ..., Z, AA, ...) to
// its 1-based numeric index using base-26 arithmetic with A=1.
func LettersToNumber(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("cellpath: empty column letters")
	}
	n := 0
	for _, c := range letters {
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("cellpath: invalid column letter %q", c)
		}
		n = n*26 + int(c-'A'+1)
	}
	return n, nil
}

// NumberToLetters converts a 1-based numeric column index back to its
// letter run.
func NumberToLetters(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("cellpath: column number must be positive, got %d", n)
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b), nil
}

// Address identifies a single cell by its spreadsheet coordinates.
type Address struct {
	WorkbookID  string
	SheetNumber int
	Letters     string // uppercase column letters, e.g. "A"
	Number      int    // 1-based row number
}

// Validate checks the address components against the data model's
// invariants: sheet numbers are non-negative, letters are uppercase A-Z+,
// and the row number is positive.
func (a Address) Validate() error {
	if a.WorkbookID == "" {
		return fmt.Errorf("cellpath: empty workbook id")
	}
	if a.SheetNumber < 0 {
		return fmt.Errorf("cellpath: negative sheet number %d", a.SheetNumber)
	}
	if a.Letters == "" {
		return fmt.Errorf("cellpath: empty row letters")
	}
	for _, c := range a.Letters {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("cellpath: row letters must be uppercase A-Z, got %q", a.Letters)
		}
	}
	if a.Number <= 0 {
		return fmt.Errorf("cellpath: column number must be positive, got %d", a.Number)
	}
	return nil
}

// CellAddress renders the on-disk cell path, e.g. "A1".
func (a Address) CellAddress() string {
	return fmt.Sprintf("%s%d", a.Letters, a.Number)
}

// GitPath renders the full tree path: "<workbook>/<sheet>/<cell-address>".
func (a Address) GitPath() string {
	return fmt.Sprintf("%s/%d/%s", a.WorkbookID, a.SheetNumber, a.CellAddress())
}

// IndexKey renders the staging-index lookup key:
// "<workbook>:<sheet>:<LETTERS>:<number>".
func (a Address) IndexKey() string {
	return fmt.Sprintf("%s:%d:%s:%d", a.WorkbookID, a.SheetNumber, strings.ToUpper(a.Letters), a.Number)
}

// SplitCellAddress splits a cell path like "AA107" into its leading letter
// run and trailing digit run.
func SplitCellAddress(cell string) (letters string, number int, err error) {
	i := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(cell) {
		return "", 0, fmt.Errorf("cellpath: malformed cell address %q", cell)
	}
	letters = cell[:i]
	digits := cell[i:]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", 0, fmt.Errorf("cellpath: malformed cell address %q", cell)
		}
	}
	n := 0
	for _, c := range digits {
		n = n*10 + int(c-'0')
	}
	if n == 0 {
		return "", 0, fmt.Errorf("cellpath: malformed cell address %q", cell)
	}
	return letters, n, nil
}

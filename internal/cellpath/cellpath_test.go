package cellpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLettersToNumber(t *testing.T) {
	cases := map[string]int{
		"A":  1,
		"Z":  26,
		"AA": 27,
		"ZZ": 702,
	}
	for letters, want := range cases {
		got, err := LettersToNumber(letters)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNumberToLetters(t *testing.T) {
	cases := map[int]string{
		1:   "A",
		26:  "Z",
		27:  "AA",
		702: "ZZ",
	}
	for n, want := range cases {
		got, err := NumberToLetters(n)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLetterNumberRoundTrip(t *testing.T) {
	for n := 1; n <= 1000; n++ {
		letters, err := NumberToLetters(n)
		require.NoError(t, err)
		back, err := LettersToNumber(letters)
		require.NoError(t, err)
		assert.Equal(t, n, back)
	}
}

func TestAddressCellAddress(t *testing.T) {
	a := Address{WorkbookID: "wb1", SheetNumber: 1, Letters: "A", Number: 1}
	assert.Equal(t, "A1", a.CellAddress())
	assert.Equal(t, "wb1/1/A1", a.GitPath())
	assert.Equal(t, "wb1:1:A:1", a.IndexKey())
}

func TestAddressValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		a := Address{WorkbookID: "wb1", SheetNumber: 0, Letters: "AA", Number: 5}
		assert.NoError(t, a.Validate())
	})

	t.Run("rejects empty workbook", func(t *testing.T) {
		a := Address{SheetNumber: 0, Letters: "A", Number: 1}
		assert.Error(t, a.Validate())
	})

	t.Run("rejects lowercase letters", func(t *testing.T) {
		a := Address{WorkbookID: "wb1", Letters: "a", Number: 1}
		assert.Error(t, a.Validate())
	})

	t.Run("rejects non-positive column", func(t *testing.T) {
		a := Address{WorkbookID: "wb1", Letters: "A", Number: 0}
		assert.Error(t, a.Validate())
	})
}

func TestSplitCellAddress(t *testing.T) {
	letters, number, err := SplitCellAddress("AA107")
	require.NoError(t, err)
	assert.Equal(t, "AA", letters)
	assert.Equal(t, 107, number)

	_, _, err = SplitCellAddress("107")
	assert.Error(t, err)

	_, _, err = SplitCellAddress("AA")
	assert.Error(t, err)
}

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rateboard-io/corpus/internal/domain"
)

func TestExtractor_Text_CSV(t *testing.T) {
	e := New()
	path := writeTempFile(t, "competitors.csv", []byte(
		"hotel,rate,date\nHotel Artemis,129,2026-09-01\n\nPension Luna,84,2026-09-01\n"))

	text, err := e.Text(path, domain.FileTypeCSV)
	require.NoError(t, err)

	// The blank line is skipped and does not consume a row number.
	assert.Equal(t,
		"Headers: hotel, rate, date\n"+
			"Row 1: Hotel Artemis, 129, 2026-09-01\n"+
			"Row 2: Pension Luna, 84, 2026-09-01",
		text)
}

func TestExtractor_Text_CSVWhitespaceRow(t *testing.T) {
	e := New()
	path := writeTempFile(t, "sparse.csv", []byte("a,b\n , \nval,2\n"))

	text, err := e.Text(path, domain.FileTypeCSV)
	require.NoError(t, err)
	assert.Equal(t, "Headers: a, b\nRow 1: val, 2", text)
}

func TestExtractor_Text_CSVRaggedRows(t *testing.T) {
	e := New()
	path := writeTempFile(t, "ragged.csv", []byte("a,b,c\n1\n2,3\n"))

	text, err := e.Text(path, domain.FileTypeCSV)
	require.NoError(t, err)
	assert.Contains(t, text, "Row 1: 1")
	assert.Contains(t, text, "Row 2: 2, 3")
}

func TestExtractor_Text_CSVEmptyFile(t *testing.T) {
	e := New()
	path := writeTempFile(t, "empty.csv", nil)

	text, err := e.Text(path, domain.FileTypeCSV)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractor_Text_CSVHeaderOnly(t *testing.T) {
	e := New()
	path := writeTempFile(t, "header.csv", []byte("hotel,rate\n"))

	text, err := e.Text(path, domain.FileTypeCSV)
	require.NoError(t, err)
	assert.Equal(t, "Headers: hotel, rate", text)
}

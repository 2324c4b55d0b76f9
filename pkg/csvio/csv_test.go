package csvio

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lunar_phases.csv")
	in := Table{Headers: []string{"Date", "Phase"}, Records: [][]string{{"2024-01-11", "New Moon"}}}

	b, err := WriteFile(path, in)
	require.NoError(t, err)
	assert.Equal(t, "Date,Phase\n2024-01-11,New Moon\n", string(b))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeStripsBOMAndIndexes(t *testing.T) {
	tbl, err := Decode(strings.NewReader("\ufeffDate, Close ,Volume\n2024-01-02,470.1,100\n"))
	require.NoError(t, err)

	idx, err := tbl.Index("date", "close")
	require.NoError(t, err)
	assert.Equal(t, 0, idx["date"])
	assert.Equal(t, 1, idx["close"])

	_, err = tbl.Index("Adj Close")
	assert.ErrorContains(t, err, "Adj Close")
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.Error(t, err)
}

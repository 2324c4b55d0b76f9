package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table is a header row plus records.
type Table struct {
	Headers []string
	Records [][]string
}

// Encode renders t as CSV bytes.
func Encode(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(t.Headers) > 0 {
		if err := w.Write(t.Headers); err != nil {
			return nil, fmt.Errorf("write headers: %w", err)
		}
	}
	for i, rec := range t.Records {
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes t to path, creating parent directories and truncating any existing file.
func WriteFile(path string, t Table) ([]byte, error) {
	b, err := Encode(t)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return b, nil
}

// Decode reads a CSV with a header row. A UTF-8 BOM is stripped.
func Decode(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("read csv: missing header row")
	}
	headers := rows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	return Table{Headers: headers, Records: rows[1:]}, nil
}

// ReadFile decodes the CSV at path.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Index maps each header (case-insensitive, trimmed) to its column.
// It fails if any of required is missing.
func (t Table) Index(required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, r := range required {
		if _, ok := idx[strings.ToLower(r)]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

package prices

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	domrepo "LunarPull/internal/domain/repository"
	"LunarPull/pkg/csvio"
	"LunarPull/pkg/util"
)

var priceHeaders = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// FileName is the per-symbol extract name, e.g. SPY_stock_2025-01-31.csv.
func FileName(symbol string, end time.Time) string {
	return fmt.Sprintf("%s_stock_%s.csv", symbol, util.DayKey(end))
}

// PriceTable renders points as the extract CSV table.
func PriceTable(points []models.PricePoint) csvio.Table {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = []string{util.DayKey(p.Date), f(p.Open), f(p.High), f(p.Low), f(p.Close), f(p.AdjClose), f(p.Volume)}
	}
	return csvio.Table{Headers: priceHeaders, Records: rows}
}

// ParsePriceTable reads an extract table, rejecting rows that fail validation.
// It returns the kept points sorted by date and the number rejected.
func ParsePriceTable(symbol string, t csvio.Table) ([]models.PricePoint, int, error) {
	idx, err := t.Index("date", "open", "high", "low", "close", "volume")
	if err != nil {
		return nil, 0, apperr.Schema("price csv "+symbol, err)
	}
	adjCol, hasAdj := idx["adj close"]

	v := validator.New()
	out := make([]models.PricePoint, 0, len(t.Records))
	rejected := 0
	for _, row := range t.Records {
		p, ok := parseRow(symbol, row, idx)
		if !ok {
			rejected++
			continue
		}
		p.AdjClose = p.Close
		if hasAdj {
			if a, err := strconv.ParseFloat(row[adjCol], 64); err == nil {
				p.AdjClose = a
			}
		}
		if err := v.Struct(p); err != nil {
			rejected++
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, rejected, nil
}

func parseRow(symbol string, row []string, idx map[string]int) (models.PricePoint, bool) {
	t, ok := util.ParseTime(row[idx["date"]])
	if !ok {
		return models.PricePoint{}, false
	}
	d := util.DateOf(t)
	var vals [5]float64
	for i, col := range []string{"open", "high", "low", "close", "volume"} {
		f, err := strconv.ParseFloat(row[idx[col]], 64)
		if err != nil {
			return models.PricePoint{}, false
		}
		vals[i] = f
	}
	return models.PricePoint{
		Symbol: symbol, Date: d,
		Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
	}, true
}

// CSVSource serves prices from previously written extracts in dir.
// It reads the newest SYMBOL_stock_*.csv file and filters to the requested range.
type CSVSource struct {
	dir string
}

func NewCSVSource(dir string) *CSVSource { return &CSVSource{dir: dir} }

func (s *CSVSource) FetchPrices(_ context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	op := "price csv " + symbol
	matches, err := filepath.Glob(filepath.Join(s.dir, symbol+"_stock_*.csv"))
	if err != nil {
		return nil, apperr.Schema(op, err)
	}
	if len(matches) == 0 {
		return nil, apperr.Transport(op, fmt.Errorf("no extract in %s: %w", s.dir, os.ErrNotExist))
	}
	sort.Strings(matches)

	tbl, err := csvio.ReadFile(matches[len(matches)-1])
	if err != nil {
		return nil, apperr.Schema(op, err)
	}
	points, _, err := ParsePriceTable(symbol, tbl)
	if err != nil {
		return nil, err
	}
	start, end = util.DateOf(start), util.DateOf(end)
	kept := points[:0]
	for _, p := range points {
		if !p.Date.Before(start) && !p.Date.After(end) {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

var _ domrepo.PriceSource = (*CSVSource)(nil)

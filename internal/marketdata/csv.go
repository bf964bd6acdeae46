package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
)

// CSVLoader reads <dir>/<ticker>.csv files in the Yahoo daily layout
// (Date,Open,High,Low,Close,Adj Close,Volume)
type CSVLoader struct {
	dir string
}

// NewCSVLoader creates a loader rooted at dir
func NewCSVLoader(dir string) *CSVLoader {
	return &CSVLoader{dir: dir}
}

// Path returns the file read for ticker
func (l *CSVLoader) Path(ticker string) string {
	return filepath.Join(l.dir, ticker+".csv")
}

// LoadBars implements BarLoader
func (l *CSVLoader) LoadBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.Path(ticker))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no file for %s in %s", ErrNoData, ticker, l.dir)
		}
		return nil, err
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f, ticker)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.Path(ticker), err)
	}
	return filterBars(bars, contracts.Day(from), contracts.Day(to)), nil
}

// ReadBarsCSV parses bars from a CSV with a header row.
// Rows with a "null" close (Yahoo holidays) are skipped.
func ReadBarsCSV(r io.Reader, ticker string) ([]contracts.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	var bars []contracts.Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		closeStr := column(rec, cols, "close")
		if closeStr == "" || closeStr == "null" {
			continue
		}

		date, err := contracts.ParseDay(column(rec, cols, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: date: %w", line, err)
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}

		bar := contracts.Bar{
			Symbol: ticker,
			Date:   date,
			Open:   optionalFloat(column(rec, cols, "open"), closePrice),
			High:   optionalFloat(column(rec, cols, "high"), closePrice),
			Low:    optionalFloat(column(rec, cols, "low"), closePrice),
			Close:  closePrice,
			Volume: int64(optionalFloat(column(rec, cols, "volume"), 0)),
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func column(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func optionalFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

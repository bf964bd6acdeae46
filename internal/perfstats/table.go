package perfstats

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/spreadindex/internal/timeseries"
)

// NotAvailable is shown when a metric cannot be computed for a period
const NotAvailable = "n/a"

// Curve is a named series to report on
type Curve struct {
	Name   string
	Series *timeseries.Series
}

// Row holds one metric of one curve across all periods
type Row struct {
	Metric string   `json:"metric"`
	Curve  string   `json:"curve"`
	Values []string `json:"values"`
}

// Table is a metric x curve by period grid of formatted values
type Table struct {
	Periods []string `json:"periods"`
	Rows    []Row    `json:"rows"`
}

// Compute evaluates every metric for every curve and period.
// Rows are ordered metric first, then curve, as given.
func Compute(curves []Curve, periods []Period, metrics []Metric) (*Table, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("%w: no curves", ErrInsufficientData)
	}
	if len(periods) == 0 {
		periods = []Period{All()}
	}
	if len(metrics) == 0 {
		metrics = DefaultMetrics
	}

	// cells[metric][curve][period]
	cells := make([][][]string, len(metrics))
	for m := range metrics {
		cells[m] = make([][]string, len(curves))
	}

	var names []string
	for c, curve := range curves {
		first, err := curve.Series.First()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", curve.Name, err)
		}
		last, err := curve.Series.Last()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", curve.Name, err)
		}

		curveNames := make([]string, 0, len(periods))
		for _, p := range periods {
			name, start, end := p.Resolve(first.Date, last.Date)
			curveNames = append(curveNames, name)
			window := curve.Series.Range(start, end)

			for m, metric := range metrics {
				cells[m][c] = append(cells[m][c], formatCell(metric, window))
			}
		}
		if names == nil {
			names = curveNames
		}
	}

	table := &Table{Periods: names}
	for m, metric := range metrics {
		for c, curve := range curves {
			table.Rows = append(table.Rows, Row{Metric: metric.Name, Curve: curve.Name, Values: cells[m][c]})
		}
	}
	return table, nil
}

func formatCell(metric Metric, window *timeseries.Series) string {
	v, err := metric.Compute(window)
	if err != nil {
		return NotAvailable
	}
	return metric.Format(v)
}

// Value returns the formatted cell for metric, curve and period
func (t *Table) Value(metric, curve, period string) (string, bool) {
	col := -1
	for i, p := range t.Periods {
		if p == period {
			col = i
			break
		}
	}
	if col < 0 {
		return "", false
	}
	for _, r := range t.Rows {
		if r.Metric == metric && r.Curve == curve {
			return r.Values[col], true
		}
	}
	return "", false
}

// Render writes the table as aligned text
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(tw, "Metric\tCurve\t")
	for _, p := range t.Periods {
		fmt.Fprintf(tw, "%s\t", p)
	}
	fmt.Fprintln(tw)

	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%s\t%s\t", r.Metric, r.Curve)
		for _, v := range r.Values {
			fmt.Fprintf(tw, "%s\t", v)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// SheetName is the worksheet WriteXLSX writes to
const SheetName = "PerfStats"

// WriteXLSX saves the table as a workbook with one sheet
func (t *Table) WriteXLSX(path string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := append([]interface{}{"Metric", "Curve"}, toCells(t.Periods)...)
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := append([]interface{}{r.Metric, r.Curve}, toCells(r.Values)...)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

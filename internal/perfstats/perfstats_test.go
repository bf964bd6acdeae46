package perfstats

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/timeseries"
)

func day(s string) time.Time {
	d, err := contracts.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func series(points map[string]float64) *timeseries.Series {
	m := make(map[time.Time]float64, len(points))
	for d, v := range points {
		m[day(d)] = v
	}
	return timeseries.New(m)
}

func TestPeriodReturn(t *testing.T) {
	s := series(map[string]float64{"2024-01-02": 100, "2024-06-28": 110})

	r, err := PeriodReturn(s)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, r, 1e-12)

	// under a year: the plain period return
	c, err := ConditionalAnnualReturn(s)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, c, 1e-12)

	_, err = PeriodReturn(timeseries.New(nil))
	assert.ErrorIs(t, err, contracts.ErrMissingData)
}

func TestAnnualReturn(t *testing.T) {
	// 730 days, 21% total: 10% a year
	s := series(map[string]float64{"2021-01-01": 100, "2023-01-01": 121})

	a, err := AnnualReturn(s)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, a, 1e-12)

	c, err := ConditionalAnnualReturn(s)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, c, 1e-12)

	_, err = AnnualReturn(series(map[string]float64{"2021-01-01": 100}))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestLogReturnsAndVolatility(t *testing.T) {
	s := series(map[string]float64{
		"2024-01-01": 100,
		"2024-01-02": 110,
		"2024-01-03": 100,
	})

	lr := LogReturns(s)
	require.Len(t, lr, 2)
	assert.InDelta(t, math.Log(1.1), lr[0], 1e-12)
	assert.InDelta(t, -math.Log(1.1), lr[1], 1e-12)

	ppy, err := PointsPerYear(s)
	require.NoError(t, err)
	points, days := 3.0, 2.0
	assert.Equal(t, int(points/(days/365)), ppy)

	vol, err := AnnualVolatility(s)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(float64(ppy))*math.Log(1.1), vol, 1e-12)
}

func TestSharpe(t *testing.T) {
	flat := series(map[string]float64{"2024-01-01": 100, "2024-01-02": 100, "2024-01-03": 100})
	sh, err := Sharpe(flat)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sh)
}

func TestMaxDrawdown(t *testing.T) {
	s := series(map[string]float64{
		"2024-01-01": 100,
		"2024-01-02": 120,
		"2024-01-03": 90,
		"2024-01-04": 130,
		"2024-01-05": 117,
	})

	dd, err := MaxDrawdown(s)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, dd, 1e-12)

	_, err = MaxDrawdown(series(map[string]float64{"2024-01-01": 100}))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestWeekdayRollBack(t *testing.T) {
	assert.Equal(t, day("2021-12-31"), WeekdayRollBack(day("2021-12-31"))) // Friday
	assert.Equal(t, day("2022-12-30"), WeekdayRollBack(day("2022-12-31"))) // Saturday
	assert.Equal(t, day("2023-12-29"), WeekdayRollBack(day("2023-12-31"))) // Sunday
	assert.Equal(t, day("2024-02-29"), lastWeekdayOfPrevMonth(day("2024-03-15")))
	assert.Equal(t, day("2024-05-31"), lastWeekdayOfPrevMonth(day("2024-06-03")))
}

func TestPeriodResolve(t *testing.T) {
	first, last := day("2020-03-02"), day("2023-06-15")

	tests := []struct {
		period Period
		name   string
		start  time.Time
		end    time.Time
	}{
		{Year(2022), "2022", day("2021-12-31"), day("2022-12-30")},
		{Year(2023), "2023", day("2022-12-30"), last},
		{YTD(), "YTD", day("2022-12-30"), last},
		{MTD(), "MTD", day("2023-05-31"), last},
		{All(), "All", first, last},
		{Between(day("2021-06-30"), day("2021-01-04")), "2021-01-04_2021-06-30", day("2021-01-04"), day("2021-06-30")},
		{Year(2021).Named("covid"), "covid", day("2020-12-31"), day("2021-12-31")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name, start, end := tc.period.Resolve(first, last)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.end, end)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2021")
	require.NoError(t, err)
	assert.Equal(t, Year(2021), p)

	p, err = ParsePeriod("ytd")
	require.NoError(t, err)
	assert.Equal(t, YTD(), p)

	p, err = ParsePeriod("h1=2021-01-01:2021-06-30")
	require.NoError(t, err)
	name, _, _ := p.Resolve(day("2021-01-01"), day("2021-12-31"))
	assert.Equal(t, "h1", name)

	_, err = ParsePeriod("last-week")
	assert.ErrorIs(t, err, contracts.ErrConfiguration)

	_, err = ParsePeriod("2021-01-01:bad")
	assert.Error(t, err)
}

func twoCurves() []Curve {
	return []Curve{
		{Name: "index", Series: series(map[string]float64{"2023-12-29": 100, "2024-01-02": 101, "2024-01-03": 99, "2024-01-04": 102})},
		{Name: "SPX", Series: series(map[string]float64{"2023-12-29": 50, "2024-01-02": 50, "2024-01-03": 50, "2024-01-04": 50})},
	}
}

func TestCompute(t *testing.T) {
	table, err := Compute(twoCurves(), []Period{All(), Year(2023)}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"All", "2023"}, table.Periods)
	require.Len(t, table.Rows, len(DefaultMetrics)*2)
	assert.Equal(t, "Return", table.Rows[0].Metric)
	assert.Equal(t, "index", table.Rows[0].Curve)
	assert.Equal(t, "SPX", table.Rows[1].Curve)

	v, ok := table.Value("Return", "index", "All")
	require.True(t, ok)
	assert.Equal(t, "2.00%", v)

	v, ok = table.Value("MaxDrawDown", "index", "All")
	require.True(t, ok)
	assert.Equal(t, "1.98%", v)

	// 2023 holds a single point for both curves
	v, ok = table.Value("Return", "SPX", "2023")
	require.True(t, ok)
	assert.Equal(t, "0.00%", v)
	v, ok = table.Value("AnnualVolatility", "SPX", "2023")
	require.True(t, ok)
	assert.Equal(t, NotAvailable, v)

	_, ok = table.Value("Return", "index", "1999")
	assert.False(t, ok)

	_, err = Compute(nil, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTable_Render(t *testing.T) {
	table, err := Compute(twoCurves(), []Period{All()}, []Metric{MetricReturn})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, table.Render(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Metric")
	assert.Contains(t, lines[1], "2.00%")
	assert.Contains(t, lines[2], "SPX")
}

func TestTable_WriteXLSX(t *testing.T) {
	table, err := Compute(twoCurves(), []Period{All()}, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stats.xlsx")
	require.NoError(t, table.WriteXLSX(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1+len(table.Rows))
	assert.Equal(t, []string{"Metric", "Curve", "All"}, rows[0])
	assert.Equal(t, []string{"Return", "index", "2.00%"}, rows[1])
}

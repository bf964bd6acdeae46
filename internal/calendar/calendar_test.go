package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_DerivedSchedules(t *testing.T) {
	cal := New()
	_, err := cal.Create(CalculationInfinite, testDates())
	require.NoError(t, err)

	base := day("2024-01-05")
	calc, err := cal.Crop(Calculation, CalculationInfinite, base, day("2024-01-12"), true)
	require.NoError(t, err)
	rebal, err := cal.Crop(Rebalance, CalculationInfinite, base, day("2024-01-12"), false)
	require.NoError(t, err)

	first, _ := calc.First()
	assert.Equal(t, base, first)

	first, _ = rebal.First()
	assert.Equal(t, day("2024-01-08"), first)
	assert.Equal(t, calc.Len()-1, rebal.Len())

	assert.Equal(t, []string{Calculation, CalculationInfinite, Rebalance}, cal.Names())
}

func TestCalendar_CreateTwice(t *testing.T) {
	cal := New()
	_, err := cal.Create("calc", testDates())
	require.NoError(t, err)

	_, err = cal.Create("calc", testDates())
	assert.ErrorIs(t, err, ErrScheduleExists)

	_, err = cal.Crop("calc", "calc", day("2024-01-02"), day("2024-01-12"), true)
	assert.ErrorIs(t, err, ErrScheduleExists)
}

func TestCalendar_UnknownSchedule(t *testing.T) {
	cal := New()

	_, err := cal.InSchedule("missing", day("2024-01-02"))
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	_, err = cal.Offset("missing", day("2024-01-02"), 0)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	_, err = cal.DateList("missing", day("2024-01-02"), day("2024-01-03"))
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	_, err = cal.Crop("x", "missing", day("2024-01-02"), day("2024-01-03"), true)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestCalendar_Lookups(t *testing.T) {
	cal := New()
	_, err := cal.Create("calc", testDates())
	require.NoError(t, err)

	in, err := cal.InSchedule("calc", day("2024-01-08"))
	require.NoError(t, err)
	assert.True(t, in)

	in, err = cal.InSchedule("calc", day("2024-01-07"))
	require.NoError(t, err)
	assert.False(t, in)

	got, err := cal.Offset("calc", day("2024-01-08"), -1)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-05"), got)

	got, err = cal.OnOrBefore("calc", day("2024-01-07"))
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-05"), got)

	got, err = cal.Before("calc", day("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-04"), got)

	list, err := cal.DateList("calc", day("2024-01-11"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

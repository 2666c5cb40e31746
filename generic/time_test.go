package generic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_DayFirst(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"03/04/2025", NewDate(2025, time.April, 3)},
		{"3/4/2025", NewDate(2025, time.April, 3)},
		{"03-04-2025", NewDate(2025, time.April, 3)},
		{"03.04.2025", NewDate(2025, time.April, 3)},
		{"2025-04-03", NewDate(2025, time.April, 3)},
		{" 03/04/2025 14:30:00 ", NewDate(2025, time.April, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "31/02/2025", "13/13/2025", "yesterday"} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestDate_Weekdays(t *testing.T) {
	sat := NewDate(2025, time.January, 11)
	assert.True(t, sat.IsSaturday())
	assert.True(t, sat.AddDays(1).IsSunday())
	assert.False(t, sat.AddDays(2).IsWeekend())
	assert.Equal(t, "11/01/2025", sat.String())
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("08:05")
	require.NoError(t, err)
	assert.Equal(t, NewClock(8, 5), c)
	assert.Equal(t, "08:05", c.String())

	c, err = ParseClock("17:30:59")
	require.NoError(t, err)
	assert.Equal(t, "17:30", c.String())

	for _, in := range []string{"", "8", "24:00", "12:60", "ab:cd", ClockSentinel, "08:00:zz", "08:00:60", "08:00:-1"} {
		_, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrInvalidClock, in)
	}
}

func TestClock_MinutesUntil(t *testing.T) {
	assert.Equal(t, 90, NewClock(8, 0).MinutesUntil(NewClock(9, 30)))
	assert.Equal(t, -60, NewClock(9, 0).MinutesUntil(NewClock(8, 0)))
}

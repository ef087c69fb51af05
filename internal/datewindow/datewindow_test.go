package datewindow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches_ValidDates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		date   string
		target time.Month
		want   bool
	}{
		{"same month", "July 8, 2024", time.July, true},
		{"other month", "July 8, 2024", time.June, false},
		{"two digit day", "December 31, 2023", time.December, true},
		{"year ignored", "March 1, 1999", time.March, true},
		{"surrounding whitespace", "  January 15, 2025\n", time.January, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Matches(tt.date, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_EveryMonth(t *testing.T) {
	t.Parallel()

	for m := time.January; m <= time.December; m++ {
		date := time.Date(2024, m, 3, 0, 0, 0, 0, time.UTC).Format(Layout)
		for target := time.January; target <= time.December; target++ {
			got, err := Matches(date, target)
			require.NoError(t, err)
			assert.Equal(t, m == target, got, "date %s target %s", date, target)
		}
	}
}

func TestMatches_MalformedDates(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"2024-07-08",
		"Jul 8, 2024",
		"8 July 2024",
		"July 8 2024",
		"3 hours ago",
		"Julember 8, 2024",
		"February 30, 2024",
	}

	for _, in := range inputs {
		in := in
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			got, err := Matches(in, time.July)
			require.Error(t, err)
			assert.False(t, got)
			assert.True(t, errors.Is(err, ErrParse))

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, in, perr.Text)

			var terr *time.ParseError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, Layout, terr.Layout)
		})
	}
}

func TestParse_TaggedResult(t *testing.T) {
	t.Parallel()

	ok := Parse("July 8, 2024")
	require.True(t, ok.OK())
	assert.Equal(t, time.Date(2024, time.July, 8, 0, 0, 0, 0, time.UTC), ok.Date)

	bad := Parse("yesterday")
	assert.False(t, bad.OK())
	assert.True(t, bad.Date.IsZero())
}

func TestTargetMonth(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.July, 20, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.July, TargetMonth(now, 0).Month)
	assert.Equal(t, time.June, TargetMonth(now, 1).Month)
	assert.Equal(t, time.May, TargetMonth(now, 2).Month)
	assert.Equal(t, "2024-05", TargetMonth(now, 2).Label())
	assert.Equal(t, 2, TargetMonth(now, 2).Window)
}

func TestTargetMonth_ThirtyDayStepCanRepeatMonth(t *testing.T) {
	t.Parallel()

	// 31-day month: day 31 minus 30 days stays in the same month.
	now := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.March, TargetMonth(now, 0).Month)
	assert.Equal(t, time.March, TargetMonth(now, 1).Month)
}

package week

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// taipei avoids depending on the host's tzdata.
var taipei = time.FixedZone("CST", 8*60*60)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestIDFor(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		loc  *time.Location
		want string
	}{
		{name: "year starts on a monday", t: date(2024, 1, 1), want: "2024W01"},
		{name: "sunday closes the week", t: date(2024, 1, 7), want: "2024W01"},
		{name: "second monday", t: date(2024, 1, 8), want: "2024W02"},
		{name: "jan 1 on a sunday belongs to previous year", t: date(2023, 1, 1), want: "2022W52"},
		{name: "monday after sunday jan 1", t: date(2023, 1, 2), want: "2023W01"},
		{name: "early january before first monday", t: date(2025, 1, 1), want: "2024W53"},
		{name: "first monday of 2025", t: date(2025, 1, 6), want: "2025W01"},
		{name: "mid year", t: date(2024, 7, 17), want: "2024W29"},
		{
			name: "late sunday UTC is monday in taipei",
			t:    time.Date(2024, 1, 7, 20, 0, 0, 0, time.UTC),
			loc:  taipei,
			want: "2024W02",
		},
		{
			name: "late sunday UTC stays sunday in UTC",
			t:    time.Date(2024, 1, 7, 20, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: "2024W01",
		},
		{name: "nil location is UTC", t: date(2024, 1, 8), loc: nil, want: "2024W02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IDFor(tt.t, tt.loc); got != tt.want {
				t.Errorf("IDFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	defer func(f func() time.Time) { nowFunc = f }(nowFunc)
	nowFunc = func() time.Time { return time.Date(2024, 3, 13, 9, 0, 0, 0, taipei) }

	wk, err := Parse("2024W11", taipei)
	require.NoError(t, err)
	assert.Equal(t, 2024, wk.Year)
	assert.Equal(t, 11, wk.Number)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, taipei), wk.Start)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, taipei), wk.End)
	assert.True(t, wk.IsCurrent)

	wk, err = Parse("2024W10", taipei)
	require.NoError(t, err)
	assert.False(t, wk.IsCurrent)

	wk, err = Parse("2024W53", taipei)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, taipei), wk.Start)
	assert.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, taipei), wk.End)
}

func TestParse_invalid(t *testing.T) {
	tests := []string{
		"",
		"2024-W01",
		"2024W1",
		"2024w01",
		"24W01",
		" 2024W01",
		"2024W00",
		"2025W53", // 2025 has 52 weeks
		"2024W99",
	}
	for _, token := range tests {
		t.Run(token, func(t *testing.T) {
			_, err := Parse(token, taipei)
			if errors.Cause(err) != ErrInvalidToken {
				t.Errorf("Parse(%q) error = %v, wantErr %v", token, err, ErrInvalidToken)
			}
		})
	}
}

func TestPreviousNext(t *testing.T) {
	tests := []struct {
		token, prev, next string
	}{
		{token: "2024W10", prev: "2024W09", next: "2024W11"},
		{token: "2024W53", prev: "2024W52", next: "2025W01"},
		{token: "2025W01", prev: "2024W53", next: "2025W02"},
		{token: "2022W52", prev: "2022W51", next: "2023W01"},
		{token: "2023W01", prev: "2022W52", next: "2023W02"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			prev, err := Previous(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.prev, prev)

			next, err := Next(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.next, next)
		})
	}

	_, err := Next("nope")
	assert.Equal(t, ErrInvalidToken, errors.Cause(err))
}

func TestPreviousNext_yearRange(t *testing.T) {
	next, err := Next("9999W51")
	require.NoError(t, err)
	assert.Equal(t, "9999W52", next)
	prev, err := Previous("0000W02")
	require.NoError(t, err)
	assert.Equal(t, "0000W01", prev)

	_, err = Next("9999W52")
	assert.Equal(t, ErrInvalidToken, errors.Cause(err))
	_, err = Previous("0000W01")
	assert.Equal(t, ErrInvalidToken, errors.Cause(err))

	ov, err := NewCalendar(time.UTC).Overview("9999W52")
	require.NoError(t, err)
	assert.Equal(t, "9999W51", ov.Previous)
	assert.Empty(t, ov.Next)
}

// Every day of several years, in two zones: the parsed start is the date's Monday, and
// previous/next round-trip.
func TestWeekLaws(t *testing.T) {
	for _, loc := range []*time.Location{time.UTC, taipei} {
		for d := time.Date(2019, 12, 1, 15, 30, 0, 0, loc); d.Year() < 2028; d = d.AddDate(0, 0, 1) {
			token := IDFor(d, loc)

			wk, err := Parse(token, loc)
			require.NoError(t, err, token)

			offset := int(d.Weekday()+6) % 7 // days since Monday
			y, m, dd := d.AddDate(0, 0, -offset).Date()
			if want := time.Date(y, m, dd, 0, 0, 0, 0, loc); !wk.Start.Equal(want) {
				t.Fatalf("Parse(IDFor(%v)).Start = %v, want %v", d, wk.Start, want)
			}

			prev, err := Previous(token)
			require.NoError(t, err)
			next, err := Next(prev)
			require.NoError(t, err)
			require.Equal(t, token, next)

			next, err = Next(token)
			require.NoError(t, err)
			prev, err = Previous(next)
			require.NoError(t, err)
			require.Equal(t, token, prev)
		}
	}
}

func TestDays(t *testing.T) {
	days, err := Days("2024W53", taipei)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, taipei), days[0])
	assert.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, taipei), days[6])
	for i, d := range days {
		assert.Equal(t, time.Weekday((i+1)%7), d.Weekday())
	}

	_, err = Days("2024W54", taipei)
	assert.Equal(t, ErrInvalidToken, errors.Cause(err))
}

func TestBetween(t *testing.T) {
	tokens, err := Between("2024W52", "2025W02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024W52", "2024W53", "2025W01", "2025W02"}, tokens)

	tokens, err = Between("2025W02", "2025W02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025W02"}, tokens)

	tokens, err = Between("2025W02", "2024W52")
	require.NoError(t, err)
	assert.Empty(t, tokens)

	_, err = Between("2000W01", "2020W01")
	assert.Equal(t, ErrSpanTooLong, errors.Cause(err))

	_, err = Between("2024W01", "bad")
	assert.Equal(t, ErrInvalidToken, errors.Cause(err))
}

func TestCalendar_Overview(t *testing.T) {
	defer func(f func() time.Time) { nowFunc = f }(nowFunc)
	nowFunc = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }

	cal := NewCalendar(taipei)
	assert.Equal(t, "2024W53", cal.Current())

	ov, err := cal.Overview("2024W53")
	require.NoError(t, err)
	assert.True(t, ov.IsCurrent)
	assert.Equal(t, "2024W52", ov.Previous)
	assert.Equal(t, "2025W01", ov.Next)
	assert.Len(t, ov.Days, 7)

	_, err = cal.Overview("2024-53")
	assert.Equal(t, ErrInvalidToken, errors.Cause(err))
}

// Package week maps calendar dates to Monday-anchored week tokens (`2024W07`) and back.
//
// Week 1 of a year starts on that year's first Monday. A token always belongs to the
// year of its Monday, so the days of January before the first Monday carry the previous
// year's trailing token (e.g. Sunday 2023-01-01 is in 2022W52).
package week

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	daysPerWeek = 7
	// maxSpan bounds Between: ten years of weeks.
	maxSpan = 53 * 10
	// tokens carry a four digit year
	minYear, maxYear = 0, 9999
)

var (
	ErrInvalidToken = errors.New("invalid week token")
	ErrSpanTooLong  = errors.New("week span too long")

	tokenRegex = regexp.MustCompile(`^(\d{4})W(\d{2})$`)

	nowFunc = time.Now // mockable
)

// Week is a parsed week token.
type Week struct {
	Token     string    `json:"token"`
	Year      int       `json:"year"`
	Number    int       `json:"week"`
	Start     time.Time `json:"start_date"` // Monday, midnight
	End       time.Time `json:"end_date"`   // Sunday, midnight
	IsCurrent bool      `json:"is_current_week"`
}

// IDFor returns the token of the week containing t, as seen from loc (UTC when nil).
func IDFor(t time.Time, loc *time.Location) string {
	return tokenOf(mondayOf(civil(t.In(orUTC(loc)))))
}

// Current returns the token of the current week in loc.
func Current(loc *time.Location) string {
	return IDFor(nowFunc(), loc)
}

// Parse decodes token into its year, number and Monday..Sunday span in loc.
func Parse(token string, loc *time.Location) (Week, error) {
	year, num, monday, err := decode(token)
	if err != nil {
		return Week{}, err
	}
	loc = orUTC(loc)
	return Week{
		Token:     token,
		Year:      year,
		Number:    num,
		Start:     inLocation(monday, loc),
		End:       inLocation(monday.AddDate(0, 0, daysPerWeek-1), loc),
		IsCurrent: token == Current(loc),
	}, nil
}

// Previous returns the token of the week before token.
func Previous(token string) (string, error) {
	return shift(token, -daysPerWeek)
}

// Next returns the token of the week after token.
func Next(token string) (string, error) {
	return shift(token, daysPerWeek)
}

// Days returns the 7 dates (Monday first) covered by token, as midnights in loc.
func Days(token string, loc *time.Location) ([]time.Time, error) {
	_, _, monday, err := decode(token)
	if err != nil {
		return nil, err
	}
	loc = orUTC(loc)
	days := make([]time.Time, daysPerWeek)
	for i := range days {
		days[i] = inLocation(monday.AddDate(0, 0, i), loc)
	}
	return days, nil
}

// Between returns every token from startToken to endToken, both included.
// It is empty when endToken precedes startToken.
func Between(startToken, endToken string) ([]string, error) {
	_, _, from, err := decode(startToken)
	if err != nil {
		return nil, err
	}
	_, _, to, err := decode(endToken)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return []string{}, nil
	}
	n := int(to.Sub(from).Hours()/24)/daysPerWeek + 1
	if n > maxSpan {
		return nil, errors.Wrapf(ErrSpanTooLong, "%s..%s spans %d weeks", startToken, endToken, n)
	}
	tokens := make([]string, 0, n)
	for monday := from; !monday.After(to); monday = monday.AddDate(0, 0, daysPerWeek) {
		tokens = append(tokens, tokenOf(monday))
	}
	return tokens, nil
}

func shift(token string, days int) (string, error) {
	_, _, monday, err := decode(token)
	if err != nil {
		return "", err
	}
	monday = monday.AddDate(0, 0, days)
	if y := monday.Year(); y < minYear || y > maxYear {
		return "", errors.Wrapf(ErrInvalidToken, "%q: no week %+d days away", token, days)
	}
	return tokenOf(monday), nil
}

// decode validates token and returns its Monday as a UTC calendar date.
func decode(token string) (year, num int, monday time.Time, err error) {
	m := tokenRegex.FindStringSubmatch(token)
	if m == nil {
		return 0, 0, time.Time{}, errors.Wrapf(ErrInvalidToken, "%q", token)
	}
	year, _ = strconv.Atoi(m[1])
	num, _ = strconv.Atoi(m[2])
	if num < 1 {
		return 0, 0, time.Time{}, errors.Wrapf(ErrInvalidToken, "%q: weeks start at 01", token)
	}
	monday = firstMonday(year).AddDate(0, 0, daysPerWeek*(num-1))
	if monday.Year() != year {
		return 0, 0, time.Time{}, errors.Wrapf(ErrInvalidToken, "%q: %d has no week %02d", token, year, num)
	}
	return year, num, monday, nil
}

func tokenOf(monday time.Time) string {
	year := monday.Year()
	spans := int(monday.Sub(firstMonday(year)).Hours()/24) / daysPerWeek
	return format(year, spans+1)
}

func format(year, num int) string {
	return fmt.Sprintf("%04dW%02d", year, num)
}

// mondayOf returns the Monday of d's week. Sunday closes the week.
func mondayOf(d time.Time) time.Time {
	offset := 1 - int(d.Weekday())
	if d.Weekday() == time.Sunday {
		offset = -6
	}
	return d.AddDate(0, 0, offset)
}

func firstMonday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	if wd := jan1.Weekday(); wd != time.Monday {
		return jan1.AddDate(0, 0, (8-int(wd))%daysPerWeek)
	}
	return jan1
}

// civil drops the time of day and zone of t, keeping its calendar date (as UTC midnight).
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func inLocation(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

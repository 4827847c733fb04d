package week

import "time"

// Calendar binds the week functions to a reference timezone.
type Calendar struct {
	Location *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	return Calendar{Location: orUTC(loc)}
}

func (c Calendar) IDFor(t time.Time) string { return IDFor(t, c.Location) }
func (c Calendar) Current() string          { return Current(c.Location) }

func (c Calendar) Parse(token string) (Week, error) { return Parse(token, c.Location) }

func (c Calendar) Days(token string) ([]time.Time, error) { return Days(token, c.Location) }

// Overview bundles a parsed week with its days and neighbours.
type Overview struct {
	Week
	Days     []time.Time `json:"days"`
	Previous string      `json:"previous,omitempty"`
	Next     string      `json:"next,omitempty"`
}

// Overview describes token for weekly grids.
func (c Calendar) Overview(token string) (Overview, error) {
	wk, err := c.Parse(token)
	if err != nil {
		return Overview{}, err
	}
	days, err := c.Days(token)
	if err != nil {
		return Overview{}, err
	}
	// token is valid here: neighbours only fail past year 0000 or 9999, and stay empty.
	prev, _ := Previous(token)
	next, _ := Next(token)
	return Overview{Week: wk, Days: days, Previous: prev, Next: next}, nil
}

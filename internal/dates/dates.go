// Package dates resolves the calendar day and week boundaries used to scope
// "today", "yesterday" and "this week" queries in a user's timezone.
//
// Timestamps written by early versions of the mini-app were not timezone aware,
// which moved the effective day boundary to 03:00 local time. Callers keep that
// behaviour unless they explicitly ask for plain midnight boundaries.
package dates

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultTimezone = "Europe/Kyiv"
	// LegacyOffset is the shift of the historical day boundary
	LegacyOffset = 3 * time.Hour
)

var ErrInvalidTimezone = errors.New("invalid timezone")

type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t is in [Start, End)
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

type SameDayOptions struct {
	Timezone      string
	WithoutOffset bool
}

// LoadLocation resolves an IANA name, defaulting to Europe/Kyiv when empty
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, timezone, err)
	}
	return loc, nil
}

func shift(withoutOffset bool) time.Duration {
	if withoutOffset {
		return 0
	}
	return LegacyOffset
}

// zonedDay returns the calendar date of t in loc after applying the legacy shift
func zonedDay(t time.Time, loc *time.Location, withoutOffset bool) (int, time.Month, int) {
	return t.In(loc).Add(-shift(withoutOffset)).Date()
}

// ResolveStartDate returns the instant where date's day begins in timezone
func ResolveStartDate(date time.Time, timezone string, withoutOffset bool) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := zonedDay(date, loc, withoutOffset)
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(shift(withoutOffset)), nil
}

// DayRange returns [start of day, start of next day)
func DayRange(date time.Time, timezone string, withoutOffset bool) (Range, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return Range{}, err
	}
	y, m, d := zonedDay(date, loc, withoutOffset)
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return Range{
		Start: start.Add(shift(withoutOffset)),
		End:   start.AddDate(0, 0, 1).Add(shift(withoutOffset)),
	}, nil
}

// ResolveWeekDateRange returns the Monday-anchored week containing date
func ResolveWeekDateRange(date time.Time, timezone string, withoutOffset bool) (Range, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return Range{}, err
	}
	y, m, d := zonedDay(date, loc, withoutOffset)
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	// Monday = 0 ... Sunday = 6
	sinceMonday := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -sinceMonday)
	return Range{
		Start: monday.Add(shift(withoutOffset)),
		End:   monday.AddDate(0, 0, 7).Add(shift(withoutOffset)),
	}, nil
}

// ResolveIsSameDay answers whether a and b fall on the same calendar day
func ResolveIsSameDay(a, b time.Time, opts SameDayOptions) (bool, error) {
	loc, err := LoadLocation(opts.Timezone)
	if err != nil {
		return false, err
	}
	ay, am, ad := zonedDay(a, loc, opts.WithoutOffset)
	by, bm, bd := zonedDay(b, loc, opts.WithoutOffset)
	return ay == by && am == bm && ad == bd, nil
}

// DayKey is the YYYY-MM-DD label of date's day
func DayKey(date time.Time, timezone string, withoutOffset bool) (string, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	y, m, d := zonedDay(date, loc, withoutOffset)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), nil
}

// Weekday of date's day
func Weekday(date time.Time, timezone string, withoutOffset bool) (time.Weekday, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return 0, err
	}
	y, m, d := zonedDay(date, loc, withoutOffset)
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC).Weekday(), nil
}

// FormatDay renders date as dd.mm.yyyy in timezone, the uk-UA short form
func FormatDay(date time.Time, timezone string) string {
	loc, err := LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return date.In(loc).Format("02.01.2006")
}

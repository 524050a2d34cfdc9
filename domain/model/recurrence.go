package model

import (
	"fmt"
	"time"
)

// MondayIndex maps a weekday onto 0=Monday..6=Sunday, the convention used by
// weekly recurrence days.
func MondayIndex(t time.Time) int64 {
	return int64((int(t.Weekday()) + 6) % 7)
}

// Location resolves the template timezone, falling back to UTC.
func (r *Recurrence) Location() *time.Location {
	if r == nil || r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks pattern, days, time-of-day and timezone.
func (r *Recurrence) Validate() error {
	if r == nil {
		return fmt.Errorf("recurrence is required")
	}
	if !r.Pattern.Valid() {
		return fmt.Errorf("unknown recurrence pattern %q", r.Pattern)
	}
	if _, _, err := r.clock(); err != nil {
		return err
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", r.Timezone)
		}
	}
	switch r.Pattern {
	case RecurrenceWeekly:
		if len(r.Days) == 0 {
			return fmt.Errorf("weekly recurrence needs at least one day")
		}
		for _, d := range r.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("weekly day %d out of range 0-6", d)
			}
		}
	case RecurrenceMonthly:
		if len(r.Days) == 0 {
			return fmt.Errorf("monthly recurrence needs at least one day")
		}
		for _, d := range r.Days {
			if d < 1 || d > 31 {
				return fmt.Errorf("monthly day %d out of range 1-31", d)
			}
		}
	}
	return nil
}

// EligibleOn reports whether the template produces an occurrence on the
// calendar day of now, evaluated in the template timezone.
func (r *Recurrence) EligibleOn(now time.Time) bool {
	if r == nil {
		return false
	}
	local := now.In(r.Location())
	switch r.Pattern {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return containsDay(r.Days, MondayIndex(local))
	case RecurrenceMonthly:
		return containsDay(r.Days, int64(local.Day()))
	}
	return false
}

// CreatedFor reports whether an occurrence on or after the calendar day of at
// was already materialised. LastCreated holds the newest occurrence instant.
func (r *Recurrence) CreatedFor(at time.Time) bool {
	if r == nil || r.LastCreated == nil {
		return false
	}
	loc := r.Location()
	return !startOfDay(r.LastCreated.In(loc)).Before(startOfDay(at.In(loc)))
}

// PendingOccurrence returns the occurrence a materialisation run at now should
// create. Today's occurrence qualifies until it is more than window in the
// past; tomorrow's qualifies once it is at most window ahead. Ineligible or
// already materialised days are skipped.
func (r *Recurrence) PendingOccurrence(now time.Time, window time.Duration) (time.Time, bool, error) {
	h, m, err := r.clock()
	if err != nil {
		return time.Time{}, false, err
	}
	loc := r.Location()
	local := now.In(loc)
	for offset := 0; offset <= 1; offset++ {
		d := local.AddDate(0, 0, offset)
		at := time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc)
		if offset == 0 && at.Before(now.Add(-window)) {
			continue
		}
		if offset == 1 && at.After(now.Add(window)) {
			continue
		}
		if !r.EligibleOn(at) || r.CreatedFor(at) {
			continue
		}
		return at, true, nil
	}
	return time.Time{}, false, nil
}

func (r *Recurrence) clock() (int, int, error) {
	t, err := time.Parse("15:04", r.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("recurrence time %q must be HH:MM", r.Time)
	}
	return t.Hour(), t.Minute(), nil
}

func containsDay(days []int64, d int64) bool {
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

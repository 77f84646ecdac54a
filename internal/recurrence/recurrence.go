// Package recurrence computes occurrences of the configured rotation
// event. The calculator is pure: it holds an explicit schedule
// configuration and performs no I/O, so it backs forward scheduling,
// slot-collision probing and period-boundary queries alike.
package recurrence

import (
	"time"

	"github.com/avesier/menurota/internal/domain"
)

type Calculator struct {
	cfg domain.ScheduleConfig
}

// New builds a calculator from the given configuration. Out-of-range
// fields are normalized to defaults; an invalid setting degrades, it
// never errors.
func New(cfg domain.ScheduleConfig) *Calculator {
	return &Calculator{cfg: cfg.Normalize()}
}

// Config returns the normalized configuration the calculator runs on.
func (c *Calculator) Config() domain.ScheduleConfig {
	return c.cfg
}

// Next returns the first occurrence strictly after the reference instant,
// normalized to UTC and truncated to the minute. Callers needing
// on-or-after semantics subtract a minute from the reference first.
func (c *Calculator) Next(after time.Time) time.Time {
	ref := after.In(c.cfg.Location)

	var cand time.Time
	switch c.cfg.Frequency {
	case domain.FrequencyDaily:
		cand = c.at(ref.Date())
		if !cand.After(ref) {
			cand = c.at(ref.AddDate(0, 0, 1).Date())
		}

	case domain.FrequencyWeekly:
		// Search forward inclusive of today.
		days := (int(c.cfg.Weekday) - int(ref.Weekday()) + 7) % 7
		day := ref.AddDate(0, 0, days)
		cand = c.at(day.Date())
		if !cand.After(ref) {
			cand = c.at(day.AddDate(0, 0, 7).Date())
		}

	case domain.FrequencyMonthly:
		y, m, _ := ref.Date()
		cand = c.at(y, m, c.clipDay(y, m))
		if !cand.After(ref) {
			ny, nm, _ := time.Date(y, m+1, 1, 0, 0, 0, 0, c.cfg.Location).Date()
			cand = c.at(ny, nm, c.clipDay(ny, nm))
		}
	}

	return cand.UTC().Truncate(time.Minute)
}

// Previous returns the nearest occurrence at-or-before the reference
// instant, applying the same clipping rules in reverse.
func (c *Calculator) Previous(before time.Time) time.Time {
	ref := before.In(c.cfg.Location)

	var cand time.Time
	switch c.cfg.Frequency {
	case domain.FrequencyDaily:
		cand = c.at(ref.Date())
		if cand.After(ref) {
			cand = c.at(ref.AddDate(0, 0, -1).Date())
		}

	case domain.FrequencyWeekly:
		days := (int(ref.Weekday()) - int(c.cfg.Weekday) + 7) % 7
		day := ref.AddDate(0, 0, -days)
		cand = c.at(day.Date())
		if cand.After(ref) {
			cand = c.at(day.AddDate(0, 0, -7).Date())
		}

	case domain.FrequencyMonthly:
		y, m, _ := ref.Date()
		cand = c.at(y, m, c.clipDay(y, m))
		if cand.After(ref) {
			py, pm, _ := time.Date(y, m-1, 1, 0, 0, 0, 0, c.cfg.Location).Date()
			cand = c.at(py, pm, c.clipDay(py, pm))
		}
	}

	return cand.UTC().Truncate(time.Minute)
}

// at builds the occurrence instant for a calendar date at the configured
// time-of-day.
func (c *Calculator) at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, c.cfg.Hour, c.cfg.Minute, 0, 0, c.cfg.Location)
}

// clipDay clips the configured month-day to the last day of short months,
// so day 31 in April yields the 30th.
func (c *Calculator) clipDay(year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, c.cfg.Location).Day()
	if c.cfg.MonthDay > last {
		return last
	}
	return c.cfg.MonthDay
}

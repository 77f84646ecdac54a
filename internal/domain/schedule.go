package domain

import "time"

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ScheduleConfig describes the recurring rotation event. Exactly one of
// Weekday/MonthDay is semantically active depending on Frequency.
type ScheduleConfig struct {
	Frequency Frequency
	Weekday   time.Weekday // weekly only
	MonthDay  int          // monthly only, 1..31, clipped to short months
	Hour      int
	Minute    int

	// Location is the timezone the time-of-day is interpreted in.
	// Computed instants are always returned in UTC.
	Location *time.Location
}

// DefaultScheduleConfig is the fallback applied when configured values are
// out of range: weekly, Monday 07:00 UTC.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Frequency: FrequencyWeekly,
		Weekday:   time.Monday,
		MonthDay:  1,
		Hour:      7,
		Minute:    0,
		Location:  time.UTC,
	}
}

// Normalize replaces out-of-range fields with their defaults rather than
// erroring, so a bad setting can never stall scheduling.
func (c ScheduleConfig) Normalize() ScheduleConfig {
	def := DefaultScheduleConfig()

	switch c.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		c.Frequency = def.Frequency
	}
	if c.Weekday < time.Sunday || c.Weekday > time.Saturday {
		c.Weekday = def.Weekday
	}
	if c.MonthDay < 1 || c.MonthDay > 31 {
		c.MonthDay = def.MonthDay
	}
	if c.Hour < 0 || c.Hour > 23 {
		c.Hour = def.Hour
	}
	if c.Minute < 0 || c.Minute > 59 {
		c.Minute = def.Minute
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

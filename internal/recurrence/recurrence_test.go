package recurrence

import (
	"testing"
	"time"

	"github.com/avesier/menurota/internal/domain"
)

func weeklyMonday0700() domain.ScheduleConfig {
	return domain.ScheduleConfig{
		Frequency: domain.FrequencyWeekly,
		Weekday:   time.Monday,
		Hour:      7,
		Minute:    0,
		Location:  time.UTC,
	}
}

func TestNext_WeeklyConcreteScenario(t *testing.T) {
	calc := New(weeklyMonday0700())

	// Tuesday 2024-01-02 10:00 -> Monday 2024-01-08 07:00.
	ref := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	want := time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)

	if got := calc.Next(ref); !got.Equal(want) {
		t.Errorf("Next(%s) = %s, want %s", ref, got, want)
	}
}

func TestNext_WeeklySameDay(t *testing.T) {
	calc := New(weeklyMonday0700())

	tests := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		{
			name: "monday before time of day fires today",
			ref:  time.Date(2024, 1, 8, 6, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "monday exactly at time of day advances a week",
			ref:  time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "monday after time of day advances a week",
			ref:  time.Date(2024, 1, 8, 7, 30, 0, 0, time.UTC),
			want: time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.Next(tt.ref); !got.Equal(tt.want) {
				t.Errorf("Next(%s) = %s, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestNext_Daily(t *testing.T) {
	calc := New(domain.ScheduleConfig{
		Frequency: domain.FrequencyDaily,
		Hour:      9,
		Minute:    30,
		Location:  time.UTC,
	})

	ref := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	if got := calc.Next(ref); !got.Equal(want) {
		t.Errorf("Next(before tod) = %s, want %s", got, want)
	}

	ref = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	want = time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)
	if got := calc.Next(ref); !got.Equal(want) {
		t.Errorf("Next(at tod) = %s, want %s", got, want)
	}
}

func TestNext_MonthlyClipping(t *testing.T) {
	calc := New(domain.ScheduleConfig{
		Frequency: domain.FrequencyMonthly,
		MonthDay:  31,
		Hour:      7,
		Minute:    0,
		Location:  time.UTC,
	})

	tests := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		{
			name: "april clips to the 30th",
			ref:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 4, 30, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "leap february clips to the 29th",
			ref:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "non-leap february clips to the 28th",
			ref:  time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2023, 2, 28, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "past this month's occurrence rolls into next month",
			ref:  time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "december rolls into january",
			ref:  time.Date(2023, 12, 31, 8, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 31, 7, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.Next(tt.ref); !got.Equal(tt.want) {
				t.Errorf("Next(%s) = %s, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

// TestNext_MonotonicProgress checks the strict-progress property across
// frequencies: Next is strictly after its reference, and chaining Next
// keeps advancing.
func TestNext_MonotonicProgress(t *testing.T) {
	configs := []domain.ScheduleConfig{
		{Frequency: domain.FrequencyDaily, Hour: 0, Minute: 0, Location: time.UTC},
		{Frequency: domain.FrequencyDaily, Hour: 23, Minute: 59, Location: time.UTC},
		{Frequency: domain.FrequencyWeekly, Weekday: time.Sunday, Hour: 12, Minute: 15, Location: time.UTC},
		{Frequency: domain.FrequencyMonthly, MonthDay: 1, Hour: 7, Minute: 0, Location: time.UTC},
		{Frequency: domain.FrequencyMonthly, MonthDay: 31, Hour: 7, Minute: 0, Location: time.UTC},
	}

	refs := []time.Time{
		time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 7, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 15, 12, 15, 0, 0, time.UTC),
	}

	for _, cfg := range configs {
		calc := New(cfg)
		for _, ref := range refs {
			t.Run(string(cfg.Frequency)+"/"+ref.Format(time.RFC3339), func(t *testing.T) {
				cur := ref
				for i := 0; i < 24; i++ {
					next := calc.Next(cur)
					if !next.After(cur) {
						t.Fatalf("Next(%s) = %s, not strictly after", cur, next)
					}
					cur = next
				}
			})
		}
	}
}

func TestPrevious_Weekly(t *testing.T) {
	calc := New(weeklyMonday0700())

	// Tuesday -> previous Monday.
	ref := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	want := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	if got := calc.Previous(ref); !got.Equal(want) {
		t.Errorf("Previous(%s) = %s, want %s", ref, got, want)
	}

	// Exactly at an occurrence: at-or-before keeps it.
	ref = time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)
	if got := calc.Previous(ref); !got.Equal(ref) {
		t.Errorf("Previous(%s) = %s, want the reference itself", ref, got)
	}

	// Monday before the time of day slides back a week.
	ref = time.Date(2024, 1, 8, 6, 0, 0, 0, time.UTC)
	want = time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	if got := calc.Previous(ref); !got.Equal(want) {
		t.Errorf("Previous(%s) = %s, want %s", ref, got, want)
	}
}

func TestPrevious_MonthlyClipping(t *testing.T) {
	calc := New(domain.ScheduleConfig{
		Frequency: domain.FrequencyMonthly,
		MonthDay:  31,
		Hour:      7,
		Minute:    0,
		Location:  time.UTC,
	})

	// Early March: previous occurrence is clipped February.
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	want := time.Date(2024, 2, 29, 7, 0, 0, 0, time.UTC)
	if got := calc.Previous(ref); !got.Equal(want) {
		t.Errorf("Previous(%s) = %s, want %s", ref, got, want)
	}
}

func TestNext_TimezoneNormalizedToUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	calc := New(domain.ScheduleConfig{
		Frequency: domain.FrequencyDaily,
		Hour:      7,
		Minute:    0,
		Location:  loc,
	})

	// 07:00 in New York in January is 12:00 UTC.
	ref := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	got := calc.Next(ref)
	want := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next(%s) = %s, want %s", ref, got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("Next returned location %v, want UTC", got.Location())
	}
}

func TestNew_NormalizesBadConfig(t *testing.T) {
	calc := New(domain.ScheduleConfig{Frequency: "hourly", MonthDay: 99, Hour: 77})

	cfg := calc.Config()
	if cfg.Frequency != domain.FrequencyWeekly {
		t.Errorf("Frequency = %q, want fallback weekly", cfg.Frequency)
	}

	// Still produces a valid instant.
	ref := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	if got := calc.Next(ref); !got.After(ref) {
		t.Errorf("Next on fallback config = %s, not after reference", got)
	}
}

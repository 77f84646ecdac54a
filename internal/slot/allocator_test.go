package slot

import (
	"testing"
	"time"

	"github.com/avesier/menurota/internal/domain"
	"github.com/avesier/menurota/internal/recurrence"
)

func weeklyCalc() *recurrence.Calculator {
	return recurrence.New(domain.ScheduleConfig{
		Frequency: domain.FrequencyWeekly,
		Weekday:   time.Monday,
		Hour:      7,
		Minute:    0,
		Location:  time.UTC,
	})
}

type probeSink struct {
	probes int
}

func (s *probeSink) SlotProbes(n int) { s.probes = n }

func TestNextOpenSlot_NoCollision(t *testing.T) {
	alloc := New(weeklyCalc(), DefaultMaxProbes)

	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	want := time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)

	got := alloc.NextOpenSlot(now, nil)
	if !got.Equal(want) {
		t.Errorf("NextOpenSlot = %s, want %s", got, want)
	}
}

func TestNextOpenSlot_AdvancesPastCollision(t *testing.T) {
	sink := &probeSink{}
	alloc := New(weeklyCalc(), DefaultMaxProbes).WithMetrics(sink)

	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	reserved := time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)
	existing := Set([]time.Time{reserved})

	got := alloc.NextOpenSlot(now, existing)
	want := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextOpenSlot = %s, want %s", got, want)
	}
	if got.Equal(reserved) {
		t.Errorf("NextOpenSlot returned a reserved instant")
	}
	if sink.probes != 2 {
		t.Errorf("probes = %d, want 2", sink.probes)
	}
}

func TestNextOpenSlot_NeverReturnsMember(t *testing.T) {
	alloc := New(weeklyCalc(), DefaultMaxProbes)

	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	// Reserve the next five occurrences.
	calc := weeklyCalc()
	var reserved []time.Time
	cursor := now
	for i := 0; i < 5; i++ {
		cursor = calc.Next(cursor)
		reserved = append(reserved, cursor)
	}
	existing := Set(reserved)

	got := alloc.NextOpenSlot(now, existing)
	if _, taken := existing[got]; taken {
		t.Errorf("NextOpenSlot = %s, which is reserved", got)
	}
	want := time.Date(2024, 2, 12, 7, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextOpenSlot = %s, want %s", got, want)
	}
}

// TestNextOpenSlot_BoundedSearch exercises a pathological reservation set
// covering more consecutive occurrences than the probe bound. The search
// must still terminate and return a value.
func TestNextOpenSlot_BoundedSearch(t *testing.T) {
	calc := recurrence.New(domain.ScheduleConfig{
		Frequency: domain.FrequencyDaily,
		Hour:      7,
		Minute:    0,
		Location:  time.UTC,
	})
	alloc := New(calc, DefaultMaxProbes)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var reserved []time.Time
	cursor := now
	for i := 0; i < DefaultMaxProbes+10; i++ {
		cursor = calc.Next(cursor)
		reserved = append(reserved, cursor)
	}

	got := alloc.NextOpenSlot(now, Set(reserved))
	if got.IsZero() {
		t.Fatal("NextOpenSlot returned zero time")
	}
	// Exhausted bound: the last computed candidate is acceptable even if
	// it collides.
	if !got.After(now) {
		t.Errorf("NextOpenSlot = %s, not after now", got)
	}
}

func TestSet_NormalizesInstants(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	instant := time.Date(2024, 1, 8, 9, 0, 30, 0, loc) // 07:00:30 UTC

	set := Set([]time.Time{instant})
	key := time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)
	if _, ok := set[key]; !ok {
		t.Errorf("Set did not normalize %s to %s", instant, key)
	}
}

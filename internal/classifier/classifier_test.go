package classifier

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avesier/menurota/internal/domain"
)

func entry(status domain.EntryStatus, at time.Time) domain.Entry {
	return domain.Entry{ID: uuid.New(), Status: status, ScheduledAt: at}
}

func TestSplit_CurrentIsLatestDue(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	older := entry(domain.EntryStatusCompleted, now.Add(-48*time.Hour))
	current := entry(domain.EntryStatusCompleted, now.Add(-2*time.Hour))
	upcoming := entry(domain.EntryStatusPending, now.Add(24*time.Hour))

	res := Split([]domain.Entry{upcoming, older, current}, now, DefaultConfig())

	if len(res.Current) != 2 {
		t.Fatalf("len(Current) = %d, want 2", len(res.Current))
	}
	if !res.Current[0].IsCurrent || res.Current[0].ID != current.ID {
		t.Errorf("Current[0] = %v (is_current=%v), want the active entry", res.Current[0].ID, res.Current[0].IsCurrent)
	}
	if res.Current[1].ID != upcoming.ID || res.Current[1].IsCurrent {
		t.Errorf("Current[1] = %v (is_current=%v), want the upcoming entry unflagged", res.Current[1].ID, res.Current[1].IsCurrent)
	}

	if len(res.History) != 1 || res.History[0].ID != older.ID {
		t.Errorf("History = %v, want just the superseded entry", res.History)
	}
}

// TestSplit_AtMostOneCurrent exercises the uniqueness property over a mix
// of entries including ties and undated ones.
func TestSplit_AtMostOneCurrent(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	lists := [][]domain.Entry{
		nil,
		{entry(domain.EntryStatusPending, now.Add(time.Hour))},
		{entry(domain.EntryStatusCancelled, now.Add(-time.Hour))},
		{
			entry(domain.EntryStatusPending, now.Add(-time.Hour)),
			entry(domain.EntryStatusCompleted, now.Add(-time.Hour)),
			entry(domain.EntryStatusCompleted, now.Add(-2*time.Hour)),
			entry(domain.EntryStatusPending, now.Add(time.Hour)),
			entry(domain.EntryStatusPending, time.Time{}),
		},
	}

	for i, entries := range lists {
		res := Split(entries, now, DefaultConfig())
		count := 0
		for _, c := range res.Current {
			if c.IsCurrent {
				count++
			}
		}
		if count > 1 {
			t.Errorf("list %d: %d entries flagged current, want at most 1", i, count)
		}
	}
}

func TestSplit_NoDueEntries(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	future := entry(domain.EntryStatusPending, now.Add(time.Hour))

	res := Split([]domain.Entry{future}, now, DefaultConfig())
	if len(res.Current) != 1 || res.Current[0].IsCurrent {
		t.Errorf("future-only plan should have no current entry: %+v", res.Current)
	}
}

func TestSplit_CancelledStaysOutOfHistory(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	cancelled := entry(domain.EntryStatusCancelled, now.Add(-time.Hour))

	res := Split([]domain.Entry{cancelled}, now, DefaultConfig())
	if len(res.History) != 0 {
		t.Errorf("cancelled entry landed in history: %v", res.History)
	}
	if len(res.Current) != 1 || res.Current[0].IsCurrent {
		t.Errorf("cancelled entry misclassified: %+v", res.Current)
	}
}

func TestSplit_HistoryCapAndOrder(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	var entries []domain.Entry
	for i := 0; i < 70; i++ {
		entries = append(entries, entry(domain.EntryStatusCompleted, now.Add(-time.Duration(i+1)*time.Hour)))
	}

	res := Split(entries, now, Config{HistoryLimit: 60})

	if len(res.History) != 60 {
		t.Fatalf("len(History) = %d, want 60", len(res.History))
	}
	for i := 1; i < len(res.History); i++ {
		if res.History[i].ScheduledAt.After(res.History[i-1].ScheduledAt) {
			t.Fatalf("History not descending at %d", i)
		}
	}
	// Newest superseded entry first; the current one is excluded.
	want := now.Add(-2 * time.Hour)
	if !res.History[0].ScheduledAt.Equal(want) {
		t.Errorf("History[0].ScheduledAt = %s, want %s", res.History[0].ScheduledAt, want)
	}
}

func TestSplit_CurrentAscending(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	entries := []domain.Entry{
		entry(domain.EntryStatusPending, now.Add(72*time.Hour)),
		entry(domain.EntryStatusPending, now.Add(24*time.Hour)),
		entry(domain.EntryStatusPending, now.Add(48*time.Hour)),
	}

	res := Split(entries, now, DefaultConfig())
	for i := 1; i < len(res.Current); i++ {
		if res.Current[i].ScheduledAt.Before(res.Current[i-1].ScheduledAt) {
			t.Fatalf("Current not ascending at %d", i)
		}
	}
}

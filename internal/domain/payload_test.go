package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestPayload_Normalize(t *testing.T) {
	p := Payload{
		"breakfast": {3, 1, 2, 2, 1},
		"specials":  {0, -5, 7},
		"empty":     nil,
	}

	got := p.Normalize()

	want := Payload{
		"breakfast": {1, 2, 3},
		"specials":  {7},
		"empty":     {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %v, want %v", got, want)
	}

	// Original must not be mutated.
	if !reflect.DeepEqual(p["breakfast"], []int64{3, 1, 2, 2, 1}) {
		t.Errorf("Normalize mutated its receiver: %v", p["breakfast"])
	}
}

func TestPayload_Normalize_Nil(t *testing.T) {
	var p Payload
	got := p.Normalize()
	if got == nil || len(got) != 0 {
		t.Errorf("Normalize(nil) = %v, want empty non-nil payload", got)
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Payload
		wantErr bool
	}{
		{
			name: "valid",
			raw:  `{"lunch":[2,1,1],"dinner":[9]}`,
			want: Payload{"lunch": {1, 2}, "dinner": {9}},
		},
		{
			name: "empty input",
			raw:  "",
			want: Payload{},
		},
		{
			name:    "malformed json",
			raw:     `{"lunch":`,
			want:    Payload{},
			wantErr: true,
		},
		{
			name:    "non-array values",
			raw:     `{"lunch":"nope"}`,
			want:    Payload{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodePayload() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPayload_Tags_Sorted(t *testing.T) {
	p := Payload{"z": {1}, "a": {2}, "m": {3}}
	got := p.Tags()
	want := []string{"a", "m", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tags() = %v, want %v", got, want)
	}
}

func TestEntry_Runnable(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"pending due", Entry{Status: EntryStatusPending, ScheduledAt: now.Add(-time.Hour)}, true},
		{"pending exactly now", Entry{Status: EntryStatusPending, ScheduledAt: now}, true},
		{"pending future", Entry{Status: EntryStatusPending, ScheduledAt: now.Add(time.Minute)}, false},
		{"completed due", Entry{Status: EntryStatusCompleted, ScheduledAt: now.Add(-time.Hour)}, true},
		{"cancelled due", Entry{Status: EntryStatusCancelled, ScheduledAt: now.Add(-time.Hour)}, false},
		{"zero scheduled_at", Entry{Status: EntryStatusPending}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Runnable(now); got != tt.want {
				t.Errorf("Runnable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleConfig_Normalize(t *testing.T) {
	cfg := ScheduleConfig{
		Frequency: "hourly",
		Weekday:   time.Weekday(9),
		MonthDay:  42,
		Hour:      25,
		Minute:    -1,
	}

	got := cfg.Normalize()
	def := DefaultScheduleConfig()

	if got.Frequency != def.Frequency {
		t.Errorf("Frequency = %q, want %q", got.Frequency, def.Frequency)
	}
	if got.Weekday != def.Weekday {
		t.Errorf("Weekday = %v, want %v", got.Weekday, def.Weekday)
	}
	if got.MonthDay != def.MonthDay {
		t.Errorf("MonthDay = %d, want %d", got.MonthDay, def.MonthDay)
	}
	if got.Hour != def.Hour || got.Minute != def.Minute {
		t.Errorf("time of day = %02d:%02d, want %02d:%02d", got.Hour, got.Minute, def.Hour, def.Minute)
	}
	if got.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", got.Location)
	}
}

func TestScheduleConfig_Normalize_KeepsValid(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Paris")
	cfg := ScheduleConfig{
		Frequency: FrequencyMonthly,
		Weekday:   time.Friday,
		MonthDay:  31,
		Hour:      23,
		Minute:    59,
		Location:  loc,
	}
	if got := cfg.Normalize(); got != cfg {
		t.Errorf("Normalize() changed a valid config: %+v", got)
	}
}

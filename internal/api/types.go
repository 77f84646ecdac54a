package api

import (
	"time"

	"github.com/avesier/menurota/internal/domain"
)

type CreateEntryRequest struct {
	Payload   domain.Payload `json:"payload"`
	CreatedBy string         `json:"created_by,omitempty"`
}

type UpdateEntryRequest struct {
	Payload *domain.Payload `json:"payload,omitempty"`
	Status  *string         `json:"status,omitempty"`
}

type EntryResponse struct {
	ID          string         `json:"id"`
	ScheduledAt string         `json:"scheduled_at"`
	Payload     domain.Payload `json:"payload"`
	Status      string         `json:"status"`
	IsCurrent   bool           `json:"is_current,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

type PlanResponse struct {
	Current        []EntryResponse `json:"current"`
	History        []EntryResponse `json:"history"`
	NeedsMigration bool            `json:"needs_migration,omitempty"`
}

type ScheduleResponse struct {
	Frequency      string `json:"frequency"`
	Weekday        string `json:"weekday"`
	MonthDay       int    `json:"month_day"`
	Time           string `json:"time"`
	Timezone       string `json:"timezone"`
	NextSlot       string `json:"next_slot"`
	PreviousSlot   string `json:"previous_slot"`
	NeedsMigration bool   `json:"needs_migration,omitempty"`
}

type RunResponse struct {
	Executed int `json:"executed"`
}

type RunEntryResponse struct {
	Ran bool `json:"ran"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

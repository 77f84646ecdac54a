package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avesier/menurota/internal/domain"
	"github.com/avesier/menurota/internal/planner"
)

// Pagination defaults and limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Planner is the application service behind every route.
type Planner interface {
	ScheduleSnapshot(ctx context.Context) (planner.Snapshot, error)
	ListCurrentAndHistory(ctx context.Context) (planner.Plan, error)
	GetEntry(ctx context.Context, id uuid.UUID) (domain.Entry, error)
	CreateEntry(ctx context.Context, p domain.Payload, creator uuid.UUID) (domain.Entry, error)
	UpdateEntry(ctx context.Context, id uuid.UUID, params planner.UpdateParams) (domain.Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	RunDue(ctx context.Context) (int, error)
	RunEntry(ctx context.Context, id uuid.UUID) (bool, error)
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	planner Planner
	db      HealthChecker
	clock   func() time.Time
}

func NewHandler(planner Planner) *Handler {
	return &Handler{planner: planner, clock: time.Now}
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *Handler) WithClock(clock func() time.Time) *Handler {
	h.clock = clock
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case path == "/schedule" && r.Method == http.MethodGet:
		h.schedule(w, r)

	case path == "/entries" && r.Method == http.MethodGet:
		h.listEntries(w, r)

	case path == "/entries" && r.Method == http.MethodPost:
		h.createEntry(w, r)

	case strings.HasSuffix(path, "/run") && strings.HasPrefix(path, "/entries/") && r.Method == http.MethodPost:
		h.runEntry(w, r)

	case strings.HasPrefix(path, "/entries/") && r.Method == http.MethodGet:
		h.getEntry(w, r)

	case strings.HasPrefix(path, "/entries/") && r.Method == http.MethodPatch:
		h.updateEntry(w, r)

	case strings.HasPrefix(path, "/entries/") && r.Method == http.MethodDelete:
		h.deleteEntry(w, r)

	case path == "/run" && r.Method == http.MethodPost:
		h.runDue(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	// Check if verbose mode requested via ?verbose=true
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	if snap, err := h.planner.ScheduleSnapshot(ctx); err == nil && snap.NeedsMigration {
		resp.Status = "degraded"
		resp.Components["schema"] = "missing: run migrate"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	snap, err := h.planner.ScheduleSnapshot(r.Context())
	if err != nil {
		log.Printf("api: schedule snapshot error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read schedule")
		return
	}

	cfg := snap.Config
	writeJSON(w, http.StatusOK, ScheduleResponse{
		Frequency:      string(cfg.Frequency),
		Weekday:        strings.ToLower(cfg.Weekday.String()),
		MonthDay:       cfg.MonthDay,
		Time:           fmt.Sprintf("%02d:%02d", cfg.Hour, cfg.Minute),
		Timezone:       cfg.Location.String(),
		NextSlot:       formatTime(snap.NextSlot),
		PreviousSlot:   formatTime(snap.PreviousSlot),
		NeedsMigration: snap.NeedsMigration,
	})
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.planner.ListCurrentAndHistory(r.Context())
	if err != nil {
		log.Printf("api: list entries error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}

	resp := PlanResponse{
		Current:        make([]EntryResponse, len(plan.Current)),
		History:        []EntryResponse{},
		NeedsMigration: plan.NeedsMigration,
	}
	for i, c := range plan.Current {
		resp.Current[i] = entryResponse(c.Entry, c.IsCurrent)
	}
	for _, e := range paginate(plan.History, limit, offset) {
		resp.History = append(resp.History, entryResponse(e, false))
	}

	writeJSON(w, http.StatusOK, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	// Limit request body size to prevent DoS via large payloads
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validatePayload(req.Payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	creator := uuid.Nil
	if req.CreatedBy != "" {
		var err error
		if creator, err = uuid.Parse(req.CreatedBy); err != nil {
			writeError(w, http.StatusBadRequest, "invalid created_by")
			return
		}
	}

	entry, err := h.planner.CreateEntry(r.Context(), req.Payload, creator)
	if err != nil {
		if errors.Is(err, planner.ErrSchemaMissing) {
			writeError(w, http.StatusServiceUnavailable, "schema missing: run migrate")
			return
		}
		log.Printf("api: create entry error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}

	writeJSON(w, http.StatusCreated, entryResponse(entry, false))
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r, 2)
	if !ok {
		return
	}

	entry, err := h.planner.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, planner.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		log.Printf("api: get entry error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read entry")
		return
	}

	writeJSON(w, http.StatusOK, entryResponse(entry, false))
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r, 2)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var params planner.UpdateParams
	if req.Payload != nil {
		if err := validatePayload(*req.Payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.Payload = req.Payload
	}
	if req.Status != nil {
		status, err := validateStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.Status = &status
	}

	entry, err := h.planner.UpdateEntry(r.Context(), id, params)
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrNotFound):
			writeError(w, http.StatusNotFound, "entry not found")
		case errors.Is(err, planner.ErrStatusTerminal):
			writeError(w, http.StatusConflict, "entry is cancelled")
		case errors.Is(err, planner.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid status")
		default:
			log.Printf("api: update entry error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update entry")
		}
		return
	}

	writeJSON(w, http.StatusOK, entryResponse(entry, false))
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r, 2)
	if !ok {
		return
	}

	if err := h.planner.DeleteEntry(r.Context(), id); err != nil {
		if errors.Is(err, planner.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		log.Printf("api: delete entry error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) runDue(w http.ResponseWriter, r *http.Request) {
	executed, err := h.planner.RunDue(r.Context())
	if err != nil {
		log.Printf("api: run due error: %v", err)
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Executed: executed})
}

func (h *Handler) runEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r, 3)
	if !ok {
		return
	}

	// Resolve the three silent no-run cases to distinct codes before
	// delegating: unknown id, not runnable, lease held elsewhere.
	entry, err := h.planner.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, planner.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		log.Printf("api: run entry error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read entry")
		return
	}
	if !entry.Runnable(h.clock().UTC()) {
		writeError(w, http.StatusUnprocessableEntity, "entry is not runnable")
		return
	}

	ran, err := h.planner.RunEntry(r.Context(), id)
	if err != nil {
		log.Printf("api: run entry %s error: %v", id, err)
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}
	if !ran {
		writeError(w, http.StatusConflict, "run in progress elsewhere")
		return
	}

	writeJSON(w, http.StatusOK, RunEntryResponse{Ran: true})
}

// entryID extracts the uuid segment from /entries/{id} or
// /entries/{id}/run paths; wantParts is the expected segment count.
func entryID(w http.ResponseWriter, r *http.Request, wantParts int) (uuid.UUID, bool) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != wantParts || parts[0] != "entries" {
		writeError(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return uuid.Nil, false
	}
	return id, true
}

func entryResponse(e domain.Entry, current bool) EntryResponse {
	// Display decoding degrades the same way runs do: a malformed stored
	// payload renders as an empty mapping.
	payload, err := domain.DecodePayload(e.Payload)
	if err != nil {
		payload = domain.Payload{}
	}

	resp := EntryResponse{
		ID:          e.ID.String(),
		ScheduledAt: formatTime(e.ScheduledAt),
		Payload:     payload,
		Status:      string(e.Status),
		IsCurrent:   current,
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
	}
	if e.CreatedBy != uuid.Nil {
		resp.CreatedBy = e.CreatedBy.String()
	}
	return resp
}

func paginate(entries []domain.Entry, limit, offset int) []domain.Entry {
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// parsePagination extracts and validates limit/offset query parameters.
// Returns DefaultLimit if limit is not specified, and 0 for offset if not specified.
// Returns an error if limit exceeds MaxLimit or if values are negative/invalid.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = DefaultLimit
	offset = 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
		if limit < 0 {
			return 0, 0, strconv.ErrRange
		}
		if limit > MaxLimit {
			return 0, 0, &limitExceededError{max: MaxLimit}
		}
		if limit == 0 {
			limit = DefaultLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
		if offset < 0 {
			return 0, 0, strconv.ErrRange
		}
	}

	return limit, offset, nil
}

type limitExceededError struct {
	max int
}

func (e *limitExceededError) Error() string {
	return "limit exceeds maximum of " + strconv.Itoa(e.max)
}

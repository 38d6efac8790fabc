package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	chi "github.com/go-chi/chi/v5"
	corslib "github.com/rs/cors"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/usecase/schedule"
)

// SnapshotReader отдаёт последний опубликованный снимок и текущее время графика.
type SnapshotReader interface {
	Latest() (domain.Snapshot, bool)
	Now() time.Time
}

// Handler обслуживает read-only API графиков.
type Handler struct {
	labels      []string
	source      SnapshotReader
	corsOrigins []string
}

// NewHandler создаёт обработчик API. Пустой corsOrigins разрешает любой источник.
func NewHandler(labels []string, source SnapshotReader, corsOrigins []string) *Handler {
	return &Handler{labels: append([]string(nil), labels...), source: source, corsOrigins: corsOrigins}
}

// Routes регистрирует маршруты /api/v1.
func (h *Handler) Routes(r chi.Router) {
	c := corslib.New(corslib.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(c.Handler)
		r.Get("/subqueues", h.listSubqueues)
		r.Get("/schedule/{subqueue}", h.getSchedule)
	})
}

type dayResponse struct {
	Date   string   `json:"date"`
	Ranges []string `json:"ranges"`
}

type transitionResponse struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

type scheduleResponse struct {
	Subqueue     string              `json:"subqueue"`
	UpdateMarker string              `json:"update_marker,omitempty"`
	FetchedAt    time.Time           `json:"fetched_at"`
	Fingerprint  string              `json:"fingerprint"`
	Days         []dayResponse       `json:"days"`
	Next         *transitionResponse `json:"next,omitempty"`
}

func (h *Handler) listSubqueues(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"subqueues": h.labels})
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "subqueue")
	if !slices.Contains(h.labels, entity) {
		writeError(w, http.StatusNotFound, "unknown subqueue")
		return
	}
	snap, ok := h.source.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "schedule not loaded yet")
		return
	}

	days := snap.For(entity)
	resp := scheduleResponse{
		Subqueue:     entity,
		UpdateMarker: snap.UpdateMarker,
		FetchedAt:    snap.FetchedAt,
		Fingerprint:  string(schedule.Fingerprint(days)),
		Days:         make([]dayResponse, 0, len(days)),
	}
	for _, d := range days.Dates() {
		day := dayResponse{Date: d.String(), Ranges: make([]string, 0, len(days[d]))}
		for _, rng := range days[d] {
			day.Ranges = append(day.Ranges, rng.String())
		}
		resp.Days = append(resp.Days, day)
	}
	if tr, ok := schedule.Project(days, h.source.Now()); ok {
		resp.Next = &transitionResponse{Kind: string(tr.Kind), At: tr.At}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// Package server exposes the call-platform webhook and the dashboard
// read API over the extraction/queue core.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"callbook/internal/database"
	"callbook/internal/export"
	"callbook/internal/extract"
	"callbook/internal/models"
	"callbook/internal/queue"
)

// Server wires the webhook and dashboard handlers to the pipeline.
type Server struct {
	db        *database.DB
	queue     queue.Queue
	extractor *extract.Extractor
	resolver  *Resolver
	logger    zerolog.Logger
}

// New builds a server over an explicit queue handle. The queue is
// passed in rather than constructed here so the webhook path and the
// saver share one instance chosen at startup.
func New(db *database.DB, q queue.Queue, extractor *extract.Extractor, resolver *Resolver, logger zerolog.Logger) *Server {
	return &Server{
		db:        db,
		queue:     q,
		extractor: extractor,
		resolver:  resolver,
		logger:    logger.With().Str("component", "server").Logger(),
	}
}

// Routes returns the HTTP handler for the service.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /inbound", s.handleHealth)
	mux.HandleFunc("POST /inbound", s.handleInbound)

	mux.HandleFunc("GET /dashboard/pending", s.handlePending)
	mux.HandleFunc("GET /dashboard/call-logs/{restaurantID}", s.handleCallLogs)
	mux.HandleFunc("GET /dashboard/stats/{restaurantID}", s.handleStats)
	mux.HandleFunc("GET /dashboard/export/{restaurantID}", s.handleExport)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

// handleInbound is the single webhook endpoint for all call-platform
// events. It always acknowledges with 200: extraction and queueing are
// best-effort and the platform has nothing useful to do with an error.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn().Err(err).Msg("unreadable webhook payload")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	msg := &payload.Message
	s.logger.Info().Str("type", msg.Type).Msg("incoming webhook message")

	switch msg.Type {
	case "end-of-call-report":
		s.handleEndOfCall(r.Context(), msg)
		writeJSON(w, http.StatusOK, map[string]any{})

	case "response.function_call_arguments", "response.create", "tool-calls":
		results := s.handleToolCalls(r.Context(), msg)
		writeJSON(w, http.StatusOK, map[string]any{"results": results})

	default:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

// handlePending exposes the raw {id, fields, createdTime} queue records
// the dashboard reads.
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	records, err := s.queue.ListAll(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list pending reservations")
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handleCallLogs(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := s.restaurantFromPath(w, r)
	if !ok {
		return
	}

	logs, err := s.db.CallLogsByRestaurant(r.Context(), restaurantID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load call logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"restaurant_id": restaurantID,
		"count":         len(logs),
		"logs":          logs,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := s.restaurantFromPath(w, r)
	if !ok {
		return
	}

	logs, err := s.db.CallLogsByRestaurant(r.Context(), restaurantID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load call logs")
		return
	}

	missed := 0
	hourly := map[string]int{}
	intents := map[string]int{}
	for _, l := range logs {
		if l.Outcome == "missed" {
			missed++
		}
		hourly[l.Timestamp.Format("15")]++
		intent := l.Intent
		if intent == "" {
			intent = "Unknown"
		}
		intents[intent]++
	}

	byHour := make([]map[string]any, 0, len(hourly))
	for _, h := range sortedKeys(hourly) {
		byHour = append(byHour, map[string]any{"hour": h, "calls": hourly[h]})
	}
	intentBreakdown := make([]map[string]any, 0, len(intents))
	for _, k := range sortedKeys(intents) {
		intentBreakdown = append(intentBreakdown, map[string]any{"intent": k, "count": intents[k]})
	}

	reservations, err := s.db.CountReservations(r.Context(), strconv.FormatInt(restaurantID, 10))
	if err != nil {
		reservations = 0
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_calls":        len(logs),
		"missed_calls":       missed,
		"total_reservations": reservations,
		"by_hour":            byHour,
		"intent_breakdown":   intentBreakdown,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := s.restaurantFromPath(w, r)
	if !ok {
		return
	}

	reservations, err := s.db.ListReservations(r.Context(), strconv.FormatInt(restaurantID, 10))
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reservations_%d.xlsx"`, restaurantID))
	if err := export.WriteReservations(w, reservations); err != nil {
		s.logger.Error().Err(err).Msg("write reservations export")
	}
}

// restaurantFromPath parses the path ID and checks the restaurant
// exists, writing the error response itself when it does not.
func (s *Server) restaurantFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("restaurantID"), 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid restaurant id")
		return 0, false
	}

	restaurant, err := s.db.GetRestaurantByID(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "restaurant lookup failed")
		return 0, false
	}
	if restaurant == nil {
		httpError(w, http.StatusNotFound, "restaurant not found")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

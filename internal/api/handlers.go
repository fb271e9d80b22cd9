package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rentmarket/internal/events"
	"rentmarket/internal/models"
	"rentmarket/internal/timerange"
)

const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"
)

func actorFromRequest(r *http.Request) models.Actor {
	return models.Actor{
		ID:   strings.TrimSpace(r.Header.Get(headerActorID)),
		Role: strings.TrimSpace(r.Header.Get(headerActorRole)),
	}
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}

type createReservationRequest struct {
	Kind        string `json:"kind"`
	ProductID   string `json:"product_id"`
	RequesterID string `json:"requester_id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Quantity    int64  `json:"quantity"`
}

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	var body createReservationRequest
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}

	start, err := parseDate(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid start date; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(body.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid end date; expected YYYY-MM-DD")
		return
	}

	res, err := s.svc.CreateReservation(
		r.Context(), body.Kind, body.ProductID, body.RequesterID,
		timerange.New(start, end), body.Quantity,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleReservationByID fans out the /reservations/{id}[/...] routes.
func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "reservation id is required")
		return
	}

	switch action {
	case "":
		s.handleGetReservation(w, r, id)
	case "transition":
		s.handleTransition(w, r, id)
	case "timeline":
		s.handleTimeline(w, r, id)
	case "events":
		s.handleEvents(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	res, err := s.svc.GetReservation(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type transitionRequest struct {
	Target string `json:"target"`
}

func (s *HTTPServer) handleTransition(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var body transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Target == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "target status is required")
		return
	}

	actor := actorFromRequest(r)
	if actor.ID == "" || actor.Role == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "actor headers are required")
		return
	}

	res, err := s.svc.RequestTransition(r.Context(), id, body.Target, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleTimeline(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	timeline, err := s.svc.GetTimeline(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": timeline})
}

// handleEvents streams reservation events as server-sent events. The
// first frame is always a snapshot of current state.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	// slow consumers get dropped frames rather than blocking publishers
	frames := make(chan events.Event, models.EventBufferSize)
	unsubscribe, err := s.svc.Subscribe(r.Context(), id, func(e events.Event) {
		select {
		case frames <- e:
		default:
		}
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-frames:
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
			flusher.Flush()
		}
	}
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	const prefix = "/api/v1/availability/"
	productID := strings.TrimPrefix(r.URL.Path, prefix)
	if productID == "" || strings.Contains(productID, "/") {
		writeError(w, http.StatusBadRequest, "invalid_input", "product id is required")
		return
	}

	start, err := parseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid start date; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid end date; expected YYYY-MM-DD")
		return
	}

	available, err := s.svc.Availability(r.Context(), productID, timerange.New(start, end))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"start":      start.Format("2006-01-02"),
		"end":        end.Format("2006-01-02"),
		"available":  available,
	})
}

func (s *HTTPServer) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	products, err := s.svc.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *HTTPServer) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "not_found", "exports are not configured")
		return
	}

	start, err := parseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid start date; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid end date; expected YYYY-MM-DD")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.xlsx"`)
	if err := s.exporter.WriteSchedule(r.Context(), w, start, end); err != nil {
		s.logger.Error().Err(err).Msg("schedule export failed")
	}
}

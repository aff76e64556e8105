/**
 * @description
 * This file contains the HTTP handlers for the mission-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * Error mapping is uniform across handlers: validation problems are 400,
 * ownership problems are 403, missing records are 404, lost conditional writes
 * (stale toggle, already-decided application, full or inactive mission) are 409,
 * and an unreachable store is 503.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fluzio/mission-service/internal/app"
	"github.com/fluzio/mission-service/internal/domain"
	"github.com/fluzio/mission-service/internal/store"
)

// MissionHandlers holds the application service that handlers will use.
type MissionHandlers struct {
	service *app.Service
}

// NewMissionHandlers creates a new instance of MissionHandlers.
func NewMissionHandlers(service *app.Service) *MissionHandlers {
	return &MissionHandlers{service: service}
}

// subjectUUID reads the authenticated subject from the context and parses it
// as the acting account id. Writes the error response itself on failure.
func (h *MissionHandlers) subjectUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	subject, ok := GetSubjectID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "Invalid subject in token")
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID parses a chi URL parameter as a UUID.
func (h *MissionHandlers) pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// CreateMissionHandler handles requests to create a custom mission. The
// mission is owned by the authenticated business and starts ACTIVE.
func (h *MissionHandlers) CreateMissionHandler(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}

	var req domain.CreateMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mission, err := h.service.CreateMission(r.Context(), businessID, req)
	if err != nil {
		h.writeServiceError(w, err, "create mission")
		return
	}

	h.writeJSON(w, http.StatusCreated, mission)
}

// GetMissionHandler returns a single mission by id. This is the read-through
// path: it may be served from the cache mirror.
func (h *MissionHandlers) GetMissionHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.subjectUUID(w, r); !ok {
		return
	}
	missionID, ok := h.pathUUID(w, r, "missionID")
	if !ok {
		return
	}

	mission, err := h.service.GetMission(r.Context(), missionID)
	if err != nil {
		h.writeServiceError(w, err, "get mission")
		return
	}

	h.writeJSON(w, http.StatusOK, mission)
}

// ListBusinessMissionsHandler returns every mission owned by the
// authenticated business, newest first.
func (h *MissionHandlers) ListBusinessMissionsHandler(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}

	missions, err := h.service.ListBusinessMissions(r.Context(), businessID)
	if err != nil {
		h.writeServiceError(w, err, "list missions")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"missions": missions})
}

// ToggleMissionHandler flips a mission between ACTIVE and PAUSED. The request
// carries the caller's view of the current state; a stale view is a 409.
func (h *MissionHandlers) ToggleMissionHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.subjectUUID(w, r); !ok {
		return
	}
	missionID, ok := h.pathUUID(w, r, "missionID")
	if !ok {
		return
	}

	var req domain.ToggleMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mission, err := h.service.ToggleMissionStatus(r.Context(), missionID, req.CurrentlyActive)
	if err != nil {
		h.writeServiceError(w, err, "toggle mission")
		return
	}

	h.writeJSON(w, http.StatusOK, mission)
}

// ActivateTemplateHandler activates a standard-mission template for the
// authenticated business. Activating an already-active template is a no-op
// and returns the existing mission with 200; a fresh activation returns 201.
func (h *MissionHandlers) ActivateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}

	var req domain.ActivateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mission, created, err := h.service.ActivateTemplate(r.Context(), businessID, req)
	if err != nil {
		h.writeServiceError(w, err, "activate template")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, mission)
}

// ApplyToMissionHandler submits the authenticated creator's application to a
// mission. The application starts PENDING.
func (h *MissionHandlers) ApplyToMissionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}
	missionID, ok := h.pathUUID(w, r, "missionID")
	if !ok {
		return
	}

	participation, err := h.service.ApplyToMission(r.Context(), missionID, userID)
	if err != nil {
		h.writeServiceError(w, err, "apply to mission")
		return
	}

	h.writeJSON(w, http.StatusCreated, participation)
}

// ApproveParticipationHandler approves a pending application and awards the
// mission's reward points to the creator.
func (h *MissionHandlers) ApproveParticipationHandler(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}
	participationID, ok := h.pathUUID(w, r, "participationID")
	if !ok {
		return
	}

	participation, err := h.service.ApproveParticipation(r.Context(), participationID, businessID)
	if err != nil {
		h.writeServiceError(w, err, "approve participation")
		return
	}

	h.writeJSON(w, http.StatusOK, participation)
}

// RejectParticipationHandler rejects a pending application. No points move.
func (h *MissionHandlers) RejectParticipationHandler(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}
	participationID, ok := h.pathUUID(w, r, "participationID")
	if !ok {
		return
	}

	participation, err := h.service.RejectParticipation(r.Context(), participationID, businessID)
	if err != nil {
		h.writeServiceError(w, err, "reject participation")
		return
	}

	h.writeJSON(w, http.StatusOK, participation)
}

// ListBusinessApplicationsHandler returns every application across the
// authenticated business's missions.
func (h *MissionHandlers) ListBusinessApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}

	participations, err := h.service.ListBusinessParticipations(r.Context(), businessID)
	if err != nil {
		h.writeServiceError(w, err, "list applications")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"applications": participations})
}

// ListMissionApplicationsHandler returns the applications for one mission.
func (h *MissionHandlers) ListMissionApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.subjectUUID(w, r); !ok {
		return
	}
	missionID, ok := h.pathUUID(w, r, "missionID")
	if !ok {
		return
	}

	participations, err := h.service.ListMissionParticipations(r.Context(), missionID)
	if err != nil {
		h.writeServiceError(w, err, "list mission applications")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"applications": participations})
}

// MissionPerformanceHandler returns the analyzer's read model for one mission.
func (h *MissionHandlers) MissionPerformanceHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.subjectUUID(w, r); !ok {
		return
	}
	missionID, ok := h.pathUUID(w, r, "missionID")
	if !ok {
		return
	}

	perf, err := h.service.AnalyzeMission(r.Context(), missionID)
	if err != nil {
		h.writeServiceError(w, err, "analyze mission")
		return
	}

	h.writeJSON(w, http.StatusOK, perf)
}

// PricingRecommendationsHandler returns advisory pricing actions for every
// active mission of the authenticated business.
func (h *MissionHandlers) PricingRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}

	recs, err := h.service.BusinessRecommendations(r.Context(), businessID)
	if err != nil {
		h.writeServiceError(w, err, "pricing recommendations")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

// PricingEstimateHandler suggests starting points for a mission the
// authenticated business has not created yet. Query parameters:
// mission_type (required), category (required), complexity (default MEDIUM).
func (h *MissionHandlers) PricingEstimateHandler(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}

	missionType, err := domain.ParseMissionType(r.URL.Query().Get("mission_type"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid or missing mission_type")
		return
	}

	category := r.URL.Query().Get("category")
	if category == "" {
		h.writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	complexity := domain.ComplexityMedium
	if raw := r.URL.Query().Get("complexity"); raw != "" {
		complexity, err = domain.ParseComplexity(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid complexity")
			return
		}
	}

	estimate := h.service.EstimateStartingPoints(r.Context(), businessID, missionType, category, complexity)
	h.writeJSON(w, http.StatusOK, estimate)
}

// writeServiceError maps application and store errors onto HTTP statuses.
func (h *MissionHandlers) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, app.ErrInvalidMissionReq):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotMissionOwner):
		h.writeError(w, http.StatusForbidden, "You do not own this mission")
	case errors.Is(err, store.ErrMissionNotFound):
		h.writeError(w, http.StatusNotFound, "Mission not found")
	case errors.Is(err, store.ErrParticipationNotFound):
		h.writeError(w, http.StatusNotFound, "Application not found")
	case errors.Is(err, store.ErrAlreadyDecided):
		h.writeError(w, http.StatusConflict, "Application has already been decided")
	case errors.Is(err, app.ErrMissionInactive):
		h.writeError(w, http.StatusConflict, "Mission is not accepting applications")
	case errors.Is(err, app.ErrMissionFull):
		h.writeError(w, http.StatusConflict, "Mission has reached its participant cap")
	case errors.Is(err, app.ErrMissionCompleted):
		h.writeError(w, http.StatusConflict, "Mission is completed and cannot change")
	case errors.Is(err, store.ErrLifecycleConflict):
		h.writeError(w, http.StatusConflict, "Mission state changed concurrently; retry with fresh state")
	case errors.Is(err, store.ErrStoreUnavailable):
		log.Printf("level=error component=api msg=\"store unavailable\" op=%q err=%v", op, err)
		h.writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" op=%q err=%v", op, err)
		h.writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *MissionHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *MissionHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

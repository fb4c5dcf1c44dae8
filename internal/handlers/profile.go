package handlers

import (
	"net/http"

	"skillswap-gateway/internal/services"
	"skillswap-gateway/internal/upstream"

	"github.com/go-chi/chi/v5"
)

// ProfileHandler serves the profile screen and other users' profiles
type ProfileHandler struct {
	profiles *services.ProfileService
	access   services.ViewerAccess
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *services.ProfileService, access services.ViewerAccess) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, access: access}
}

// LocationRequest is a precise device position
type LocationRequest struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Location     string   `json:"location"`
	ShowLocation bool     `json:"show_location"`
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.Get(r.Context(), userID(r))
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// View handles GET /api/v1/users/{user_id}/profile
func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	target, err := pathID(r, "user_id")
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	view, err := h.profiles.View(r.Context(), userID(r), target, h.access)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Save handles PUT /api/v1/profile
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}

	view, err := h.profiles.Save(r.Context(), userID(r), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// UpdateLocation handles PUT /api/v1/profile/location
func (h *ProfileHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		respondError(w, "latitude and longitude are required", http.StatusBadRequest)
		return
	}

	profile, err := h.profiles.UpdateLocation(r.Context(), userID(r), upstream.Location{
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		Location:     req.Location,
		ShowLocation: req.ShowLocation,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// AddAttribute handles POST /api/v1/profile/{kind}
func (h *ProfileHandler) AddAttribute(w http.ResponseWriter, r *http.Request) {
	kind, err := services.ParseAttributeKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	var in services.AttributeInput
	if err := decodeJSON(r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}

	created, err := h.profiles.AddAttribute(r.Context(), userID(r), kind, in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// DeleteAttribute handles DELETE /api/v1/profile/{kind}/{id}
func (h *ProfileHandler) DeleteAttribute(w http.ResponseWriter, r *http.Request) {
	kind, err := services.ParseAttributeKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	if err := h.profiles.DeleteAttribute(r.Context(), userID(r), kind, id); err != nil {
		respondAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/discover"
	"skillswap-gateway/internal/services"
)

// DiscoverHandler serves the swipe deck
type DiscoverHandler struct {
	discover *services.DiscoverService
}

// NewDiscoverHandler creates a new discover handler
func NewDiscoverHandler(discover *services.DiscoverService) *DiscoverHandler {
	return &DiscoverHandler{discover: discover}
}

// SwipeRequest records a like or pass
type SwipeRequest struct {
	SwipeeID int64 `json:"swipee_id"`
	Like     bool  `json:"like"`
}

// Candidates handles GET /api/v1/discover?years=Junior,Senior&nearby=true&max_distance_km=25
func (h *DiscoverHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	cands, err := h.discover.Candidates(r.Context(), userID(r), filter)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": cands,
		"total":      len(cands),
	})
}

func parseFilter(r *http.Request) (discover.Filter, error) {
	q := r.URL.Query()

	var f discover.Filter
	for _, v := range q["years"] {
		for _, y := range strings.Split(v, ",") {
			if y = strings.TrimSpace(y); y != "" {
				f.Years = append(f.Years, y)
			}
		}
	}

	if v := q.Get("nearby"); v != "" {
		nearby, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperr.InvalidArg("invalid nearby")
		}
		f.NearbyOnly = nearby
	}

	if v := q.Get("max_distance_km"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 {
			return f, apperr.InvalidArg("invalid max_distance_km")
		}
		f.MaxDistanceKm = d
	}

	return f, nil
}

// Swipe handles POST /api/v1/discover/swipes. A swipe the backend rejected is
// answered with 502 and the reverted outcome; the card is back in the deck.
func (h *DiscoverHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	var req SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	if req.SwipeeID <= 0 {
		respondAppError(w, r, apperr.InvalidArg("swipee_id is required"))
		return
	}

	out, err := h.discover.Swipe(r.Context(), userID(r), req.SwipeeID, req.Like)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	status := http.StatusOK
	if out.Status == discover.SwipeReverted {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, out)
}

// Stats handles GET /api/v1/discover/stats
func (h *DiscoverHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.discover.Stats(r.Context(), userID(r))
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

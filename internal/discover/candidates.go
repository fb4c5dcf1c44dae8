// Package discover builds the swipe deck: which users are shown, how far away
// they are and in which order.
package discover

import (
	"math"

	"skillswap-gateway/internal/models"
)

// DefaultMaxDistanceKm applies when the nearby filter has no explicit radius
const DefaultMaxDistanceKm = 50.0

// Filter narrows the candidate list
type Filter struct {
	// Years keeps candidates whose profile year is any of the values. Empty keeps all.
	Years         []string
	NearbyOnly    bool
	MaxDistanceKm float64
}

func (f Filter) maxDistance() float64 {
	if f.MaxDistanceKm > 0 {
		return f.MaxDistanceKm
	}
	return DefaultMaxDistanceKm
}

func (f Filter) yearAllowed(year string) bool {
	if len(f.Years) == 0 {
		return true
	}
	for _, y := range f.Years {
		if y == year {
			return true
		}
	}
	return false
}

// Input is everything loaded for one discover request
type Input struct {
	UserID   int64
	Users    []*models.User
	Profiles []*models.Profile
	// Swipes is UserID's swipe history, likes and passes alike.
	Swipes []*models.Swipe
	Filter Filter
}

// Candidate is one card of the deck
type Candidate struct {
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile,omitempty"`
	// Distance is in kilometers, nil when either side has no coordinates.
	Distance *float64 `json:"distance_km,omitempty"`
	PhotoURL string   `json:"photo_url,omitempty"`
}

// BuildCandidates returns the users that can still be swiped on, in load order.
func BuildCandidates(in Input) []*Candidate {
	profiles := make(map[int64]*models.Profile, len(in.Profiles))
	for _, p := range in.Profiles {
		if p == nil {
			continue
		}
		if _, ok := profiles[p.UserID]; !ok {
			profiles[p.UserID] = p
		}
	}

	swiped := make(map[int64]struct{}, len(in.Swipes))
	for _, s := range in.Swipes {
		if s != nil {
			swiped[s.SwipeeID] = struct{}{}
		}
	}

	var (
		origin    Coord
		hasOrigin bool
	)
	for _, u := range in.Users {
		if u != nil && u.ID == in.UserID {
			origin, hasOrigin = position(u, profiles[u.ID])
			break
		}
	}

	out := make([]*Candidate, 0, len(in.Users))
	for _, u := range in.Users {
		if u == nil || u.ID == in.UserID {
			continue
		}
		if _, ok := swiped[u.ID]; ok {
			continue
		}

		c := &Candidate{User: u, Profile: profiles[u.ID]}
		if hasOrigin {
			if pos, ok := position(u, c.Profile); ok {
				d := round1(Haversine(origin, pos))
				c.Distance = &d
			}
		}

		if !in.Filter.yearAllowed(c.year()) {
			continue
		}
		if in.Filter.NearbyOnly && (c.Distance == nil || *c.Distance > in.Filter.maxDistance()) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (c *Candidate) year() string {
	if c.Profile == nil {
		return ""
	}
	return c.Profile.Year
}

func position(u *models.User, p *models.Profile) (Coord, bool) {
	if p != nil {
		return coordOf(p.Latitude, p.Longitude, u.Latitude, u.Longitude)
	}
	return coordOf(nil, nil, u.Latitude, u.Longitude)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

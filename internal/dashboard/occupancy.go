package dashboard

import (
	"time"

	"github.com/kotor-apartments/stayboard/internal/property"
)

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// IsOccupied reports whether a non-cancelled reservation for the apartment
// covers the day of ref. Stay bounds are closed and normalised to whole days
// in ref's location.
func IsOccupied(apartmentID string, ref time.Time, reservations []property.Reservation) bool {
	if apartmentID == "" {
		return false
	}
	loc := ref.Location()
	day := startOfDay(ref, loc)
	for _, res := range reservations {
		if res.Cancelled() || res.Apartment.ID() != apartmentID {
			continue
		}
		if res.CheckInDateTime.IsZero() || res.CheckOutDateTime.IsZero() {
			continue
		}
		in := startOfDay(res.CheckInDateTime, loc)
		out := endOfDay(res.CheckOutDateTime, loc)
		if !in.After(day) && !out.Before(day) {
			return true
		}
	}
	return false
}

// OccupancyIndex memoises occupancy lookups for a single render.
type OccupancyIndex struct {
	ref          time.Time
	reservations []property.Reservation
	cache        map[string]bool
}

// NewOccupancyIndex binds the reservation set and reference instant.
func NewOccupancyIndex(ref time.Time, reservations []property.Reservation) *OccupancyIndex {
	return &OccupancyIndex{ref: ref, reservations: reservations, cache: make(map[string]bool)}
}

// Occupied resolves the apartment once and serves repeats from memory.
func (o *OccupancyIndex) Occupied(apartmentID string) bool {
	if v, ok := o.cache[apartmentID]; ok {
		return v
	}
	v := IsOccupied(apartmentID, o.ref, o.reservations)
	o.cache[apartmentID] = v
	return v
}

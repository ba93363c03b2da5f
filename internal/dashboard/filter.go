package dashboard

import (
	"strings"

	"github.com/kotor-apartments/stayboard/internal/property"
)

// FilterAll disables status filtering for every collection.
const FilterAll = "all"

// Reservation status filters.
const (
	ReservationActive    = "active"
	ReservationCancelled = "cancelled"
)

// Apartment status filters.
const (
	ApartmentAvailable = "available"
	ApartmentOccupied  = "occupied"
)

// Filters carries the search term and the three status selections.
type Filters struct {
	Search       string `json:"q"`
	Reservations string `json:"reservations"`
	Cleaning     string `json:"cleaning"`
	Apartments   string `json:"apartments"`
}

// Normalize fills blank selections with FilterAll. The search term is kept
// verbatim, so a whitespace-only term only matches fields containing it.
func (f Filters) Normalize() Filters {
	if f.Reservations == "" {
		f.Reservations = FilterAll
	}
	if f.Cleaning == "" {
		f.Cleaning = FilterAll
	}
	if f.Apartments == "" {
		f.Apartments = FilterAll
	}
	return f
}

func contains(field, term string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), term)
}

func embeddedName[T property.Record](ref property.Ref[T], field func(T) string) string {
	name, _ := ref.Name(field)
	return name
}

// MatchReservation applies the search term to the guest name and embedded
// apartment name, then the active/cancelled filter.
func MatchReservation(res property.Reservation, search, status string) bool {
	if term := strings.ToLower(search); term != "" {
		if !contains(res.GuestName(), term) && !contains(embeddedName(res.Apartment, property.ApartmentName), term) {
			return false
		}
	}
	switch status {
	case "", FilterAll:
		return true
	case ReservationActive:
		return !res.Cancelled()
	case ReservationCancelled:
		return res.Cancelled()
	default:
		return false
	}
}

// MatchCleaningJob applies the search term to the embedded apartment and
// cleaner names, then an exact job status filter.
func MatchCleaningJob(job property.CleaningJob, search, status string) bool {
	if term := strings.ToLower(search); term != "" {
		if !contains(embeddedName(job.Apartment, property.ApartmentName), term) && !contains(embeddedName(job.Cleaner, property.CleanerName), term) {
			return false
		}
	}
	if status == "" || status == FilterAll {
		return true
	}
	return string(job.JobStatus) == status
}

// MatchApartment applies the search term to the apartment and embedded owner
// names, then the availability filter using the occupancy index.
func MatchApartment(apt property.Apartment, search, status string, occupancy *OccupancyIndex) bool {
	if term := strings.ToLower(search); term != "" {
		if !contains(apt.ApartmentName, term) && !contains(embeddedName(apt.Owner, property.OwnerName), term) {
			return false
		}
	}
	switch status {
	case "", FilterAll:
		return true
	case ApartmentAvailable:
		return !occupancy.Occupied(apt.RecordID())
	case ApartmentOccupied:
		return occupancy.Occupied(apt.RecordID())
	default:
		return false
	}
}

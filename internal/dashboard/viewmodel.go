package dashboard

import (
	"fmt"
	"time"

	"github.com/kotor-apartments/stayboard/internal/property"
)

// Row caps applied to the preview tables.
const (
	ReservationPreviewRows = 5
	CleaningPreviewRows    = 4
)

// Viewer identifies the signed-in user. A nil viewer is anonymous.
type Viewer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DisplayName prefers the name and falls back to the email.
func (v *Viewer) DisplayName() string {
	if v == nil {
		return ""
	}
	if v.Name != "" {
		return v.Name
	}
	return v.Email
}

// Input is everything a view model is derived from.
type Input struct {
	Apartments   []property.Apartment
	Reservations []property.Reservation
	CleaningJobs []property.CleaningJob
	Filters      Filters
	Now          time.Time
	LastUpdated  time.Time
	Viewer       *Viewer
}

// StatCard is one headline statistic.
type StatCard struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Change  string `json:"change"`
	Trend   string `json:"trend"`
	TrendUp bool   `json:"trendUp"`
}

// ReservationRow is a display row of the reservations table.
type ReservationRow struct {
	ID        string    `json:"id"`
	Guest     string    `json:"guest"`
	Apartment string    `json:"apartment"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
	Paid      float64   `json:"paid"`
	Cancelled bool      `json:"cancelled"`
	Status    string    `json:"status"`
}

// CleaningRow is a display row of the cleaning schedule.
type CleaningRow struct {
	ID        string    `json:"id"`
	Apartment string    `json:"apartment"`
	Cleaner   string    `json:"cleaner"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	OwnerCost *float64  `json:"ownerCost,omitempty"`
	Priority  *int      `json:"priority,omitempty"`
}

// ApartmentRow is a display row of the apartments table.
type ApartmentRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Capacity int    `json:"capacity"`
	HasAC    bool   `json:"hasAC"`
	Occupied bool   `json:"occupied"`
	Status   string `json:"status"`
}

// Revenue summarises the current month against the previous one.
type Revenue struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
}

// ViewModel is the presentation-ready dashboard.
type ViewModel struct {
	Viewer       *Viewer          `json:"viewer,omitempty"`
	Filters      Filters          `json:"filters"`
	GeneratedAt  time.Time        `json:"generatedAt"`
	LastUpdated  time.Time        `json:"lastUpdated"`
	Stats        []StatCard       `json:"stats"`
	Revenue      Revenue          `json:"revenue"`
	RealSeries   []RevenuePoint   `json:"realSeries"`
	Chart        []ChartPoint     `json:"chart"`
	Reservations []ReservationRow `json:"reservations"`
	CleaningJobs []CleaningRow    `json:"cleaningJobs"`
	Apartments   []ApartmentRow   `json:"apartments"`
	Totals       Totals           `json:"totals"`
}

// Totals counts the deduplicated and filtered collections before preview caps.
type Totals struct {
	Apartments           int `json:"apartments"`
	Reservations         int `json:"reservations"`
	CleaningJobs         int `json:"cleaningJobs"`
	FilteredApartments   int `json:"filteredApartments"`
	FilteredReservations int `json:"filteredReservations"`
	FilteredCleaningJobs int `json:"filteredCleaningJobs"`
}

// Build derives the view model from in. It is pure: equal inputs give equal output.
func Build(in Input) ViewModel {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	filters := in.Filters.Normalize()

	apartments := Dedupe(in.Apartments)
	reservations := Dedupe(in.Reservations)
	jobs := Dedupe(in.CleaningJobs)
	occupancy := NewOccupancyIndex(now, reservations)

	vm := ViewModel{
		Viewer:       in.Viewer,
		Filters:      filters,
		GeneratedAt:  now,
		LastUpdated:  in.LastUpdated,
		Reservations: []ReservationRow{},
		CleaningJobs: []CleaningRow{},
		Apartments:   []ApartmentRow{},
	}
	if vm.LastUpdated.IsZero() {
		vm.LastUpdated = now
	}

	loc := now.Location()
	prevYear, prevMonth := PreviousMonth(now.Year(), now.Month())
	vm.Revenue.Current = MonthlyRevenue(reservations, now.Year(), now.Month(), loc)
	vm.Revenue.Previous = MonthlyRevenue(reservations, prevYear, prevMonth, loc)
	vm.Revenue.Change = PercentChange(vm.Revenue.Current, vm.Revenue.Previous)

	vm.RealSeries = RevenueSeries(reservations, now, TrendWindowMonths)
	vm.Chart = ChartSeries(WithPlaceholders(vm.RealSeries))
	vm.Stats = buildStats(apartments, reservations, jobs, vm.Revenue, now)

	for _, res := range reservations {
		if !MatchReservation(res, filters.Search, filters.Reservations) {
			continue
		}
		vm.Totals.FilteredReservations++
		if len(vm.Reservations) < ReservationPreviewRows {
			vm.Reservations = append(vm.Reservations, reservationRow(res))
		}
	}
	for _, job := range jobs {
		if !MatchCleaningJob(job, filters.Search, filters.Cleaning) {
			continue
		}
		vm.Totals.FilteredCleaningJobs++
		if len(vm.CleaningJobs) < CleaningPreviewRows {
			vm.CleaningJobs = append(vm.CleaningJobs, cleaningRow(job))
		}
	}
	for _, apt := range apartments {
		if !MatchApartment(apt, filters.Search, filters.Apartments, occupancy) {
			continue
		}
		vm.Apartments = append(vm.Apartments, apartmentRow(apt, occupancy.Occupied(apt.RecordID())))
	}
	vm.Totals.Apartments = len(apartments)
	vm.Totals.Reservations = len(reservations)
	vm.Totals.CleaningJobs = len(jobs)
	vm.Totals.FilteredApartments = len(vm.Apartments)
	return vm
}

func buildStats(apartments []property.Apartment, reservations []property.Reservation, jobs []property.CleaningJob, rev Revenue, now time.Time) []StatCard {
	active := 0
	for _, res := range reservations {
		if !res.Cancelled() {
			active++
		}
	}
	pending, today := 0, 0
	loc := now.Location()
	day := startOfDay(now, loc)
	for _, job := range jobs {
		if job.JobStatus != property.JobScheduled {
			continue
		}
		pending++
		if !job.CleaningDate.IsZero() && startOfDay(job.CleaningDate, loc).Equal(day) {
			today++
		}
	}

	return []StatCard{
		{
			Name:    "Total Apartments",
			Value:   FormatCount(len(apartments)),
			Change:  "+2 from last month",
			Trend:   "New properties added",
			TrendUp: true,
		},
		{
			Name:    "Active Reservations",
			Value:   FormatCount(active),
			Change:  "+12% from last month",
			Trend:   "Strong booking activity",
			TrendUp: true,
		},
		{
			Name:    "Pending Cleaning",
			Value:   FormatCount(pending),
			Change:  fmt.Sprintf("%d scheduled today", today),
			Trend:   "Cleaning tasks pending",
			TrendUp: false,
		},
		{
			Name:    "Monthly Revenue",
			Value:   FormatCurrency(rev.Current),
			Change:  changeText(rev),
			Trend:   "Revenue trending up",
			TrendUp: rev.Change > 0,
		},
	}
}

func changeText(rev Revenue) string {
	if rev.Previous == 0 {
		return "0% from last month"
	}
	sign := ""
	if rev.Change > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%% from last month", sign, rev.Change)
}

func reservationRow(res property.Reservation) ReservationRow {
	guest := res.GuestName()
	if guest == "" {
		guest = "Unknown"
	}
	status := "Confirmed"
	if res.Cancelled() {
		status = "Cancelled"
	}
	return ReservationRow{
		ID:        res.RecordID(),
		Guest:     guest,
		Apartment: res.Apartment.Label("Apartment", property.ApartmentName),
		CheckIn:   res.CheckInDateTime,
		CheckOut:  res.CheckOutDateTime,
		Paid:      res.PaidAmount(),
		Cancelled: res.Cancelled(),
		Status:    status,
	}
}

func cleaningRow(job property.CleaningJob) CleaningRow {
	status := string(job.JobStatus)
	if status == "" {
		status = string(property.JobScheduled)
	}
	row := CleaningRow{
		ID:        job.RecordID(),
		Apartment: job.Apartment.Label("Apartment", property.ApartmentName),
		Cleaner:   job.Cleaner.Label("", property.CleanerName),
		Date:      job.CleaningDate,
		Status:    status,
		Priority:  job.CleaningOrderPriority,
	}
	if cost, ok := job.OwnerCost(); ok {
		row.OwnerCost = &cost
	}
	return row
}

func apartmentRow(apt property.Apartment, occupied bool) ApartmentRow {
	status := "Available"
	if occupied {
		status = "Occupied"
	}
	row := ApartmentRow{
		ID:       apt.RecordID(),
		Name:     apt.ApartmentName,
		Owner:    apt.Owner.Label("Owner", property.OwnerName),
		HasAC:    apt.HasAC != nil && *apt.HasAC,
		Occupied: occupied,
		Status:   status,
	}
	if apt.Capacity != nil {
		row.Capacity = *apt.Capacity
	}
	return row
}

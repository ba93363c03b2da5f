package dashboard

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kotor-apartments/stayboard/internal/property"
)

// TrendWindowMonths is the length of the revenue chart series.
const TrendWindowMonths = 6

// placeholderRevenue fills zero-revenue chart slots, oldest to newest.
var placeholderRevenue = [TrendWindowMonths]float64{3200, 2800, 4500, 3800, 5200, 4100}

// RevenuePoint is the revenue of one calendar month.
type RevenuePoint struct {
	Year        int        `json:"year"`
	Month       time.Month `json:"month"`
	Label       string     `json:"label"`
	Revenue     float64    `json:"revenue"`
	Placeholder bool       `json:"placeholder"`
}

// ChartPoint is a chart-ready month with the preceding month's value.
type ChartPoint struct {
	Month       string  `json:"month"`
	Current     float64 `json:"current"`
	Previous    float64 `json:"previous"`
	Placeholder bool    `json:"placeholder"`
}

// MonthLabel formats a month as "Jan 2024".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month.String()[:3], year)
}

// MonthlyRevenue sums guest-paid amounts of non-cancelled reservations whose
// check-in falls in the month, evaluated in loc. Missing amounts count as zero.
func MonthlyRevenue(reservations []property.Reservation, year int, month time.Month, loc *time.Location) float64 {
	if loc == nil {
		loc = time.UTC
	}
	total := decimal.Zero
	for _, res := range reservations {
		if res.Cancelled() || res.CheckInDateTime.IsZero() {
			continue
		}
		in := res.CheckInDateTime.In(loc)
		if in.Year() != year || in.Month() != month {
			continue
		}
		total = total.Add(decimal.NewFromFloat(res.PaidAmount()))
	}
	return total.InexactFloat64()
}

// PreviousMonth returns the calendar month before the given one.
func PreviousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// PercentChange returns the month-over-month change rounded to one decimal.
// A zero previous value yields 0 rather than an undefined ratio.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	cur := decimal.NewFromFloat(current)
	prev := decimal.NewFromFloat(previous)
	return cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
}

// RevenueSeries computes the trailing months of real revenue ending with the
// month of now, oldest first.
func RevenueSeries(reservations []property.Reservation, now time.Time, months int) []RevenuePoint {
	if months <= 0 {
		months = TrendWindowMonths
	}
	loc := now.Location()
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	points := make([]RevenuePoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		m := anchor.AddDate(0, -i, 0)
		points = append(points, RevenuePoint{
			Year:    m.Year(),
			Month:   m.Month(),
			Label:   MonthLabel(m.Year(), m.Month()),
			Revenue: MonthlyRevenue(reservations, m.Year(), m.Month(), loc),
		})
	}
	return points
}

// WithPlaceholders returns a copy of the series where real zeros are replaced
// by sample values so the chart is never empty. Replaced points are flagged.
func WithPlaceholders(series []RevenuePoint) []RevenuePoint {
	out := make([]RevenuePoint, len(series))
	copy(out, series)
	offset := len(placeholderRevenue) - len(out)
	for i := range out {
		if out[i].Revenue != 0 {
			continue
		}
		slot := i + offset
		if slot < 0 || slot >= len(placeholderRevenue) {
			continue
		}
		out[i].Revenue = placeholderRevenue[slot]
		out[i].Placeholder = true
	}
	return out
}

// ChartSeries pairs each month with the value of the month before it.
func ChartSeries(series []RevenuePoint) []ChartPoint {
	points := make([]ChartPoint, 0, len(series))
	for i, p := range series {
		prev := 0.0
		if i > 0 {
			prev = series[i-1].Revenue
		}
		points = append(points, ChartPoint{
			Month:       p.Label,
			Current:     p.Revenue,
			Previous:    prev,
			Placeholder: p.Placeholder,
		})
	}
	return points
}

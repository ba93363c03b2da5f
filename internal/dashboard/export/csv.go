package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kotor-apartments/stayboard/internal/dashboard"
)

const dateLayout = "2006-01-02"

// WriteDashboardCSV writes every section of the view model, separated by a
// blank line.
func WriteDashboardCSV(w io.Writer, vm dashboard.ViewModel) error {
	sections := []func(io.Writer) error{
		func(w io.Writer) error { return WriteStatsCSV(w, vm.Stats, vm.LastUpdated) },
		func(w io.Writer) error { return WriteChartCSV(w, vm.Chart) },
		func(w io.Writer) error { return WriteReservationsCSV(w, vm.Reservations) },
		func(w io.Writer) error { return WriteCleaningJobsCSV(w, vm.CleaningJobs) },
		func(w io.Writer) error { return WriteApartmentsCSV(w, vm.Apartments) },
	}
	for i, section := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := section(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatsCSV serialises the headline statistics.
func WriteStatsCSV(w io.Writer, stats []dashboard.StatCard, lastUpdated time.Time) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Metric", "Value", "Change", "Trend"}); err != nil {
		return err
	}
	if !lastUpdated.IsZero() {
		if err := writer.Write([]string{"Last Updated", lastUpdated.Format(time.RFC3339), "", ""}); err != nil {
			return err
		}
	}
	for _, card := range stats {
		if err := writer.Write([]string{card.Name, card.Value, card.Change, card.Trend}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteChartCSV emits the monthly revenue series.
func WriteChartCSV(w io.Writer, points []dashboard.ChartPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Month", "Revenue", "Previous", "Sample"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{
			point.Month,
			formatMoney(point.Current),
			formatMoney(point.Previous),
			strconv.FormatBool(point.Placeholder),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteReservationsCSV emits the reservation rows.
func WriteReservationsCSV(w io.Writer, rows []dashboard.ReservationRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Reservation", "Guest", "Apartment", "Check In", "Check Out", "Paid", "Status"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.ID,
			row.Guest,
			row.Apartment,
			formatDate(row.CheckIn),
			formatDate(row.CheckOut),
			formatMoney(row.Paid),
			row.Status,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCleaningJobsCSV emits the cleaning schedule rows.
func WriteCleaningJobsCSV(w io.Writer, rows []dashboard.CleaningRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Job", "Apartment", "Cleaner", "Date", "Status", "Owner Cost"}); err != nil {
		return err
	}
	for _, row := range rows {
		cost := ""
		if row.OwnerCost != nil {
			cost = formatMoney(*row.OwnerCost)
		}
		if err := writer.Write([]string{row.ID, row.Apartment, row.Cleaner, formatDate(row.Date), row.Status, cost}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteApartmentsCSV emits the apartment rows with their occupancy.
func WriteApartmentsCSV(w io.Writer, rows []dashboard.ApartmentRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Apartment", "Name", "Owner", "Capacity", "AC", "Status"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.ID,
			row.Name,
			row.Owner,
			strconv.Itoa(row.Capacity),
			strconv.FormatBool(row.HasAC),
			row.Status,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

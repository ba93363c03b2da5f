package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kotor-apartments/stayboard/internal/dashboard"
	"github.com/kotor-apartments/stayboard/internal/dashboard/export"
)

// Output formats of the snapshot command.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// SnapshotLoader supplies the collections the view model is built from.
type SnapshotLoader interface {
	Load(ctx context.Context) (dashboard.Snapshot, error)
}

// SnapshotCLI renders the dashboard view model on the terminal.
type SnapshotCLI struct {
	loader SnapshotLoader
	loc    *time.Location
	now    func() time.Time
}

// NewSnapshotCLI builds the helper around a loader.
func NewSnapshotCLI(loader SnapshotLoader, loc *time.Location) (*SnapshotCLI, error) {
	if loader == nil {
		return nil, errors.New("snapshot cli: loader not configured")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SnapshotCLI{loader: loader, loc: loc, now: time.Now}, nil
}

// SnapshotOptions defines the flags of the snapshot command.
type SnapshotOptions struct {
	Format  string
	Filters dashboard.Filters
	Stdout  io.Writer
	Stderr  io.Writer
}

// SnapshotCommand loads the records, builds the view model and prints it.
func (c *SnapshotCLI) SnapshotCommand(ctx context.Context, opts SnapshotOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatJSON && format != FormatCSV {
		_, _ = fmt.Fprintf(opts.Stderr, "snapshot: unknown format %q (text, json or csv)\n", opts.Format)
		return 1
	}

	snap, err := c.loader.Load(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "snapshot: %v\n", err)
		return 1
	}
	now := c.now().In(c.loc)
	vm := dashboard.Build(dashboard.Input{
		Apartments:   snap.Apartments,
		Reservations: snap.Reservations,
		CleaningJobs: snap.CleaningJobs,
		Filters:      opts.Filters,
		Now:          now,
		LastUpdated:  snap.FetchedAt.In(c.loc),
	})

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(vm); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "snapshot: encode json: %v\n", err)
			return 1
		}
	case FormatCSV:
		if err := export.WriteDashboardCSV(opts.Stdout, vm); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "snapshot: write csv: %v\n", err)
			return 1
		}
	default:
		renderSnapshotHuman(opts.Stdout, vm)
	}
	return 0
}

func renderSnapshotHuman(out io.Writer, vm dashboard.ViewModel) {
	_, _ = fmt.Fprintf(out, "Dashboard as of %s\n\n", vm.GeneratedAt.Format("2006-01-02 15:04 MST"))
	for _, card := range vm.Stats {
		_, _ = fmt.Fprintf(out, "%-20s %10s  %s\n", card.Name, card.Value, card.Change)
	}

	_, _ = fmt.Fprintln(out, "\nRevenue:")
	for _, point := range vm.Chart {
		marker := ""
		if point.Placeholder {
			marker = " (sample)"
		}
		_, _ = fmt.Fprintf(out, " - %s %s%s\n", point.Month, dashboard.FormatCurrency(point.Current), marker)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\nReservations (%d)\n", vm.Totals.FilteredReservations)
	for _, row := range vm.Reservations {
		_, _ = fmt.Fprintf(tw, " %s\t%s\t%s\t%s\t%s\n", row.Guest, row.Apartment, row.CheckIn.Format("Jan 2"), dashboard.FormatCurrency(row.Paid), row.Status)
	}
	_, _ = fmt.Fprintf(tw, "\nCleaning (%d)\n", vm.Totals.FilteredCleaningJobs)
	for _, row := range vm.CleaningJobs {
		_, _ = fmt.Fprintf(tw, " %s\t%s\t%s\t%s\n", row.Apartment, row.Cleaner, row.Date.Format("Jan 2"), row.Status)
	}
	_, _ = fmt.Fprintf(tw, "\nApartments (%d of %d)\n", vm.Totals.FilteredApartments, vm.Totals.Apartments)
	for _, row := range vm.Apartments {
		_, _ = fmt.Fprintf(tw, " %s\t%s\t%s\n", row.Name, row.Owner, row.Status)
	}
	_ = tw.Flush()
}

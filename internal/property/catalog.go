package property

import (
	"context"
	"errors"
	"fmt"
)

// Collection slugs shared by every record source.
const (
	CollectionApartments          = "apartments"
	CollectionOwners              = "owners"
	CollectionCleaners            = "cleaners"
	CollectionReservations        = "reservations"
	CollectionCleaningJobs        = "cleaning-jobs"
	CollectionOwnerExpenses       = "owner-expenses"
	CollectionPaymentDetails      = "payment-details"
	CollectionMonthlyOwnerLedgers = "monthly-owner-ledgers"
)

// Collections lists every readable collection in display order.
var Collections = []string{
	CollectionApartments,
	CollectionOwners,
	CollectionCleaners,
	CollectionReservations,
	CollectionCleaningJobs,
	CollectionOwnerExpenses,
	CollectionPaymentDetails,
	CollectionMonthlyOwnerLedgers,
}

// ErrUnknownCollection is returned for a slug outside Collections.
var ErrUnknownCollection = errors.New("property: unknown collection")

// Lister reads every collection. Repository and the CMS client implement it.
type Lister interface {
	ListApartments(ctx context.Context, limit int) ([]Apartment, error)
	ListOwners(ctx context.Context, limit int) ([]Owner, error)
	ListCleaners(ctx context.Context, limit int) ([]Cleaner, error)
	ListReservations(ctx context.Context, limit int) ([]Reservation, error)
	ListCleaningJobs(ctx context.Context, limit int) ([]CleaningJob, error)
	ListOwnerExpenses(ctx context.Context, limit int) ([]OwnerExpense, error)
	ListPaymentDetails(ctx context.Context, limit int) ([]PaymentDetail, error)
	ListMonthlyOwnerLedgers(ctx context.Context, limit int) ([]MonthlyOwnerLedger, error)
}

// Page is one listing of a collection.
type Page struct {
	Docs      any `json:"docs"`
	TotalDocs int `json:"totalDocs"`
	Limit     int `json:"limit"`
}

// ListCollection dispatches to the lister method for collection.
func ListCollection(ctx context.Context, src Lister, collection string, limit int) (Page, error) {
	switch collection {
	case CollectionApartments:
		return page(src.ListApartments(ctx, limit))(limit)
	case CollectionOwners:
		return page(src.ListOwners(ctx, limit))(limit)
	case CollectionCleaners:
		return page(src.ListCleaners(ctx, limit))(limit)
	case CollectionReservations:
		return page(src.ListReservations(ctx, limit))(limit)
	case CollectionCleaningJobs:
		return page(src.ListCleaningJobs(ctx, limit))(limit)
	case CollectionOwnerExpenses:
		return page(src.ListOwnerExpenses(ctx, limit))(limit)
	case CollectionPaymentDetails:
		return page(src.ListPaymentDetails(ctx, limit))(limit)
	case CollectionMonthlyOwnerLedgers:
		return page(src.ListMonthlyOwnerLedgers(ctx, limit))(limit)
	default:
		return Page{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
}

func page[T any](docs []T, err error) func(int) (Page, error) {
	return func(limit int) (Page, error) {
		if err != nil {
			return Page{}, err
		}
		if docs == nil {
			docs = []T{}
		}
		return Page{Docs: docs, TotalDocs: len(docs), Limit: limit}, nil
	}
}

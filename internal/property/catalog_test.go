package property

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	owners []Owner
	err    error
	limit  int
}

func (f *fakeLister) ListApartments(ctx context.Context, limit int) ([]Apartment, error) {
	return nil, f.err
}

func (f *fakeLister) ListOwners(ctx context.Context, limit int) ([]Owner, error) {
	f.limit = limit
	return f.owners, f.err
}

func (f *fakeLister) ListCleaners(ctx context.Context, limit int) ([]Cleaner, error) {
	return nil, f.err
}

func (f *fakeLister) ListReservations(ctx context.Context, limit int) ([]Reservation, error) {
	return nil, f.err
}

func (f *fakeLister) ListCleaningJobs(ctx context.Context, limit int) ([]CleaningJob, error) {
	return nil, f.err
}

func (f *fakeLister) ListOwnerExpenses(ctx context.Context, limit int) ([]OwnerExpense, error) {
	return nil, f.err
}

func (f *fakeLister) ListPaymentDetails(ctx context.Context, limit int) ([]PaymentDetail, error) {
	return nil, f.err
}

func (f *fakeLister) ListMonthlyOwnerLedgers(ctx context.Context, limit int) ([]MonthlyOwnerLedger, error) {
	return nil, f.err
}

func TestListCollectionDispatches(t *testing.T) {
	src := &fakeLister{owners: []Owner{{ID: "1", Name: "Marko"}, {ID: "2", Name: "Jelena"}}}

	page, err := ListCollection(context.Background(), src, CollectionOwners, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, src.limit)
	assert.Equal(t, 2, page.TotalDocs)
	assert.Equal(t, 25, page.Limit)
	assert.Len(t, page.Docs, 2)
}

func TestListCollectionEmptyDocsAreNotNil(t *testing.T) {
	for _, name := range Collections {
		page, err := ListCollection(context.Background(), &fakeLister{}, name, 10)
		require.NoError(t, err, name)
		assert.NotNil(t, page.Docs, name)
		assert.Zero(t, page.TotalDocs, name)
	}
}

func TestListCollectionErrors(t *testing.T) {
	_, err := ListCollection(context.Background(), &fakeLister{}, "bookings", 10)
	assert.ErrorIs(t, err, ErrUnknownCollection)

	boom := errors.New("boom")
	_, err = ListCollection(context.Background(), &fakeLister{err: boom}, CollectionCleaningJobs, 10)
	assert.ErrorIs(t, err, boom)
}

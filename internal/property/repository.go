package property

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads record collections from PostgreSQL.
type Repository struct {
	pool     *pgxpool.Pool
	populate bool
}

// NewRepository constructs a repository. When populate is true relation fields are
// joined and returned as embedded documents, otherwise as raw identifiers.
func NewRepository(pool *pgxpool.Pool, populate bool) *Repository {
	return &Repository{pool: pool, populate: populate}
}

const apartmentColumns = `a.id::text, a.apartment_name, a.capacity, a.owner_id::text, a.has_ac, a.has_iron,
	a.has_ironing_board, a.other_amenities, a.description`

const ownerJoinColumns = `o.id::text, o.name, o.email, o.phone, o.bank_account, o.notes`

// ListApartments returns the newest apartments up to limit.
func (r *Repository) ListApartments(ctx context.Context, limit int) ([]Apartment, error) {
	query := `SELECT ` + apartmentColumns
	if r.populate {
		query += `, ` + ownerJoinColumns + ` FROM apartments a LEFT JOIN owners o ON o.id = a.owner_id`
	} else {
		query += ` FROM apartments a`
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("property: list apartments: %w", err)
	}
	defer rows.Close()

	var out []Apartment
	for rows.Next() {
		var (
			a       Apartment
			ownerID *string
			owner   ownerRow
		)
		dest := []any{&a.ID, &a.ApartmentName, &a.Capacity, &ownerID, &a.HasAC, &a.HasIron,
			&a.HasIroningBoard, &a.OtherAmenities, &a.Description}
		if r.populate {
			dest = append(dest, owner.dest()...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("property: scan apartment: %w", err)
		}
		a.Owner = owner.ref(ownerID)
		out = append(out, a)
	}
	return out, rows.Err()
}

const reservationColumns = `r.id::text, r.reservation_id, r.apartment_id::text, r.check_in, r.check_out,
	r.number_of_nights, r.number_of_adults, r.number_of_children, r.crib_needed,
	r.guest_paid_amount::float8, r.site_commission_percentage::float8, r.site_commission_amount::float8,
	r.is_cancelled, r.cancellation_notes, r.guest_name, r.guest_email, r.guest_phone,
	r.special_requests, r.booking_source, r.notes`

// ListReservations returns the newest reservations up to limit.
func (r *Repository) ListReservations(ctx context.Context, limit int) ([]Reservation, error) {
	query := `SELECT ` + reservationColumns
	if r.populate {
		query += `, ` + apartmentColumns + ` FROM reservations r LEFT JOIN apartments a ON a.id = r.apartment_id`
	} else {
		query += ` FROM reservations r`
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("property: list reservations: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var (
			res         Reservation
			apartmentID *string
			guest       GuestDetails
			source      *string
			apt         apartmentRow
		)
		dest := []any{&res.ID, &res.ReservationID, &apartmentID, &res.CheckInDateTime, &res.CheckOutDateTime,
			&res.NumberOfNights, &res.NumberOfAdults, &res.NumberOfChildren, &res.CribNeeded,
			&res.GuestPaidAmount, &res.SiteCommissionPercentage, &res.SiteCommissionAmount,
			&res.IsCancelled, &res.CancellationNotes, &guest.GuestName, &guest.GuestEmail, &guest.GuestPhone,
			&guest.SpecialRequests, &source, &res.Notes}
		if r.populate {
			dest = append(dest, apt.dest()...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("property: scan reservation: %w", err)
		}
		if guest != (GuestDetails{}) {
			res.GuestDetails = &guest
		}
		if source != nil {
			bs := BookingSource(*source)
			res.BookingSource = &bs
		}
		res.Apartment = apt.ref(apartmentID)
		out = append(out, res)
	}
	return out, rows.Err()
}

const cleaningJobColumns = `j.id::text, j.cleaning_job_id, j.apartment_id::text, j.cleaning_date, j.cleaner_id::text,
	j.cleaning_order_priority, j.climate_control_instruction, j.job_status,
	j.total_owner_cost::float8, j.cleaner_earnings::float8, j.agency_margin::float8,
	j.laundry_cost::float8, j.agency_earnings_from_linen::float8, j.special_instructions, j.notes`

const cleanerJoinColumns = `c.id::text, c.cleaner_name, c.phone, c.email, c.hourly_rate::float8, c.is_active, c.notes`

// ListCleaningJobs returns the newest cleaning jobs up to limit.
func (r *Repository) ListCleaningJobs(ctx context.Context, limit int) ([]CleaningJob, error) {
	query := `SELECT ` + cleaningJobColumns
	if r.populate {
		query += `, ` + apartmentColumns + `, ` + cleanerJoinColumns + ` FROM cleaning_jobs j
			LEFT JOIN apartments a ON a.id = j.apartment_id
			LEFT JOIN cleaners c ON c.id = j.cleaner_id`
	} else {
		query += ` FROM cleaning_jobs j`
	}
	query += ` ORDER BY j.created_at DESC, j.id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("property: list cleaning jobs: %w", err)
	}
	defer rows.Close()

	var out []CleaningJob
	for rows.Next() {
		var (
			job         CleaningJob
			apartmentID *string
			cleanerID   *string
			status      string
			fin         CleaningFinancials
			apt         apartmentRow
			cleaner     cleanerRow
		)
		dest := []any{&job.ID, &job.CleaningJobID, &apartmentID, &job.CleaningDate, &cleanerID,
			&job.CleaningOrderPriority, &job.ClimateControlInstruction, &status,
			&fin.TotalOwnerCostForCleaning, &fin.CleanerEarnings, &fin.AgencyMarginOnCleaning,
			&fin.LaundryCost, &fin.AgencyEarningsFromLinen, &job.SpecialInstructions, &job.Notes}
		if r.populate {
			dest = append(dest, apt.dest()...)
			dest = append(dest, cleaner.dest()...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("property: scan cleaning job: %w", err)
		}
		job.JobStatus = JobStatus(status)
		if fin != (CleaningFinancials{}) {
			job.FinancialDetails = &fin
		}
		job.Apartment = apt.ref(apartmentID)
		job.Cleaner = cleaner.ref(cleanerID)
		out = append(out, job)
	}
	return out, rows.Err()
}

// ListOwners returns owners ordered by name.
func (r *Repository) ListOwners(ctx context.Context, limit int) ([]Owner, error) {
	query := `SELECT ` + ownerJoinColumns + ` FROM owners o ORDER BY o.name ASC LIMIT $1`
	return collect(ctx, r.pool, query, limit, func(rows pgx.Rows) (Owner, error) {
		var row ownerRow
		if err := rows.Scan(row.dest()...); err != nil {
			return Owner{}, err
		}
		return row.owner(), nil
	})
}

// ListCleaners returns cleaners ordered by name.
func (r *Repository) ListCleaners(ctx context.Context, limit int) ([]Cleaner, error) {
	query := `SELECT ` + cleanerJoinColumns + ` FROM cleaners c ORDER BY c.cleaner_name ASC LIMIT $1`
	return collect(ctx, r.pool, query, limit, func(rows pgx.Rows) (Cleaner, error) {
		var row cleanerRow
		if err := rows.Scan(row.dest()...); err != nil {
			return Cleaner{}, err
		}
		return row.cleaner(), nil
	})
}

// ListOwnerExpenses returns the most recent owner expenses.
func (r *Repository) ListOwnerExpenses(ctx context.Context, limit int) ([]OwnerExpense, error) {
	query := `SELECT e.id::text, e.owner_expense_id, e.owner_id::text, e.expense_date, e.item_description,
		e.expense_category, e.base_cost::float8, e.agency_margin::float8, e.total_cost_to_owner::float8,
		e.supplier, e.invoice_number, e.payment_status, e.payment_date, e.notes
		FROM owner_expenses e ORDER BY e.expense_date DESC, e.id DESC LIMIT $1`
	return collect(ctx, r.pool, query, limit, func(rows pgx.Rows) (OwnerExpense, error) {
		var (
			e       OwnerExpense
			ownerID string
		)
		err := rows.Scan(&e.ID, &e.OwnerExpenseID, &ownerID, &e.ExpenseDate, &e.ItemDescription,
			&e.ExpenseCategory, &e.BaseCost, &e.AgencyMargin, &e.TotalCostToOwner,
			&e.Supplier, &e.InvoiceNumber, &e.PaymentStatus, &e.PaymentDate, &e.Notes)
		e.Owner = RefID[Owner](ownerID)
		return e, err
	})
}

// ListPaymentDetails returns the most recent payments.
func (r *Repository) ListPaymentDetails(ctx context.Context, limit int) ([]PaymentDetail, error) {
	query := `SELECT p.id::text, p.payment_detail_id, p.payment_method, p.amount_direct_to_owner::float8,
		p.total_payment_amount::float8, p.payment_date, p.status, p.transaction_id, p.payment_processor,
		p.processing_fee::float8, p.net_amount::float8, p.currency, p.notes
		FROM payment_details p ORDER BY p.payment_date DESC, p.id DESC LIMIT $1`
	return collect(ctx, r.pool, query, limit, func(rows pgx.Rows) (PaymentDetail, error) {
		var p PaymentDetail
		err := rows.Scan(&p.ID, &p.PaymentDetailID, &p.PaymentMethod, &p.AmountDirectToOwner,
			&p.TotalPaymentAmount, &p.PaymentDate, &p.Status, &p.TransactionID, &p.PaymentProcessor,
			&p.ProcessingFee, &p.NetAmount, &p.Currency, &p.Notes)
		return p, err
	})
}

// ListMonthlyOwnerLedgers returns ledger entries, newest month first.
func (r *Repository) ListMonthlyOwnerLedgers(ctx context.Context, limit int) ([]MonthlyOwnerLedger, error) {
	query := `SELECT l.id::text, l.ledger_entry_id, l.owner_id::text, l.month, l.guest_paid_amount::float8,
		l.site_commission_amount::float8, l.cleaning_cost::float8, l.other_expenses_amount::float8,
		l.total_earnings::float8, l.net_income::float8, l.status, l.notes
		FROM monthly_owner_ledgers l ORDER BY l.month DESC, l.id DESC LIMIT $1`
	return collect(ctx, r.pool, query, limit, func(rows pgx.Rows) (MonthlyOwnerLedger, error) {
		var (
			l       MonthlyOwnerLedger
			ownerID string
		)
		s := &l.FinancialSummary
		err := rows.Scan(&l.ID, &l.LedgerEntryID, &ownerID, &l.Month, &s.GuestPaidAmount,
			&s.SiteCommissionAmount, &s.TotalOwnerCostForCleaning, &s.OtherExpensesAmount,
			&s.TotalEarnings, &s.NetIncome, &l.Status, &l.Notes)
		l.Owner = RefID[Owner](ownerID)
		return l, err
	})
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, query string, limit int, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("property: query: %w", err)
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("property: scan: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// MaxLimit caps every collection query.
const MaxLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Nullable join targets. A missing id after a LEFT JOIN leaves the relation as a raw id.

type ownerRow struct {
	id, name                         *string
	email, phone, bankAccount, notes *string
}

func (o *ownerRow) dest() []any {
	return []any{&o.id, &o.name, &o.email, &o.phone, &o.bankAccount, &o.notes}
}

func (o ownerRow) owner() Owner {
	return Owner{ID: ID(deref(o.id)), Name: deref(o.name), Email: o.email, Phone: o.phone, BankAccount: o.bankAccount, Notes: o.notes}
}

func (o ownerRow) ref(id *string) Ref[Owner] {
	if o.id != nil {
		return Embed(o.owner())
	}
	return RefID[Owner](deref(id))
}

type cleanerRow struct {
	id, name, phone, email *string
	hourlyRate             *float64
	isActive               *bool
	notes                  *string
}

func (c *cleanerRow) dest() []any {
	return []any{&c.id, &c.name, &c.phone, &c.email, &c.hourlyRate, &c.isActive, &c.notes}
}

func (c cleanerRow) cleaner() Cleaner {
	return Cleaner{ID: ID(deref(c.id)), CleanerName: deref(c.name), Phone: c.phone, Email: c.email,
		HourlyRate: c.hourlyRate, IsActive: c.isActive, Notes: c.notes}
}

func (c cleanerRow) ref(id *string) Ref[Cleaner] {
	if c.id != nil {
		return Embed(c.cleaner())
	}
	return RefID[Cleaner](deref(id))
}

type apartmentRow struct {
	id, name                   *string
	capacity                   *int
	ownerID                    *string
	hasAC, hasIron, hasIroning *bool
	amenities                  []byte
	description                *string
}

func (a *apartmentRow) dest() []any {
	return []any{&a.id, &a.name, &a.capacity, &a.ownerID, &a.hasAC, &a.hasIron, &a.hasIroning, &a.amenities, &a.description}
}

func (a apartmentRow) ref(id *string) Ref[Apartment] {
	if a.id == nil {
		return RefID[Apartment](deref(id))
	}
	return Embed(Apartment{
		ID:              ID(*a.id),
		ApartmentName:   deref(a.name),
		Capacity:        a.capacity,
		Owner:           RefID[Owner](deref(a.ownerID)),
		HasAC:           a.hasAC,
		HasIron:         a.hasIron,
		HasIroningBoard: a.hasIroning,
		OtherAmenities:  a.amenities,
		Description:     a.description,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
var _ Lister = (*Repository)(nil)

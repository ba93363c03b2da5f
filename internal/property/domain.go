package property

import (
	"encoding/json"
	"time"
)

// JobStatus enumerates the lifecycle of a cleaning job.
type JobStatus string

const (
	JobScheduled   JobStatus = "scheduled"
	JobInProgress  JobStatus = "in_progress"
	JobCompleted   JobStatus = "completed"
	JobCancelled   JobStatus = "cancelled"
	JobRescheduled JobStatus = "rescheduled"
)

// JobStatuses lists every valid job status in display order.
var JobStatuses = []JobStatus{JobScheduled, JobInProgress, JobCompleted, JobCancelled, JobRescheduled}

// Valid reports whether the status is part of the enumeration.
func (s JobStatus) Valid() bool {
	for _, status := range JobStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// BookingSource identifies the channel a reservation came from.
type BookingSource string

const (
	SourceBeds24  BookingSource = "beds24"
	SourceBooking BookingSource = "booking"
	SourceAirbnb  BookingSource = "airbnb"
	SourceDirect  BookingSource = "direct"
	SourceOther   BookingSource = "other"
)

// Owner is the proprietor of one or more apartments.
type Owner struct {
	ID          ID      `json:"id"`
	Name        string  `json:"name"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	BankAccount *string `json:"bankAccount,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

func (o Owner) RecordID() string { return string(o.ID) }

// Cleaner performs cleaning jobs.
type Cleaner struct {
	ID          ID       `json:"id"`
	CleanerName string   `json:"cleanerName"`
	Phone       *string  `json:"phone,omitempty"`
	Email       *string  `json:"email,omitempty"`
	HourlyRate  *float64 `json:"hourlyRate,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

func (c Cleaner) RecordID() string { return string(c.ID) }

// Apartment is a rentable unit.
type Apartment struct {
	ID              ID              `json:"id"`
	ApartmentName   string          `json:"apartmentName"`
	Capacity        *int            `json:"capacity,omitempty"`
	Owner           Ref[Owner]      `json:"owner"`
	HasAC           *bool           `json:"hasAC,omitempty"`
	HasIron         *bool           `json:"hasIron,omitempty"`
	HasIroningBoard *bool           `json:"hasIroningBoard,omitempty"`
	OtherAmenities  json.RawMessage `json:"otherAmenities,omitempty"`
	Description     *string         `json:"description,omitempty"`
}

func (a Apartment) RecordID() string { return string(a.ID) }

// Completeness counts the populated fields of the record.
func (a Apartment) Completeness() int { return completeness(a) }

// GuestDetails holds the contact information of the booking guest.
type GuestDetails struct {
	GuestName       *string `json:"guestName,omitempty"`
	GuestEmail      *string `json:"guestEmail,omitempty"`
	GuestPhone      *string `json:"guestPhone,omitempty"`
	SpecialRequests *string `json:"specialRequests,omitempty"`
}

// Reservation is a guest stay in an apartment.
type Reservation struct {
	ID                       ID             `json:"id"`
	ReservationID            *string        `json:"reservationId,omitempty"`
	Apartment                Ref[Apartment] `json:"apartment"`
	CheckInDateTime          time.Time      `json:"checkInDateTime"`
	CheckOutDateTime         time.Time      `json:"checkOutDateTime"`
	NumberOfNights           *int           `json:"numberOfNights,omitempty"`
	NumberOfAdults           *int           `json:"numberOfAdults,omitempty"`
	NumberOfChildren         *int           `json:"numberOfChildren,omitempty"`
	CribNeeded               *bool          `json:"cribNeeded,omitempty"`
	GuestPaidAmount          *float64       `json:"guestPaidAmount,omitempty"`
	SiteCommissionPercentage *float64       `json:"siteCommissionPercentage,omitempty"`
	SiteCommissionAmount     *float64       `json:"siteCommissionAmount,omitempty"`
	IsCancelled              *bool          `json:"isCancelled,omitempty"`
	CancellationNotes        *string        `json:"cancellationNotes,omitempty"`
	GuestDetails             *GuestDetails  `json:"guestDetails,omitempty"`
	BookingSource            *BookingSource `json:"bookingSource,omitempty"`
	Notes                    *string        `json:"notes,omitempty"`
}

func (r Reservation) RecordID() string { return string(r.ID) }

// Completeness counts the populated fields of the record.
func (r Reservation) Completeness() int { return completeness(r) }

// Cancelled reports whether the stay was cancelled; a missing flag means active.
func (r Reservation) Cancelled() bool {
	return r.IsCancelled != nil && *r.IsCancelled
}

// PaidAmount returns the guest-paid amount, zero when missing.
func (r Reservation) PaidAmount() float64 {
	if r.GuestPaidAmount == nil {
		return 0
	}
	return *r.GuestPaidAmount
}

// GuestName returns the guest display name, empty when missing.
func (r Reservation) GuestName() string {
	if r.GuestDetails == nil || r.GuestDetails.GuestName == nil {
		return ""
	}
	return *r.GuestDetails.GuestName
}

// CleaningFinancials captures the money side of a cleaning job.
type CleaningFinancials struct {
	TotalOwnerCostForCleaning *float64 `json:"totalOwnerCostForCleaning,omitempty"`
	CleanerEarnings           *float64 `json:"cleanerEarnings,omitempty"`
	AgencyMarginOnCleaning    *float64 `json:"agencyMarginOnCleaning,omitempty"`
	LaundryCost               *float64 `json:"laundryCost,omitempty"`
	AgencyEarningsFromLinen   *float64 `json:"agencyEarningsFromLinen,omitempty"`
}

// CleaningJob is a scheduled clean of an apartment.
type CleaningJob struct {
	ID                        ID                  `json:"id"`
	CleaningJobID             *string             `json:"cleaningJobId,omitempty"`
	Apartment                 Ref[Apartment]      `json:"apartment"`
	CleaningDate              time.Time           `json:"cleaningDate"`
	Cleaner                   Ref[Cleaner]        `json:"cleaner"`
	CleaningOrderPriority     *int                `json:"cleaningOrderPriority,omitempty"`
	ClimateControlInstruction *string             `json:"climateControlInstruction,omitempty"`
	JobStatus                 JobStatus           `json:"jobStatus,omitempty"`
	FinancialDetails          *CleaningFinancials `json:"financialDetails,omitempty"`
	SpecialInstructions       *string             `json:"specialInstructions,omitempty"`
	Notes                     *string             `json:"notes,omitempty"`
}

func (j CleaningJob) RecordID() string { return string(j.ID) }

// Completeness counts the populated fields of the record.
func (j CleaningJob) Completeness() int { return completeness(j) }

// OwnerCost returns the total owner cost of the job, when known.
func (j CleaningJob) OwnerCost() (float64, bool) {
	if j.FinancialDetails == nil || j.FinancialDetails.TotalOwnerCostForCleaning == nil {
		return 0, false
	}
	return *j.FinancialDetails.TotalOwnerCostForCleaning, true
}

// OwnerExpense is a cost charged to an owner.
type OwnerExpense struct {
	ID               ID         `json:"id"`
	OwnerExpenseID   string     `json:"ownerExpenseId"`
	Owner            Ref[Owner] `json:"owner"`
	ExpenseDate      time.Time  `json:"expenseDate"`
	ItemDescription  string     `json:"itemDescription"`
	ExpenseCategory  *string    `json:"expenseCategory,omitempty"`
	BaseCost         float64    `json:"baseCost"`
	AgencyMargin     float64    `json:"agencyMargin"`
	TotalCostToOwner float64    `json:"totalCostToOwner"`
	Supplier         *string    `json:"supplier,omitempty"`
	InvoiceNumber    *string    `json:"invoiceNumber,omitempty"`
	PaymentStatus    string     `json:"paymentStatus"`
	PaymentDate      *time.Time `json:"paymentDate,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

func (e OwnerExpense) RecordID() string { return string(e.ID) }

// PaymentDetail records money received for a stay.
type PaymentDetail struct {
	ID                  ID        `json:"id"`
	PaymentDetailID     string    `json:"paymentDetailId"`
	PaymentMethod       string    `json:"paymentMethod"`
	AmountDirectToOwner *float64  `json:"amountDirectToOwner,omitempty"`
	TotalPaymentAmount  float64   `json:"totalPaymentAmount"`
	PaymentDate         time.Time `json:"paymentDate"`
	Status              string    `json:"status"`
	TransactionID       *string   `json:"transactionId,omitempty"`
	PaymentProcessor    *string   `json:"paymentProcessor,omitempty"`
	ProcessingFee       *float64  `json:"processingFee,omitempty"`
	NetAmount           *float64  `json:"netAmount,omitempty"`
	Currency            string    `json:"currency"`
	Notes               *string   `json:"notes,omitempty"`
}

func (p PaymentDetail) RecordID() string { return string(p.ID) }

// LedgerSummary is the financial block of a monthly owner ledger entry.
type LedgerSummary struct {
	GuestPaidAmount           *float64 `json:"guestPaidAmount,omitempty"`
	SiteCommissionAmount      *float64 `json:"siteCommissionAmount,omitempty"`
	TotalOwnerCostForCleaning *float64 `json:"totalOwnerCostForCleaning,omitempty"`
	OtherExpensesAmount       *float64 `json:"otherExpensesAmount,omitempty"`
	TotalEarnings             float64  `json:"totalEarnings"`
	NetIncome                 float64  `json:"netIncome"`
}

// MonthlyOwnerLedger is a manually entered monthly statement for an owner.
type MonthlyOwnerLedger struct {
	ID               ID            `json:"id"`
	LedgerEntryID    string        `json:"ledgerEntryId"`
	Owner            Ref[Owner]    `json:"owner"`
	Month            time.Time     `json:"month"`
	FinancialSummary LedgerSummary `json:"financialSummary"`
	Status           string        `json:"status"`
	Notes            *string       `json:"notes,omitempty"`
}

func (l MonthlyOwnerLedger) RecordID() string { return string(l.ID) }

// Display-field accessors used with Ref.Name and Ref.Label.
func ApartmentName(a Apartment) string { return a.ApartmentName }
func OwnerName(o Owner) string         { return o.Name }
func CleanerName(c Cleaner) string     { return c.CleanerName }

package cms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kotor-apartments/stayboard/internal/property"
)

// ErrBaseURLRequired is returned when the client is built without an endpoint.
var ErrBaseURLRequired = errors.New("cms: base url required")

// Config holds the connection settings of the CMS.
type Config struct {
	BaseURL  string
	APIKey   string
	Populate bool
	Timeout  time.Duration
}

// Client is a resty-backed record source reading from the CMS REST API.
type Client struct {
	http  *resty.Client
	depth int
}

// NewClient builds a CMS client. Populate requests relations one level deep.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	if cfg.APIKey != "" {
		rc.SetHeader("Authorization", "users API-Key "+cfg.APIKey)
	}
	depth := 0
	if cfg.Populate {
		depth = 1
	}
	return &Client{http: rc, depth: depth}, nil
}

type page[T any] struct {
	Docs      []T `json:"docs"`
	TotalDocs int `json:"totalDocs"`
}

type apiError struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *apiError) message() string {
	if e == nil || len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}

func find[T any](ctx context.Context, c *Client, collection string, limit int) ([]T, error) {
	result := new(page[T])
	apiErr := new(apiError)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit": strconv.Itoa(limit),
			"depth": strconv.Itoa(c.depth),
		}).
		SetResult(result).
		SetError(apiErr).
		Get("/api/" + collection)
	if err != nil {
		return nil, fmt.Errorf("cms: list %s: %w", collection, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("cms: list %s: status=%d message=%s", collection, resp.StatusCode(), apiErr.message())
	}
	if result.Docs == nil {
		return []T{}, nil
	}
	return result.Docs, nil
}

func (c *Client) ListApartments(ctx context.Context, limit int) ([]property.Apartment, error) {
	return find[property.Apartment](ctx, c, property.CollectionApartments, limit)
}

func (c *Client) ListReservations(ctx context.Context, limit int) ([]property.Reservation, error) {
	return find[property.Reservation](ctx, c, property.CollectionReservations, limit)
}

func (c *Client) ListCleaningJobs(ctx context.Context, limit int) ([]property.CleaningJob, error) {
	return find[property.CleaningJob](ctx, c, property.CollectionCleaningJobs, limit)
}

func (c *Client) ListOwners(ctx context.Context, limit int) ([]property.Owner, error) {
	return find[property.Owner](ctx, c, property.CollectionOwners, limit)
}

func (c *Client) ListCleaners(ctx context.Context, limit int) ([]property.Cleaner, error) {
	return find[property.Cleaner](ctx, c, property.CollectionCleaners, limit)
}

func (c *Client) ListOwnerExpenses(ctx context.Context, limit int) ([]property.OwnerExpense, error) {
	return find[property.OwnerExpense](ctx, c, property.CollectionOwnerExpenses, limit)
}

func (c *Client) ListPaymentDetails(ctx context.Context, limit int) ([]property.PaymentDetail, error) {
	return find[property.PaymentDetail](ctx, c, property.CollectionPaymentDetails, limit)
}

func (c *Client) ListMonthlyOwnerLedgers(ctx context.Context, limit int) ([]property.MonthlyOwnerLedger, error) {
	return find[property.MonthlyOwnerLedger](ctx, c, property.CollectionMonthlyOwnerLedgers, limit)
}

var _ property.Lister = (*Client)(nil)

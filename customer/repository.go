package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrNotFound = errors.New("customer not found")

// DefaultPageSize is used when a caller asks for a page size below one.
const DefaultPageSize = 10

type Repository struct {
	store   Store
	numbers *NumberGenerator
	now     func() time.Time
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Repository)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

func WithNumberGenerator(g *NumberGenerator) Option {
	return func(r *Repository) {
		r.numbers = g
	}
}

func NewRepository(store Store, logger *slog.Logger, opts ...Option) *Repository {
	r := &Repository{
		store:   store,
		numbers: NewNumberGenerator(),
		now:     time.Now,
		logger:  logger.With("component", "customer_repository"),
		tracer:  otel.Tracer("customer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now is the repository clock. Eligibility and statistics are evaluated against it.
func (r *Repository) Now() time.Time {
	return r.now()
}

// load reads the collection, falling back to an empty one when storage is unreadable.
func (r *Repository) load(ctx context.Context) ([]Customer, error) {
	customers, err := r.store.Load(ctx)
	if errors.Is(err, ErrStorageUnavailable) {
		r.logger.WarnContext(ctx, "customer storage unreadable, using empty collection", "error", err)
		return nil, nil
	}
	return customers, err
}

func (r *Repository) Create(ctx context.Context, form FormData) (Customer, error) {
	ctx, span := r.tracer.Start(ctx, "customer.Create")
	defer span.End()

	in, err := form.parse()
	if err != nil {
		return Customer{}, err
	}

	visits := 0
	if in.visits != nil {
		visits = *in.visits
	}

	var created Customer
	err = r.store.Modify(ctx, func(customers []Customer) ([]Customer, error) {
		number, err := r.numbers.Next(in.membershipType, func(n string) bool {
			return indexByNumber(customers, n) >= 0
		})
		if err != nil {
			return nil, err
		}

		created = Customer{
			ID:               NewIdentifier(),
			FirstName:        in.firstName,
			LastName:         in.lastName,
			Email:            in.email,
			Phone:            in.phone,
			MembershipType:   in.membershipType,
			MembershipNumber: number,
			ExpiryDate:       in.expiryDate,
			CreatedAt:        r.now().UTC(),
			Visits:           visits,
		}
		return append(customers, created), nil
	})
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}

	span.SetAttributes(attribute.String("customer.id", created.ID))
	return created, nil
}

// Update overwrites the editable fields of a customer. The identifier, membership
// number and creation time are kept.
func (r *Repository) Update(ctx context.Context, id string, form FormData) (Customer, error) {
	ctx, span := r.tracer.Start(ctx, "customer.Update", trace.WithAttributes(attribute.String("customer.id", id)))
	defer span.End()

	in, err := form.parse()
	if err != nil {
		return Customer{}, err
	}

	var updated Customer
	err = r.store.Modify(ctx, func(customers []Customer) ([]Customer, error) {
		i := indexByID(customers, id)
		if i < 0 {
			return nil, ErrNotFound
		}

		c := customers[i]
		c.FirstName = in.firstName
		c.LastName = in.lastName
		c.Email = in.email
		c.Phone = in.phone
		c.MembershipType = in.membershipType
		c.ExpiryDate = in.expiryDate
		if in.visits != nil {
			c.Visits = *in.visits
		}

		customers[i] = c
		updated = c
		return customers, nil
	})
	if err != nil {
		return Customer{}, fmt.Errorf("update customer %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes a customer. Deleting an unknown id is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "customer.Delete", trace.WithAttributes(attribute.String("customer.id", id)))
	defer span.End()

	err := r.store.Modify(ctx, func(customers []Customer) ([]Customer, error) {
		return slices.DeleteFunc(customers, func(c Customer) bool {
			return c.ID == id
		}), nil
	})
	if err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Customer, error) {
	ctx, span := r.tracer.Start(ctx, "customer.GetByID")
	defer span.End()

	customers, err := r.load(ctx)
	if err != nil {
		return Customer{}, err
	}
	i := indexByID(customers, id)
	if i < 0 {
		return Customer{}, ErrNotFound
	}
	return customers[i], nil
}

func (r *Repository) GetByMembershipNumber(ctx context.Context, number string) (Customer, error) {
	ctx, span := r.tracer.Start(ctx, "customer.GetByMembershipNumber")
	defer span.End()

	customers, err := r.load(ctx)
	if err != nil {
		return Customer{}, err
	}
	i := indexByNumber(customers, number)
	if i < 0 {
		return Customer{}, ErrNotFound
	}
	return customers[i], nil
}

// List returns all customers, newest first when sortByCreatedDesc is set and in
// storage order otherwise.
func (r *Repository) List(ctx context.Context, sortByCreatedDesc bool) ([]Customer, error) {
	ctx, span := r.tracer.Start(ctx, "customer.List")
	defer span.End()

	customers, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if sortByCreatedDesc {
		sortNewestFirst(customers)
	}
	return customers, nil
}

type Page struct {
	Customers  []Customer `json:"customers"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
	TotalItems int        `json:"totalItems"`
}

// Paginate filters the newest-first list by search and returns one page of it.
// Out of range page numbers are clamped to the first or last page.
func (r *Repository) Paginate(ctx context.Context, page, pageSize int, search string) (Page, error) {
	ctx, span := r.tracer.Start(ctx, "customer.Paginate")
	defer span.End()

	customers, err := r.List(ctx, true)
	if err != nil {
		return Page{}, err
	}
	return paginate(customers, page, pageSize, search), nil
}

func paginate(customers []Customer, page, pageSize int, search string) Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	filtered := customers
	if search != "" {
		filtered = slices.DeleteFunc(slices.Clone(customers), func(c Customer) bool {
			return !matches(c, search)
		})
	}

	totalItems := len(filtered)
	totalPages := totalItems / pageSize
	if totalItems%pageSize != 0 {
		totalPages++
	}
	page = max(1, min(page, max(totalPages, 1)))

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalItems)

	out := make([]Customer, 0, end-start)
	out = append(out, filtered[start:end]...)

	return Page{
		Customers:  out,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}
}

func matches(c Customer, search string) bool {
	term := strings.ToLower(search)
	return strings.Contains(strings.ToLower(c.FullName()), term) ||
		strings.Contains(strings.ToLower(c.Email), term) ||
		strings.Contains(strings.ToLower(c.MembershipNumber), term)
}

// DecrementVisits takes one visit off the balance. When the balance is already zero
// the record is returned unchanged and recorded is false.
func (r *Repository) DecrementVisits(ctx context.Context, id string) (c Customer, recorded bool, err error) {
	ctx, span := r.tracer.Start(ctx, "customer.DecrementVisits", trace.WithAttributes(attribute.String("customer.id", id)))
	defer span.End()

	err = r.store.Modify(ctx, func(customers []Customer) ([]Customer, error) {
		i := indexByID(customers, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		recorded = false
		if customers[i].Visits > 0 {
			customers[i].Visits--
			recorded = true
		}
		c = customers[i]
		return customers, nil
	})
	if err != nil {
		return Customer{}, false, fmt.Errorf("decrement visits for %s: %w", id, err)
	}

	span.SetAttributes(attribute.Bool("visit.recorded", recorded))
	return c, recorded, nil
}

func sortNewestFirst(customers []Customer) {
	slices.SortStableFunc(customers, func(a, b Customer) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func indexByID(customers []Customer, id string) int {
	return slices.IndexFunc(customers, func(c Customer) bool {
		return c.ID == id
	})
}

func indexByNumber(customers []Customer, number string) int {
	return slices.IndexFunc(customers, func(c Customer) bool {
		return c.MembershipNumber == number
	})
}

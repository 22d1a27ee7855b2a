// Package verify implements the lounge access check performed when a membership card's
// QR code is scanned: the membership number is resolved to a customer, eligibility is
// derived, and staff either allow access (taking one visit off the balance) or deny it.
//
// A Verification moves through the states
//
//	Resolving -> Loaded -> Granted | Denied
//	Resolving -> Failed
//
// and accepts no decision once it has reached Granted, Denied or Failed.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/semanticallynull/loungeaccess-backend/customer"
)

type State int

const (
	Resolving State = iota
	Loaded
	Granted
	Denied
	Failed
)

var stateNames = [...]string{"resolving", "loaded", "granted", "denied", "error"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s State) Terminal() bool {
	return s == Granted || s == Denied || s == Failed
}

// ErrorCustomerNotFound is the value of the error query parameter on links generated
// for a customer that could not be resolved.
const ErrorCustomerNotFound = "customer_not_found"

type Reason int

const (
	ReasonCustomerNotFound Reason = iota
	ReasonMissingNumber
	ReasonInvalidNumber
)

var reasonNames = [...]string{"customer_not_found", "missing_membership_number", "invalid_membership_number"}

var reasonMessages = [...]string{
	"Customer not found in the system",
	"No membership number provided",
	"Invalid membership number",
}

func (r Reason) valid() bool {
	return r >= 0 && int(r) < len(reasonNames)
}

func (r Reason) String() string {
	if !r.valid() {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonNames[r]
}

func (r Reason) Message() string {
	if !r.valid() {
		return "Verification failed"
	}
	return reasonMessages[r]
}

// Error explains why a verification ended in the Failed state.
type Error struct {
	Reason           Reason
	MembershipNumber string
}

func (e *Error) Error() string {
	return e.Reason.Message()
}

var ErrTransitionNotAllowed = errors.New("access decision not allowed")

// Request carries the query parameters of a verification link.
type Request struct {
	MembershipNumber string
	Error            string
}

func RequestFromQuery(q url.Values) Request {
	return Request{
		MembershipNumber: q.Get("membershipNumber"),
		Error:            q.Get("error"),
	}
}

type Eligibility struct {
	Expired      bool `json:"expired"`
	NoVisitsLeft bool `json:"noVisitsLeft"`
	CanAccess    bool `json:"canAccess"`
}

func EligibilityAt(c customer.Customer, now time.Time) Eligibility {
	e := Eligibility{
		Expired:      c.ExpiredAt(now),
		NoVisitsLeft: c.Visits <= 0,
	}
	e.CanAccess = !e.Expired && !e.NoVisitsLeft
	return e
}

// Verification is the state of one access check.
type Verification struct {
	State       State
	Customer    *customer.Customer
	Eligibility Eligibility
	Err         *Error
	// VisitRecorded is set on Granted when a visit was actually taken off the balance.
	VisitRecorded bool
}

type Repository interface {
	GetByMembershipNumber(ctx context.Context, number string) (customer.Customer, error)
	DecrementVisits(ctx context.Context, id string) (customer.Customer, bool, error)
	Now() time.Time
}

type Workflow struct {
	repo    Repository
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewWorkflow creates a Workflow. metrics may be nil.
func NewWorkflow(repo Repository, logger *slog.Logger, metrics *Metrics) *Workflow {
	return &Workflow{
		repo:    repo,
		logger:  logger.With("component", "verify"),
		metrics: metrics,
		tracer:  otel.Tracer("verify"),
	}
}

// Resolve looks up the customer named by the request. Unknown, missing or explicitly
// failed lookups produce a Verification in the Failed state; the returned error is
// reserved for storage failures.
func (w *Workflow) Resolve(ctx context.Context, req Request) (*Verification, error) {
	ctx, span := w.tracer.Start(ctx, "verify.Resolve")
	defer span.End()

	v := &Verification{State: Resolving}

	if req.Error == ErrorCustomerNotFound {
		return w.fail(ctx, v, ReasonCustomerNotFound, req.MembershipNumber), nil
	}
	if req.MembershipNumber == "" {
		return w.fail(ctx, v, ReasonMissingNumber, ""), nil
	}

	c, err := w.repo.GetByMembershipNumber(ctx, req.MembershipNumber)
	if errors.Is(err, customer.ErrNotFound) {
		return w.fail(ctx, v, ReasonInvalidNumber, req.MembershipNumber), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve membership number %s: %w", req.MembershipNumber, err)
	}

	v.State = Loaded
	v.Customer = &c
	v.Eligibility = EligibilityAt(c, w.repo.Now())
	span.SetAttributes(
		attribute.String("customer.id", c.ID),
		attribute.Bool("access.eligible", v.Eligibility.CanAccess),
	)
	return v, nil
}

func (w *Workflow) fail(ctx context.Context, v *Verification, reason Reason, number string) *Verification {
	v.State = Failed
	v.Err = &Error{Reason: reason, MembershipNumber: number}
	w.logger.InfoContext(ctx, "verification failed", "reason", reason.String(), "membership_number", number)
	w.metrics.failure(reason)
	return v
}

// Allow grants access and takes one visit off the balance. It is only possible on a
// Loaded verification whose customer is eligible. If the balance has dropped to zero
// in the meantime the decrement is skipped and access is still granted.
func (w *Workflow) Allow(ctx context.Context, v *Verification) error {
	ctx, span := w.tracer.Start(ctx, "verify.Allow")
	defer span.End()

	if v.State != Loaded {
		return fmt.Errorf("%w: verification is %s", ErrTransitionNotAllowed, v.State)
	}
	if !v.Eligibility.CanAccess {
		return fmt.Errorf("%w: customer %s is not eligible", ErrTransitionNotAllowed, v.Customer.ID)
	}

	updated, recorded, err := w.repo.DecrementVisits(ctx, v.Customer.ID)
	if err != nil {
		return err
	}
	if !recorded {
		w.logger.WarnContext(ctx, "visit balance already exhausted, no visit recorded", "customer_id", updated.ID)
	}

	v.State = Granted
	v.Customer = &updated
	v.VisitRecorded = recorded
	v.Eligibility = EligibilityAt(updated, w.repo.Now())
	w.metrics.decision(Granted)
	w.logger.InfoContext(ctx, "access granted", "customer_id", updated.ID, "visits_left", updated.Visits)
	return nil
}

// Deny declines access. The customer record is left untouched.
func (w *Workflow) Deny(ctx context.Context, v *Verification) error {
	if v.State != Loaded {
		return fmt.Errorf("%w: verification is %s", ErrTransitionNotAllowed, v.State)
	}
	v.State = Denied
	w.metrics.decision(Denied)
	w.logger.InfoContext(ctx, "access denied", "customer_id", v.Customer.ID)
	return nil
}

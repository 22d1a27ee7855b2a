package verify

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/semanticallynull/loungeaccess-backend/customer"
)

type CustomerGetter interface {
	GetByID(ctx context.Context, id string) (customer.Customer, error)
}

// Links builds the verification URLs encoded in membership card QR codes.
type Links struct {
	base string
	repo CustomerGetter
}

// NewLinks creates a link builder. An empty base yields relative links.
func NewLinks(base string, repo CustomerGetter) *Links {
	return &Links{
		base: strings.TrimRight(base, "/"),
		repo: repo,
	}
}

func (l *Links) ForMembershipNumber(number string) string {
	return l.base + "/verify?" + url.Values{"membershipNumber": {number}}.Encode()
}

func (l *Links) CustomerNotFound() string {
	return l.base + "/verify?" + url.Values{"error": {ErrorCustomerNotFound}}.Encode()
}

// ForCustomer returns the verification link of the customer with the given id, or the
// customer-not-found link when there is no such customer.
func (l *Links) ForCustomer(ctx context.Context, id string) (string, error) {
	c, err := l.repo.GetByID(ctx, id)
	if errors.Is(err, customer.ErrNotFound) {
		return l.CustomerNotFound(), nil
	}
	if err != nil {
		return "", err
	}
	return l.ForMembershipNumber(c.MembershipNumber), nil
}

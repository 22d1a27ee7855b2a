package customer

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FormData is the create/edit form as submitted by the client.
type FormData struct {
	FirstName      string `json:"firstName" validate:"required"`
	LastName       string `json:"lastName" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone,omitempty"`
	MembershipType string `json:"membershipType" validate:"required,oneof=gold platinum diamond"`
	// ExpiryDate accepts RFC 3339 timestamps or plain dates (2006-01-02).
	ExpiryDate string `json:"expiryDate" validate:"required"`
	// Visits is optional. Create defaults it to zero, Update keeps the current balance.
	Visits *int `json:"visits,omitempty" validate:"omitempty,min=0"`
}

// ValidationError lists the form fields that failed validation, keyed by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid customer data: " + strings.Join(parts, "; ")
}

var fieldMessages = map[string]string{
	"firstName":      "First name is required",
	"lastName":       "Last name is required",
	"email":          "Invalid email address",
	"membershipType": "Please select a membership type",
	"expiryDate":     "Expiry date is required",
	"visits":         "Visits must be a positive number",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type parsedForm struct {
	firstName      string
	lastName       string
	email          string
	phone          string
	membershipType MembershipType
	expiryDate     time.Time
	visits         *int
}

func (f FormData) parse() (parsedForm, error) {
	fields := map[string]string{}

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return parsedForm{}, fmt.Errorf("validate customer form: %w", err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessages[fe.Field()]
		}
	}

	var expiry time.Time
	if _, failed := fields["expiryDate"]; !failed {
		var err error
		expiry, err = parseExpiryDate(f.ExpiryDate)
		if err != nil {
			fields["expiryDate"] = "Invalid expiry date"
		}
	}

	if len(fields) > 0 {
		return parsedForm{}, &ValidationError{Fields: fields}
	}

	// oneof already restricted the value to a known tier.
	mt, _ := ParseMembershipType(f.MembershipType)

	return parsedForm{
		firstName:      f.FirstName,
		lastName:       f.LastName,
		email:          f.Email,
		phone:          f.Phone,
		membershipType: mt,
		expiryDate:     expiry,
		visits:         f.Visits,
	}, nil
}

func parseExpiryDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

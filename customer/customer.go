package customer

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

type MembershipType int

const (
	Gold MembershipType = iota
	Platinum
	Diamond
)

var membershipTypeNames = [...]string{"gold", "platinum", "diamond"}

func (t MembershipType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("MembershipType(%d)", int(t))
	}
	return membershipTypeNames[t]
}

func (t MembershipType) Valid() bool {
	return t >= Gold && t <= Diamond
}

// ParseMembershipType accepts the lowercase tier names used on the wire.
func ParseMembershipType(s string) (MembershipType, error) {
	for i, name := range membershipTypeNames {
		if name == s {
			return MembershipType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown membership type %q", s)
}

func (t MembershipType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid membership type %d", int(t))
	}
	return json.Marshal(t.String())
}

func (t *MembershipType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMembershipType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Customer is a lounge member. The JSON field names are the persisted layout.
type Customer struct {
	// ID is the internal identifier. It never changes once assigned.
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`

	MembershipType MembershipType `json:"membershipType"`
	// MembershipNumber is printed on the card and encoded in its QR code, e.g. "G123456".
	MembershipNumber string `json:"membershipNumber"`

	ExpiryDate time.Time `json:"expiryDate"`
	CreatedAt  time.Time `json:"createdAt"`

	// Visits is the remaining number of lounge entries.
	Visits int `json:"visits"`
}

func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// ExpiredAt reports whether the membership expiry lies strictly before now.
func (c Customer) ExpiredAt(now time.Time) bool {
	return c.ExpiryDate.Before(now)
}

// DaysUntilExpiry rounds the remaining time up to whole days. It is zero or negative
// once the membership has expired.
func (c Customer) DaysUntilExpiry(now time.Time) int {
	return int(math.Ceil(float64(c.ExpiryDate.Sub(now)) / float64(24*time.Hour)))
}

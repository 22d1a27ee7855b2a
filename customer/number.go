package customer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

const membershipNumberAttempts = 16

var ErrMembershipNumberExhausted = errors.New("could not allocate a free membership number")

// NewIdentifier returns a random UUID string.
func NewIdentifier() string {
	return uuid.NewString()
}

// NumberGenerator draws membership numbers: the upper-cased first letter of the tier
// followed by six digits in [100000, 999999].
type NumberGenerator struct {
	intN func(n int) int
}

func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{intN: rand.IntN}
}

// Next draws numbers until taken reports a free one.
func (g *NumberGenerator) Next(t MembershipType, taken func(number string) bool) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("membership number for %v: invalid membership type", t)
	}
	prefix := strings.ToUpper(t.String()[:1])

	for range membershipNumberAttempts {
		number := fmt.Sprintf("%s%d", prefix, 100000+g.intN(900000))
		if taken == nil || !taken(number) {
			return number, nil
		}
	}
	return "", ErrMembershipNumberExhausted
}

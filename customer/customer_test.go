package customer

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestMembershipType_JSON(t *testing.T) {
	b, err := json.Marshal(Platinum)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(b) != `"platinum"` {
		t.Errorf("expected \"platinum\", got %s", b)
	}

	var mt MembershipType
	if err := json.Unmarshal([]byte(`"diamond"`), &mt); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mt != Diamond {
		t.Errorf("expected diamond, got %v", mt)
	}

	if err := json.Unmarshal([]byte(`"silver"`), &mt); err == nil {
		t.Error("expected error for unknown membership type")
	}
}

func TestCustomer_DecodesStoredLayout(t *testing.T) {
	raw := `{"id":"abc","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com",
		"membershipType":"gold","membershipNumber":"G123456",
		"expiryDate":"2026-11-15T00:00:00.000Z","createdAt":"2026-01-02T10:00:00.000Z","visits":5}`

	var c Customer
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.MembershipType != Gold || c.Visits != 5 || c.Phone != "" {
		t.Errorf("unexpected customer: %+v", c)
	}
	if !c.ExpiryDate.Equal(time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected expiry date %v", c.ExpiryDate)
	}
}

func TestCustomer_DaysUntilExpiry(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   int
	}{
		{"one hour left rounds up", now.Add(time.Hour), 1},
		{"exactly thirty days", now.Add(30 * 24 * time.Hour), 30},
		{"just over thirty days", now.Add(30*24*time.Hour + time.Minute), 31},
		{"now", now, 0},
		{"expired yesterday", now.Add(-24 * time.Hour), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Customer{ExpiryDate: tt.expiry}
			if got := c.DaysUntilExpiry(now); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCustomer_ExpiredAt(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	if !(Customer{ExpiryDate: now.Add(-time.Second)}).ExpiredAt(now) {
		t.Error("expected membership to be expired")
	}
	if (Customer{ExpiryDate: now}).ExpiredAt(now) {
		t.Error("expected membership expiring now to still be valid")
	}
}

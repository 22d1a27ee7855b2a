package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/semanticallynull/loungeaccess-backend/internal/kvstore"
)

func TestKVStore_LoadAbsentKey(t *testing.T) {
	s := NewKVStore(kvstore.NewMemory(), "", discardLogger())

	customers, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(customers) != 0 {
		t.Errorf("expected empty collection, got %d", len(customers))
	}
}

func TestKVStore_SaveAndLoad(t *testing.T) {
	kv := kvstore.NewMemory()
	s := NewKVStore(kv, "custom_key", discardLogger())
	ctx := context.Background()

	in := []Customer{{
		ID:               "id-1",
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Email:            "ada@example.com",
		MembershipType:   Diamond,
		MembershipNumber: "D123456",
		ExpiryDate:       time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Visits:           2,
	}}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := kv.Get(ctx, DefaultStorageKey); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("expected the custom key to be used, got %v", err)
	}

	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(out))
	}
	got := out[0]
	if got.ID != "id-1" || got.MembershipType != Diamond || got.MembershipNumber != "D123456" || got.Visits != 2 {
		t.Errorf("unexpected customer %+v", got)
	}
	if !got.ExpiryDate.Equal(in[0].ExpiryDate) || !got.CreatedAt.Equal(in[0].CreatedAt) {
		t.Errorf("expected dates to survive the round trip, got %+v", got)
	}
}

func TestKVStore_SaveEmptyWritesArray(t *testing.T) {
	kv := kvstore.NewMemory()
	s := NewKVStore(kv, "", discardLogger())

	if err := s.Save(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, _ := kv.Get(context.Background(), DefaultStorageKey)
	if string(b) != "[]" {
		t.Errorf("expected [], got %s", b)
	}
}

func TestKVStore_LoadCorrupt(t *testing.T) {
	kv := kvstore.NewMemory()
	_ = kv.Set(context.Background(), DefaultStorageKey, []byte(`[{"membershipType":"bronze"}]`))
	s := NewKVStore(kv, "", discardLogger())

	_, err := s.Load(context.Background())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}

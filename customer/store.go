package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/semanticallynull/loungeaccess-backend/internal/kvstore"
)

// DefaultStorageKey is the key the whole customer collection is stored under.
const DefaultStorageKey = "airport_lounge_customers"

// ErrStorageUnavailable marks a collection that could not be read or decoded.
// Callers degrade to an empty collection when they see it.
var ErrStorageUnavailable = errors.New("customer storage unavailable")

// Store persists the full customer collection. Every write replaces the previous
// collection as a whole.
type Store interface {
	Load(ctx context.Context) ([]Customer, error)
	Save(ctx context.Context, customers []Customer) error
	// Modify runs a read-modify-write of the collection that no other Modify or Save
	// can interleave with. fn may be called more than once if the backend retries.
	Modify(ctx context.Context, fn func(customers []Customer) ([]Customer, error)) error
}

// KVStore keeps the collection as a JSON array under a single key.
type KVStore struct {
	kv     kvstore.Store
	key    string
	logger *slog.Logger
}

func NewKVStore(kv kvstore.Store, key string, logger *slog.Logger) *KVStore {
	if key == "" {
		key = DefaultStorageKey
	}
	return &KVStore{
		kv:     kv,
		key:    key,
		logger: logger.With("component", "customer_store", "key", key),
	}
}

func (s *KVStore) Load(ctx context.Context) ([]Customer, error) {
	b, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return decodeCustomers(b)
}

func (s *KVStore) Save(ctx context.Context, customers []Customer) error {
	b, err := encodeCustomers(customers)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, b)
}

func (s *KVStore) Modify(ctx context.Context, fn func([]Customer) ([]Customer, error)) error {
	return s.kv.Update(ctx, s.key, func(current []byte) ([]byte, error) {
		customers, err := decodeCustomers(current)
		if err != nil {
			// The unreadable value is overwritten by the result of fn.
			s.logger.WarnContext(ctx, "discarding unreadable customer collection", "error", err)
			customers = nil
		}

		next, err := fn(customers)
		if err != nil {
			return nil, err
		}
		return encodeCustomers(next)
	})
}

func decodeCustomers(b []byte) ([]Customer, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var customers []Customer
	if err := json.Unmarshal(b, &customers); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrStorageUnavailable, err)
	}
	return customers, nil
}

func encodeCustomers(customers []Customer) ([]byte, error) {
	if customers == nil {
		customers = []Customer{}
	}
	b, err := json.Marshal(customers)
	if err != nil {
		return nil, fmt.Errorf("encode customers: %w", err)
	}
	return b, nil
}

package kvstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func TestMemory(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return NewMemory() })
}

func TestFile(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, err := NewFile(t.TempDir())
		if err != nil {
			t.Fatalf("failed to create file store: %v", err)
		}
		return s
	})
}

func TestRedis(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return NewRedis(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})
}

func TestPostgres(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	runStoreTests(t, func(t *testing.T) Store {
		db, err := sqlx.Connect("pgx", dbURL)
		if err != nil {
			t.Fatalf("failed to connect to database: %v", err)
		}
		s, err := NewPostgres(context.Background(), db)
		if err != nil {
			t.Fatalf("failed to create postgres store: %v", err)
		}
		if _, err := db.Exec("DELETE FROM kv_entries"); err != nil {
			t.Fatalf("failed to clean kv_entries: %v", err)
		}
		return s
	})
}

func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("Get missing key", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.Get(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Set then Get", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if err := s.Set(ctx, "k", []byte(`[1,2]`)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := s.Set(ctx, "k", []byte(`[3]`)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != `[3]` {
			t.Errorf("expected [3], got %s", got)
		}
	})

	t.Run("Update sees nil for absent key", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		err := s.Update(ctx, "fresh", func(current []byte) ([]byte, error) {
			if len(current) != 0 {
				t.Errorf("expected empty current value, got %q", current)
			}
			return []byte("v1"), nil
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, _ := s.Get(ctx, "fresh")
		if string(got) != "v1" {
			t.Errorf("expected v1, got %s", got)
		}
	})

	t.Run("Update error aborts write", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_ = s.Set(ctx, "k", []byte("before"))
		boom := errors.New("boom")
		err := s.Update(ctx, "k", func([]byte) ([]byte, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		got, _ := s.Get(ctx, "k")
		if string(got) != "before" {
			t.Errorf("expected value to be unchanged, got %s", got)
		}
	})

	t.Run("Concurrent updates are not lost", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_ = s.Set(ctx, "counter", []byte("0"))

		const workers = 10
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Update(ctx, "counter", func(current []byte) ([]byte, error) {
					n, err := strconv.Atoi(string(current))
					if err != nil {
						return nil, err
					}
					return []byte(strconv.Itoa(n + 1)), nil
				})
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
			} else if !errors.Is(err, ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}

		got, _ := s.Get(ctx, "counter")
		if string(got) != strconv.Itoa(succeeded) {
			t.Errorf("expected counter %d, got %s", succeeded, got)
		}
	})
}

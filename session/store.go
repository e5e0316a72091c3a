package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/recordstore/storage"
	"github.com/panjf2000/ants/v2"
)

// DefaultWorkers bounds concurrent blocking store calls when NewStore is
// given no explicit pool size.
const DefaultWorkers = 4

// Backend is the adapter surface the session store needs: the full operation
// set plus predicate queries for expiry pruning.
type Backend interface {
	storage.Adapter[string, Session]
	storage.Queryable[string, Session]
}

// Store adapts a record backend into a web session store.
type Store struct {
	backend Backend
	pool    *ants.Pool
	now     func() time.Time
}

// NewStore wraps a backend with a blocking worker pool of the given size;
// workers <= 0 selects DefaultWorkers. The backend's table must already be
// initialized.
func NewStore(backend Backend, workers int) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Store{backend: backend, pool: pool, now: time.Now}, nil
}

// Close releases the worker pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Release()
	}
}

// offload runs fn on the blocking pool and waits for it. The caller's
// context cancels the wait only; fn keeps running against a detached
// context, so a write that already reached the database stays committed.
func (s *Store) offload(ctx context.Context, fn func(ctx context.Context) error) error {
	detached := context.WithoutCancel(ctx)
	done := make(chan error, 1)
	if err := s.pool.Submit(func() {
		done <- fn(detached)
	}); err != nil {
		return fmt.Errorf("submit to worker pool: %w", err)
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadSession returns the session stored under id. Expired sessions report
// found == false.
func (s *Store) LoadSession(ctx context.Context, id string) (Session, bool, error) {
	var loaded Session
	var found bool
	err := s.offload(ctx, func(ctx context.Context) error {
		var err error
		loaded, found, err = s.backend.Load(ctx, id)
		return err
	})
	if err != nil {
		return Session{}, false, err
	}
	if found && loaded.Expired(s.now()) {
		return Session{}, false, nil
	}
	return loaded, found, nil
}

// StoreSession saves a session and returns its ID, generating one when the
// session has none. Re-saving an existing session replaces its non-key
// columns; expired sessions are pruned on the way.
func (s *Store) StoreSession(ctx context.Context, sess Session) (string, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	id := sess.ID

	err := s.offload(ctx, func(ctx context.Context) error {
		if _, err := s.pruneExpired(ctx); err != nil {
			return err
		}

		exists, err := s.backend.Contains(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			// Store is insert-only; replacing goes through Update.
			return s.backend.Update(ctx, id, sess, nil)
		}
		return s.backend.Store(ctx, id, sess)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DestroySession removes the session stored under id; destroying an unknown
// session is silent.
func (s *Store) DestroySession(ctx context.Context, id string) error {
	return s.offload(ctx, func(ctx context.Context) error {
		return s.backend.Delete(ctx, id)
	})
}

// ClearStore removes every stored session.
func (s *Store) ClearStore(ctx context.Context) error {
	return s.offload(ctx, func(ctx context.Context) error {
		return s.backend.Clear(ctx)
	})
}

// PruneExpired removes sessions whose deadline has passed and returns how
// many were dropped.
func (s *Store) PruneExpired(ctx context.Context) (int, error) {
	var pruned int
	err := s.offload(ctx, func(ctx context.Context) error {
		var err error
		pruned, err = s.pruneExpired(ctx)
		return err
	})
	return pruned, err
}

func (s *Store) pruneExpired(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().UnixMilli()
	// A zero expires_at marks a session without a deadline.
	q := storage.And(
		storage.Gt("expires_at", storage.IntValue(0)),
		storage.Lt("expires_at", storage.IntValue(cutoff)),
	)
	expired, err := s.backend.QueryRecords(ctx, q, 0, -1)
	if err != nil {
		return 0, err
	}
	for _, entry := range expired {
		if err := s.backend.Delete(ctx, entry.Key); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

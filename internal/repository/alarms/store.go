package alarms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// CollectionKey is the fixed key the alarm collection is stored under.
const CollectionKey = "alarm-clock.alarms"

// corruptSuffix is appended to the key to preserve undecodable data.
const corruptSuffix = ".corrupt"

// Repository defines persistence operations for alarm records.
type Repository interface {
	Put(ctx context.Context, record *domain.Record) error
	Get(ctx context.Context, id string) (*domain.Record, error)
	List(ctx context.Context) ([]*domain.Record, error)
	MarkState(ctx context.Context, id string, state domain.State) (*domain.Record, error)
	Update(ctx context.Context, id string, mutate func(*domain.Record) error) (*domain.Record, error)
	Remove(ctx context.Context, id string) (bool, error)
}

// Store keeps the alarm collection in a Backend.
// Records are returned as clones; callers never share memory with the store.
type Store struct {
	// backend is the durable key-value storage.
	backend Backend
	// now returns the current time, replaceable in tests.
	now func() time.Time
	// mu serializes every read-modify-write cycle.
	mu sync.Mutex
}

// NewStore creates a store over the provided backend.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		now:     time.Now,
	}
}

// Put appends a new record. The id must not be present yet.
func (s *Store) Put(ctx context.Context, record *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	for _, r := range records {
		if r.ID == record.ID {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, record.ID)
		}
	}

	return s.save(ctx, append(records, record.Clone()))
}

// Get returns the record with the id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.read(ctx) {
		if r.ID == id {
			return r, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// List returns every record in creation order.
// An unreadable backend yields an empty collection.
func (s *Store) List(ctx context.Context) ([]*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(ctx), nil
}

// MarkState moves the record to a new state if the lifecycle allows it.
func (s *Store) MarkState(ctx context.Context, id string, state domain.State) (*domain.Record, error) {
	return s.Update(ctx, id, func(r *domain.Record) error {
		if !domain.CanTransition(r.State, state) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, r.State, state)
		}

		r.State = state

		return nil
	})
}

// Update applies mutate to the record and persists the result.
// Nothing is written if mutate returns an error.
func (s *Store) Update(
	ctx context.Context,
	id string,
	mutate func(*domain.Record) error,
) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if r.ID != id {
			continue
		}

		if err = mutate(r); err != nil {
			return nil, err
		}

		r.UpdatedAt = s.now()

		if err = s.save(ctx, records); err != nil {
			return nil, err
		}

		return r.Clone(), nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// Remove deletes the record and reports whether it existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}

	if len(kept) == len(records) {
		return false, nil
	}

	if err = s.save(ctx, kept); err != nil {
		return false, err
	}

	return true, nil
}

// read is load for read-only callers: backend errors are logged and the collection is empty.
// Writers use load so a failed read never overwrites stored alarms.
func (s *Store) read(ctx context.Context) []*domain.Record {
	records, err := s.load(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Alarm store is unreadable, reporting no alarms", "error", err)

		return nil
	}

	return records
}

// load reads the collection. Missing data is an empty collection.
// Undecodable data is logged, copied aside and also treated as empty.
func (s *Store) load(ctx context.Context) ([]*domain.Record, error) {
	contents, err := s.backend.Get(ctx, CollectionKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("load alarms: %w", err)
	}

	var records []*domain.Record
	if err = json.Unmarshal(contents, &records); err != nil {
		s.recoverCorrupt(ctx, contents, err)

		return nil, nil
	}

	valid := records[:0]
	for _, r := range records {
		if r == nil || r.ID == "" || !r.State.IsValid() {
			logger.WarnKV(ctx, "Skipping malformed alarm record", "error", domain.ErrStoreCorrupt)

			continue
		}

		valid = append(valid, r)
	}

	return valid, nil
}

// recoverCorrupt keeps a copy of unreadable data so the next write does not destroy it.
func (s *Store) recoverCorrupt(ctx context.Context, contents []byte, cause error) {
	logger.ErrorKV(ctx, "Alarm store is unreadable, starting from an empty collection",
		"error", fmt.Errorf("%w: %w", domain.ErrStoreCorrupt, cause),
		"backup_key", CollectionKey+corruptSuffix,
	)

	if err := s.backend.Put(ctx, CollectionKey+corruptSuffix, contents); err != nil {
		logger.ErrorKV(ctx, "Failed to back up corrupt alarm data", "error", err)
	}
}

// save rewrites the whole collection.
func (s *Store) save(ctx context.Context, records []*domain.Record) error {
	if records == nil {
		records = []*domain.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}

	if err = s.backend.Put(ctx, CollectionKey, data); err != nil {
		return fmt.Errorf("save alarms: %w", err)
	}

	return nil
}

// Package branches exposes the branch directory the core consumes read-only.
// Branch CRUD belongs to the external brand management service; this store
// only resolves branch records (short codes for QR links) and keeps the
// per-branch delete PIN hashes that guard destructive table operations.
package branches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"dinetrack-ops-service/internal/storage"
)

var ErrNotFound = errors.New("branches: branch not found")

type Branch struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Name      string `json:"name"`
	ShortCode string `json:"shortCode"`
	Currency  string `json:"currency,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

type Store struct {
	mu       sync.RWMutex
	backend  storage.Backend
	branches []Branch
	pins     map[string]string
}

func Open(ctx context.Context, backend storage.Backend) (*Store, error) {
	s := &Store{backend: backend, pins: make(map[string]string)}

	data, err := backend.Load(ctx, storage.KeyBranches)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &s.branches); err != nil {
			return nil, fmt.Errorf("decode branches: %w", err)
		}
	}

	pinData, err := backend.Load(ctx, storage.KeyDeletePins)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(pinData, &s.pins); err != nil {
			return nil, fmt.Errorf("decode delete pins: %w", err)
		}
	}

	return s, nil
}

func (s *Store) Get(id string) (Branch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.branches {
		if b.ID == id {
			return b, true
		}
	}
	return Branch{}, false
}

func (s *Store) ByShortCode(code string) (Branch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.branches {
		if b.ShortCode == code {
			return b, true
		}
	}
	return Branch{}, false
}

func (s *Store) ByOwner(ownerID string) []Branch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Branch, 0)
	for _, b := range s.branches {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out
}

// DeletePinHash returns the bcrypt hash of the branch's delete PIN, if one is
// set.
func (s *Store) DeletePinHash(branchID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.pins[branchID]
	return hash, ok
}

func (s *Store) SetDeletePinHash(ctx context.Context, branchID string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.pins[branchID]
	s.pins[branchID] = hash
	if err := s.persistPins(ctx); err != nil {
		if had {
			s.pins[branchID] = prev
		} else {
			delete(s.pins, branchID)
		}
		return err
	}
	return nil
}

func (s *Store) RemoveDeletePin(ctx context.Context, branchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.pins[branchID]
	if !had {
		return nil
	}
	delete(s.pins, branchID)
	if err := s.persistPins(ctx); err != nil {
		s.pins[branchID] = prev
		return err
	}
	return nil
}

func (s *Store) persistPins(ctx context.Context) error {
	data, err := json.Marshal(s.pins)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, storage.KeyDeletePins, data)
}

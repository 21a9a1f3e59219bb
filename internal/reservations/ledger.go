// Package reservations is the append-style ledger of reservations per table.
// A table legitimately holds several future reservations; the ledger never
// rejects overlapping confirmed windows, it reports them so the operator can
// resolve the conflict.
package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dinetrack-ops-service/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("reservations: reservation not found")
	ErrValidation = errors.New("reservations: validation failed")
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Reservation struct {
	ID             string    `json:"id"`
	TableID        string    `json:"tableId"`
	BranchID       string    `json:"branchId"`
	GuestName      string    `json:"guestName"`
	GuestPhone     string    `json:"guestPhone,omitempty"`
	GuestEmail     string    `json:"guestEmail,omitempty"`
	NumberOfGuests int       `json:"numberOfGuests"`
	Start          time.Time `json:"reservationStart"`
	End            time.Time `json:"reservationEnd"`
	Status         Status    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
}

type Input struct {
	TableID        string
	BranchID       string
	GuestName      string
	GuestPhone     string
	GuestEmail     string
	NumberOfGuests int
	Start          time.Time
	End            time.Time
	Notes          string
}

type Patch struct {
	GuestName      *string
	GuestPhone     *string
	GuestEmail     *string
	NumberOfGuests *int
	Start          *time.Time
	End            *time.Time
	Notes          *string
}

type Ledger struct {
	mu           sync.RWMutex
	backend      storage.Backend
	reservations []Reservation
}

func Open(ctx context.Context, backend storage.Backend) (*Ledger, error) {
	l := &Ledger{backend: backend}
	data, err := backend.Load(ctx, storage.KeyReservations)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &l.reservations); err != nil {
			return nil, fmt.Errorf("decode reservations: %w", err)
		}
	}
	return l, nil
}

func (l *Ledger) persist(ctx context.Context) error {
	data, err := json.Marshal(l.reservations)
	if err != nil {
		return err
	}
	return l.backend.Save(ctx, storage.KeyReservations, data)
}

func (l *Ledger) Get(id string) (Reservation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := l.indexOf(id); idx >= 0 {
		return l.reservations[idx], true
	}
	return Reservation{}, false
}

// ByTable returns every reservation for the table, ordered by start time so
// the carousel display is deterministic.
func (l *Ledger) ByTable(tableID string) []Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Reservation, 0)
	for _, res := range l.reservations {
		if res.TableID == tableID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (l *Ledger) ByBranch(branchID string) []Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Reservation, 0)
	for _, res := range l.reservations {
		if res.BranchID == branchID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ActiveFor resolves the reservation a table is currently inside of, if any.
// Confirmed reservations only; earliest start wins when windows overlap.
func (l *Ledger) ActiveFor(tableID string, now time.Time) (Reservation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var active Reservation
	found := false
	for _, res := range l.reservations {
		if res.TableID != tableID || res.Status != StatusConfirmed {
			continue
		}
		if now.Before(res.Start) || !now.Before(res.End) {
			continue
		}
		if !found || res.Start.Before(active.Start) {
			active = res
			found = true
		}
	}
	return active, found
}

func validate(input Input) error {
	if strings.TrimSpace(input.GuestName) == "" {
		return fmt.Errorf("%w: guest name is required", ErrValidation)
	}
	if strings.TrimSpace(input.TableID) == "" {
		return fmt.Errorf("%w: table id is required", ErrValidation)
	}
	if strings.TrimSpace(input.BranchID) == "" {
		return fmt.Errorf("%w: branch id is required", ErrValidation)
	}
	if input.NumberOfGuests < 1 {
		return fmt.Errorf("%w: number of guests must be at least 1", ErrValidation)
	}
	if !input.Start.Before(input.End) {
		return fmt.Errorf("%w: reservation start must be before end", ErrValidation)
	}
	return nil
}

// Add stores the reservation and returns the confirmed reservations on the
// same table whose windows overlap the new one, so the caller can warn the
// operator. Overlaps are allowed; staff resolve conflicts manually.
func (l *Ledger) Add(ctx context.Context, input Input) (Reservation, []Reservation, error) {
	if err := validate(input); err != nil {
		return Reservation{}, nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	res := Reservation{
		ID:             uuid.NewString(),
		TableID:        input.TableID,
		BranchID:       input.BranchID,
		GuestName:      strings.TrimSpace(input.GuestName),
		GuestPhone:     strings.TrimSpace(input.GuestPhone),
		GuestEmail:     strings.TrimSpace(input.GuestEmail),
		NumberOfGuests: input.NumberOfGuests,
		Start:          input.Start,
		End:            input.End,
		Status:         StatusConfirmed,
		Notes:          input.Notes,
	}

	overlaps := l.overlapping(res)

	l.reservations = append(l.reservations, res)
	if err := l.persist(ctx); err != nil {
		l.reservations = l.reservations[:len(l.reservations)-1]
		return Reservation{}, nil, err
	}
	return res, overlaps, nil
}

func (l *Ledger) Update(ctx context.Context, id string, patch Patch) (Reservation, []Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return Reservation{}, nil, ErrNotFound
	}

	prev := l.reservations[idx]
	res := prev
	if patch.GuestName != nil {
		if strings.TrimSpace(*patch.GuestName) == "" {
			return Reservation{}, nil, fmt.Errorf("%w: guest name is required", ErrValidation)
		}
		res.GuestName = strings.TrimSpace(*patch.GuestName)
	}
	if patch.GuestPhone != nil {
		res.GuestPhone = strings.TrimSpace(*patch.GuestPhone)
	}
	if patch.GuestEmail != nil {
		res.GuestEmail = strings.TrimSpace(*patch.GuestEmail)
	}
	if patch.NumberOfGuests != nil {
		if *patch.NumberOfGuests < 1 {
			return Reservation{}, nil, fmt.Errorf("%w: number of guests must be at least 1", ErrValidation)
		}
		res.NumberOfGuests = *patch.NumberOfGuests
	}
	if patch.Start != nil {
		res.Start = *patch.Start
	}
	if patch.End != nil {
		res.End = *patch.End
	}
	if !res.Start.Before(res.End) {
		return Reservation{}, nil, fmt.Errorf("%w: reservation start must be before end", ErrValidation)
	}
	if patch.Notes != nil {
		res.Notes = *patch.Notes
	}

	overlaps := make([]Reservation, 0)
	if res.Status == StatusConfirmed {
		overlaps = l.overlappingExcept(res, id)
	}

	l.reservations[idx] = res
	if err := l.persist(ctx); err != nil {
		l.reservations[idx] = prev
		return Reservation{}, nil, err
	}
	return res, overlaps, nil
}

// Cancel keeps the row in the ledger; cancelled reservations stay visible as
// history.
func (l *Ledger) Cancel(ctx context.Context, id string) (Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return Reservation{}, ErrNotFound
	}

	prev := l.reservations[idx]
	res := prev
	res.Status = StatusCancelled
	l.reservations[idx] = res
	if err := l.persist(ctx); err != nil {
		l.reservations[idx] = prev
		return Reservation{}, err
	}
	return res, nil
}

func (l *Ledger) overlapping(res Reservation) []Reservation {
	return l.overlappingExcept(res, "")
}

func (l *Ledger) overlappingExcept(res Reservation, excludeID string) []Reservation {
	out := make([]Reservation, 0)
	for _, other := range l.reservations {
		if other.ID == excludeID || other.TableID != res.TableID || other.Status != StatusConfirmed {
			continue
		}
		if res.Start.Before(other.End) && other.Start.Before(res.End) {
			out = append(out, other)
		}
	}
	return out
}

func (l *Ledger) indexOf(id string) int {
	for i, res := range l.reservations {
		if res.ID == id {
			return i
		}
	}
	return -1
}

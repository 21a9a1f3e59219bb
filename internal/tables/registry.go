// Package tables is the registry of physical tables per branch and floor.
// A table carries its occupancy status plus a denormalized snapshot of the
// reservation it is currently seated under; the reservation ledger stays the
// source of truth for reservation history.
package tables

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
	ErrNotFound   = errors.New("tables: table not found")
	ErrValidation = errors.New("tables: validation failed")
)

type Status string

const (
	StatusAvailable    Status = "available"
	StatusOccupied     Status = "occupied"
	StatusOutOfService Status = "out_of_service"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusOutOfService:
		return true
	}
	return false
}

type Table struct {
	ID       string `json:"id"`
	BranchID string `json:"branchId"`
	Floor    int    `json:"floor"`
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
	Status   Status `json:"status"`

	// Snapshot of the currently displayed reservation. Cleared whenever the
	// table goes available or out of service.
	ReservationStart *time.Time `json:"reservationStart,omitempty"`
	ReservationEnd   *time.Time `json:"reservationEnd,omitempty"`
	ReservationName  *string    `json:"reservationName,omitempty"`
}

type AreaStatus string

const (
	AreaActive      AreaStatus = "active"
	AreaInactive    AreaStatus = "inactive"
	AreaUnavailable AreaStatus = "unavailable"
)

// Area groups a floor's tables for display and bulk activation.
type Area struct {
	ID       string     `json:"id"`
	BranchID string     `json:"branchId"`
	Name     string     `json:"name"`
	Floor    int        `json:"floor"`
	Status   AreaStatus `json:"status"`
}

type TableInput struct {
	BranchID string
	Floor    int
	Number   int
	Capacity int
}

type TablePatch struct {
	Floor            *int
	Number           *int
	Capacity         *int
	Status           *Status
	ReservationStart *time.Time
	ReservationEnd   *time.Time
	ReservationName  *string
}

type Registry struct {
	mu      sync.RWMutex
	backend storage.Backend
	tables  []Table
	areas   []Area
}

func Open(ctx context.Context, backend storage.Backend) (*Registry, error) {
	r := &Registry{backend: backend}
	if err := loadDoc(ctx, backend, storage.KeyTables, &r.tables); err != nil {
		return nil, err
	}
	if err := loadDoc(ctx, backend, storage.KeyAreas, &r.areas); err != nil {
		return nil, err
	}
	return r, nil
}

func loadDoc(ctx context.Context, backend storage.Backend, key string, out any) error {
	data, err := backend.Load(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *Registry) persistTables(ctx context.Context) error {
	data, err := json.Marshal(r.tables)
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, storage.KeyTables, data)
}

func (r *Registry) persistAreas(ctx context.Context) error {
	data, err := json.Marshal(r.areas)
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, storage.KeyAreas, data)
}

func (r *Registry) Get(id string) (Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.tables[idx], true
	}
	return Table{}, false
}

func (r *Registry) ByBranch(branchID string) []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Table, 0)
	for _, t := range r.tables {
		if t.BranchID == branchID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ByBranchAndFloor groups tables per floor, the canonical view for the floor
// map UIs. A zero or negative floor is treated as floor 1.
func (r *Registry) ByBranchAndFloor(branchID string) map[int][]Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int][]Table)
	for _, t := range r.tables {
		if t.BranchID != branchID {
			continue
		}
		floor := t.Floor
		if floor < 1 {
			floor = 1
		}
		out[floor] = append(out[floor], t)
	}
	for floor := range out {
		group := out[floor]
		sort.Slice(group, func(i, j int) bool { return group[i].Number < group[j].Number })
		out[floor] = group
	}
	return out
}

func (r *Registry) Add(ctx context.Context, input TableInput) (Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(input.BranchID) == "" {
		return Table{}, fmt.Errorf("%w: branch id is required", ErrValidation)
	}
	if input.Capacity < 1 {
		return Table{}, fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
	}

	floor := input.Floor
	if floor < 1 {
		floor = 1
	}

	t := Table{
		ID:       uuid.NewString(),
		BranchID: input.BranchID,
		Floor:    floor,
		Number:   input.Number,
		Capacity: input.Capacity,
		Status:   StatusAvailable,
	}

	r.tables = append(r.tables, t)
	if err := r.persistTables(ctx); err != nil {
		r.tables = r.tables[:len(r.tables)-1]
		return Table{}, err
	}
	return t, nil
}

// UpdateStatus sets the occupancy status. Going available or out of service
// always wipes the reservation snapshot so the table never advertises a
// reservation it is no longer seated under. The ledger is left untouched.
func (r *Registry) UpdateStatus(ctx context.Context, id string, status Status) (Table, error) {
	if !ValidStatus(status) {
		return Table{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return Table{}, ErrNotFound
	}

	prev := r.tables[idx]
	t := prev
	t.Status = status
	if status == StatusAvailable || status == StatusOutOfService {
		t.ReservationStart = nil
		t.ReservationEnd = nil
		t.ReservationName = nil
	}

	r.tables[idx] = t
	if err := r.persistTables(ctx); err != nil {
		r.tables[idx] = prev
		return Table{}, err
	}
	return t, nil
}

// Update applies a partial patch. Reservation assignment uses this to set
// occupied status and the snapshot fields in one write.
func (r *Registry) Update(ctx context.Context, id string, patch TablePatch) (Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return Table{}, ErrNotFound
	}

	prev := r.tables[idx]
	t := prev
	if patch.Floor != nil {
		floor := *patch.Floor
		if floor < 1 {
			floor = 1
		}
		t.Floor = floor
	}
	if patch.Number != nil {
		t.Number = *patch.Number
	}
	if patch.Capacity != nil {
		if *patch.Capacity < 1 {
			return Table{}, fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
		}
		t.Capacity = *patch.Capacity
	}
	if patch.Status != nil {
		if !ValidStatus(*patch.Status) {
			return Table{}, fmt.Errorf("%w: unknown status %q", ErrValidation, *patch.Status)
		}
		t.Status = *patch.Status
	}
	if patch.ReservationStart != nil {
		t.ReservationStart = patch.ReservationStart
	}
	if patch.ReservationEnd != nil {
		t.ReservationEnd = patch.ReservationEnd
	}
	if patch.ReservationName != nil {
		t.ReservationName = patch.ReservationName
	}
	if t.Status == StatusAvailable || t.Status == StatusOutOfService {
		t.ReservationStart = nil
		t.ReservationEnd = nil
		t.ReservationName = nil
	}

	r.tables[idx] = t
	if err := r.persistTables(ctx); err != nil {
		r.tables[idx] = prev
		return Table{}, err
	}
	return t, nil
}

// Delete removes the table outright. Callers are responsible for warning the
// operator about reservations and orders that keep referencing it.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}

	prev := r.tables
	tables := make([]Table, 0, len(r.tables)-1)
	tables = append(tables, r.tables[:idx]...)
	tables = append(tables, r.tables[idx+1:]...)
	r.tables = tables

	if err := r.persistTables(ctx); err != nil {
		r.tables = prev
		return err
	}
	return nil
}

func (r *Registry) AreasByBranch(branchID string) []Area {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Area, 0)
	for _, a := range r.areas {
		if a.BranchID == branchID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Floor < out[j].Floor })
	return out
}

// FloorSelectable reports whether a floor's tables should be offered for
// seating. A floor with no area record defaults to selectable.
func (r *Registry) FloorSelectable(branchID string, floor int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.areas {
		if a.BranchID == branchID && a.Floor == floor {
			return a.Status == AreaActive
		}
	}
	return true
}

func (r *Registry) AddArea(ctx context.Context, branchID, name string, floor int) (Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(branchID) == "" {
		return Area{}, fmt.Errorf("%w: branch id is required", ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return Area{}, fmt.Errorf("%w: area name is required", ErrValidation)
	}
	if floor < 1 {
		floor = 1
	}

	a := Area{
		ID:       uuid.NewString(),
		BranchID: branchID,
		Name:     strings.TrimSpace(name),
		Floor:    floor,
		Status:   AreaActive,
	}
	r.areas = append(r.areas, a)
	if err := r.persistAreas(ctx); err != nil {
		r.areas = r.areas[:len(r.areas)-1]
		return Area{}, err
	}
	return a, nil
}

func (r *Registry) UpdateAreaStatus(ctx context.Context, id string, status AreaStatus) (Area, error) {
	switch status {
	case AreaActive, AreaInactive, AreaUnavailable:
	default:
		return Area{}, fmt.Errorf("%w: unknown area status %q", ErrValidation, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.areas {
		if a.ID != id {
			continue
		}
		prev := r.areas[i]
		a.Status = status
		r.areas[i] = a
		if err := r.persistAreas(ctx); err != nil {
			r.areas[i] = prev
			return Area{}, err
		}
		return a, nil
	}
	return Area{}, ErrNotFound
}

func (r *Registry) indexOf(id string) int {
	for i, t := range r.tables {
		if t.ID == id {
			return i
		}
	}
	return -1
}

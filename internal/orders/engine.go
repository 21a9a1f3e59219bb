// Package orders is the order engine: orders per table, each built from one
// or more order lines (rounds of ordering), with a caller-driven status
// machine and a billed flag that archives the order out of the active path.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"dinetrack-ops-service/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("orders: order not found")
	ErrValidation        = errors.New("orders: validation failed")
	ErrInvalidTransition = errors.New("orders: invalid status transition")
	ErrAlreadyBilled     = errors.New("orders: order already billed")
	ErrNotBillable       = errors.New("orders: order is not billable")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the full lifecycle. completed and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ID         string  `json:"id"`
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	TotalPrice float64 `json:"totalPrice"`
}

type OrderLine struct {
	ID        string      `json:"id"`
	Status    Status      `json:"orderLineStatus"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
	Notes     string      `json:"notes,omitempty"`
}

type Order struct {
	ID          string      `json:"id"`
	BranchID    string      `json:"branchId"`
	TableID     string      `json:"areaTableId,omitempty"`
	TableNumber int         `json:"tableNumber"`
	Status      Status      `json:"status"`
	Billed      bool        `json:"billed"`
	BilledAt    *time.Time  `json:"billedAt,omitempty"`
	Lines       []OrderLine `json:"orderLines"`
	Total       float64     `json:"total"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type ItemInput struct {
	MenuItemID string
	Name       string
	Quantity   int
	Price      float64
}

type LineInput struct {
	Items []ItemInput
	Notes string
}

type OrderInput struct {
	BranchID    string
	TableID     string
	TableNumber int
	Line        LineInput
}

type Engine struct {
	mu      sync.RWMutex
	backend storage.Backend
	orders  []Order
	now     func() time.Time
}

func Open(ctx context.Context, backend storage.Backend) (*Engine, error) {
	e := &Engine{backend: backend, now: time.Now}
	data, err := backend.Load(ctx, storage.KeyOrders)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &e.orders); err != nil {
			return nil, fmt.Errorf("decode orders: %w", err)
		}
	}
	return e, nil
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) persist(ctx context.Context) error {
	data, err := json.Marshal(e.orders)
	if err != nil {
		return err
	}
	return e.backend.Save(ctx, storage.KeyOrders, data)
}

// Round2 rounds a money amount to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func buildLine(input LineInput, now time.Time) (OrderLine, error) {
	if len(input.Items) == 0 {
		return OrderLine{}, fmt.Errorf("%w: order line must have at least one item", ErrValidation)
	}

	line := OrderLine{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Items:     make([]OrderItem, 0, len(input.Items)),
		CreatedAt: now,
		Notes:     strings.TrimSpace(input.Notes),
	}

	for _, item := range input.Items {
		if strings.TrimSpace(item.Name) == "" {
			return OrderLine{}, fmt.Errorf("%w: item name is required", ErrValidation)
		}
		if item.Quantity < 1 {
			return OrderLine{}, fmt.Errorf("%w: item quantity must be at least 1", ErrValidation)
		}
		if item.Price < 0 {
			return OrderLine{}, fmt.Errorf("%w: item price must not be negative", ErrValidation)
		}
		total := Round2(item.Price * float64(item.Quantity))
		line.Items = append(line.Items, OrderItem{
			ID:         uuid.NewString(),
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
			TotalPrice: total,
		})
		line.Total = Round2(line.Total + total)
	}
	return line, nil
}

func orderTotal(lines []OrderLine) float64 {
	var total float64
	for _, line := range lines {
		total = Round2(total + line.Total)
	}
	return total
}

// Add creates a new order with its first line. Item prices are snapshots
// taken at creation time, not live links to the catalog.
func (e *Engine) Add(ctx context.Context, input OrderInput) (Order, error) {
	if strings.TrimSpace(input.BranchID) == "" {
		return Order{}, fmt.Errorf("%w: branch id is required", ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	line, err := buildLine(input.Line, now)
	if err != nil {
		return Order{}, err
	}

	order := Order{
		ID:          uuid.NewString(),
		BranchID:    input.BranchID,
		TableID:     input.TableID,
		TableNumber: input.TableNumber,
		Status:      StatusPending,
		Lines:       []OrderLine{line},
		Total:       line.Total,
		CreatedAt:   now,
	}

	e.orders = append(e.orders, order)
	if err := e.persist(ctx); err != nil {
		e.orders = e.orders[:len(e.orders)-1]
		return Order{}, err
	}
	return order, nil
}

// AddLine appends a round of items to an existing order. The order's status
// is untouched; the total is recomputed over all lines.
func (e *Engine) AddLine(ctx context.Context, orderID string, input LineInput) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(orderID)
	if idx < 0 {
		return Order{}, ErrNotFound
	}

	prev := e.orders[idx]
	if prev.Billed {
		return Order{}, ErrAlreadyBilled
	}

	line, err := buildLine(input, e.now())
	if err != nil {
		return Order{}, err
	}

	order := prev
	order.Lines = append(append([]OrderLine{}, prev.Lines...), line)
	order.Total = orderTotal(order.Lines)

	e.orders[idx] = order
	if err := e.persist(ctx); err != nil {
		e.orders[idx] = prev
		return Order{}, err
	}
	return order, nil
}

func (e *Engine) Get(id string) (Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx := e.indexOf(id); idx >= 0 {
		return e.orders[idx], true
	}
	return Order{}, false
}

func (e *Engine) ByBranch(branchID string) []Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Order, 0)
	for _, order := range e.orders {
		if order.BranchID == branchID {
			out = append(out, order)
		}
	}
	return out
}

// ActiveByTable resolves the most recent unbilled order for the table. There
// is one active order per table at a time: new manual orders append a line to
// it instead of opening a second order, until the active one is billed.
func (e *Engine) ActiveByTable(branchID string, tableNumber int) (Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var active Order
	found := false
	for _, order := range e.orders {
		if order.BranchID != branchID || order.TableNumber != tableNumber || order.Billed {
			continue
		}
		if !found || order.CreatedAt.After(active.CreatedAt) {
			active = order
			found = true
		}
	}
	return active, found
}

// UpdateStatus enforces the lifecycle: pending, preparing, ready, completed,
// with cancellation allowed from pending and preparing only. Out-of-order
// requests are rejected rather than applied.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status Status) (Order, error) {
	if !ValidStatus(status) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(id)
	if idx < 0 {
		return Order{}, ErrNotFound
	}

	prev := e.orders[idx]
	if prev.Status == status {
		return prev, nil
	}
	if !CanTransition(prev.Status, status) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev.Status, status)
	}

	order := prev
	order.Status = status

	e.orders[idx] = order
	if err := e.persist(ctx); err != nil {
		e.orders[idx] = prev
		return Order{}, err
	}
	return order, nil
}

// MarkBilled archives the order out of the active path. Idempotent: billing
// an already-billed order changes nothing, billedAt included.
func (e *Engine) MarkBilled(ctx context.Context, id string) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(id)
	if idx < 0 {
		return Order{}, ErrNotFound
	}

	prev := e.orders[idx]
	if prev.Billed {
		return prev, nil
	}

	order := prev
	order.Billed = true
	billedAt := e.now()
	order.BilledAt = &billedAt

	e.orders[idx] = order
	if err := e.persist(ctx); err != nil {
		e.orders[idx] = prev
		return Order{}, err
	}
	return order, nil
}

// ConfirmBilled marks the whole batch billed in one step: every order must be
// completed and unbilled, otherwise nothing is marked. One persist covers the
// batch, so a storage failure leaves no order billed either.
func (e *Engine) ConfirmBilled(ctx context.Context, ids []string) ([]Order, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no orders given", ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	indices := make([]int, 0, len(ids))
	for _, id := range ids {
		idx := e.indexOf(id)
		if idx < 0 {
			return nil, ErrNotFound
		}
		if e.orders[idx].Billed {
			return nil, ErrAlreadyBilled
		}
		if e.orders[idx].Status != StatusCompleted {
			return nil, fmt.Errorf("%w: order %s is %s", ErrNotBillable, id, e.orders[idx].Status)
		}
		indices = append(indices, idx)
	}

	prev := make([]Order, len(indices))
	billedAt := e.now()
	out := make([]Order, 0, len(indices))
	for i, idx := range indices {
		prev[i] = e.orders[idx]
		order := e.orders[idx]
		order.Billed = true
		order.BilledAt = &billedAt
		e.orders[idx] = order
		out = append(out, order)
	}

	if err := e.persist(ctx); err != nil {
		for i, idx := range indices {
			e.orders[idx] = prev[i]
		}
		return nil, err
	}
	return out, nil
}

func (e *Engine) indexOf(id string) int {
	for i, order := range e.orders {
		if order.ID == id {
			return i
		}
	}
	return -1
}

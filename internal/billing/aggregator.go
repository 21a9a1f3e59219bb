// Package billing aggregates completed, unbilled orders for a table into a
// bill, and records confirmed bills. No tax or discount logic lives here.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"dinetrack-ops-service/internal/orders"
	"dinetrack-ops-service/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("billing: bill not found")
	ErrValidation = errors.New("billing: validation failed")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

type Bill struct {
	ID          string             `json:"id"`
	BranchID    string             `json:"branchId"`
	TableNumber int                `json:"tableNumber"`
	OrderIDs    []string           `json:"orderIds"`
	Items       []orders.OrderItem `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
	Status      Status             `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type Aggregator struct {
	mu      sync.RWMutex
	backend storage.Backend
	engine  *orders.Engine
	bills   []Bill
	now     func() time.Time
}

func Open(ctx context.Context, backend storage.Backend, engine *orders.Engine) (*Aggregator, error) {
	a := &Aggregator{backend: backend, engine: engine, now: time.Now}
	data, err := backend.Load(ctx, storage.KeyBills)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &a.bills); err != nil {
			return nil, fmt.Errorf("decode bills: %w", err)
		}
	}
	return a, nil
}

// SetClock overrides the aggregator's time source. Tests only.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

func (a *Aggregator) persist(ctx context.Context) error {
	data, err := json.Marshal(a.bills)
	if err != nil {
		return err
	}
	return a.backend.Save(ctx, storage.KeyBills, data)
}

// SelectBillable lists the orders for a table that are completed and not yet
// billed.
func (a *Aggregator) SelectBillable(branchID string, tableNumber int) []orders.Order {
	out := make([]orders.Order, 0)
	for _, order := range a.engine.ByBranch(branchID) {
		if order.TableNumber == tableNumber && order.Status == orders.StatusCompleted && !order.Billed {
			out = append(out, order)
		}
	}
	return out
}

// ComputeBill flattens the given orders into one combined item list and sums
// their totals. It does not persist anything and does not mark anything
// billed.
func (a *Aggregator) ComputeBill(branchID string, orderIDs []string) (Bill, error) {
	if len(orderIDs) == 0 {
		return Bill{}, fmt.Errorf("%w: no orders given", ErrValidation)
	}

	bill := Bill{
		BranchID: branchID,
		OrderIDs: orderIDs,
		Items:    make([]orders.OrderItem, 0),
	}
	for _, id := range orderIDs {
		order, ok := a.engine.Get(id)
		if !ok || order.BranchID != branchID {
			return Bill{}, orders.ErrNotFound
		}
		bill.TableNumber = order.TableNumber
		for _, line := range order.Lines {
			bill.Items = append(bill.Items, line.Items...)
		}
		bill.TotalAmount = orders.Round2(bill.TotalAmount + order.Total)
	}
	return bill, nil
}

// ConfirmBill marks the whole batch of orders billed and records the bill.
// The order engine applies the batch atomically: if any order is missing,
// already billed or not completed, no order is marked and no bill is stored.
func (a *Aggregator) ConfirmBill(ctx context.Context, branchID string, orderIDs []string) (Bill, error) {
	bill, err := a.ComputeBill(branchID, orderIDs)
	if err != nil {
		return Bill{}, err
	}

	if _, err := a.engine.ConfirmBilled(ctx, orderIDs); err != nil {
		return Bill{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	bill.ID = uuid.NewString()
	bill.Status = StatusPending
	bill.CreatedAt = a.now()

	a.bills = append(a.bills, bill)
	if err := a.persist(ctx); err != nil {
		// The orders stay billed; the bill record is what failed. Report it
		// so the caller can surface the partial outcome.
		a.bills = a.bills[:len(a.bills)-1]
		return Bill{}, fmt.Errorf("orders billed but bill record not stored: %w", err)
	}
	return bill, nil
}

func (a *Aggregator) ByBranch(branchID string) []Bill {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Bill, 0)
	for _, bill := range a.bills {
		if bill.BranchID == branchID {
			out = append(out, bill)
		}
	}
	return out
}

func (a *Aggregator) Get(id string) (Bill, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if idx := a.indexOf(id); idx >= 0 {
		return a.bills[idx], true
	}
	return Bill{}, false
}

func (a *Aggregator) SetStatus(ctx context.Context, id string, status Status) (Bill, error) {
	switch status {
	case StatusPending, StatusPaid, StatusCancelled:
	default:
		return Bill{}, fmt.Errorf("%w: unknown bill status %q", ErrValidation, status)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexOf(id)
	if idx < 0 {
		return Bill{}, ErrNotFound
	}

	prev := a.bills[idx]
	bill := prev
	bill.Status = status
	a.bills[idx] = bill
	if err := a.persist(ctx); err != nil {
		a.bills[idx] = prev
		return Bill{}, err
	}
	return bill, nil
}

func (a *Aggregator) indexOf(id string) int {
	for i, bill := range a.bills {
		if bill.ID == id {
			return i
		}
	}
	return -1
}

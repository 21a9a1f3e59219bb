package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"dinetrack-ops-service/internal/storage"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(context.Background(), storage.NewMemory())
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	return e
}

func testLine(items ...ItemInput) LineInput {
	if len(items) == 0 {
		items = []ItemInput{{MenuItemID: "m1", Name: "Milk Tea", Quantity: 2, Price: 4.25}}
	}
	return LineInput{Items: items}
}

func addOrder(t *testing.T, e *Engine, tableNumber int) Order {
	t.Helper()
	order, err := e.Add(context.Background(), OrderInput{
		BranchID:    "b1",
		TableID:     "t1",
		TableNumber: tableNumber,
		Line:        testLine(),
	})
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	return order
}

func advance(t *testing.T, e *Engine, id string, statuses ...Status) Order {
	t.Helper()
	var order Order
	var err error
	for _, status := range statuses {
		order, err = e.UpdateStatus(context.Background(), id, status)
		if err != nil {
			t.Fatalf("advance to %s: %v", status, err)
		}
	}
	return order
}

func TestAddComputesTotals(t *testing.T) {
	e := newTestEngine(t)

	order, err := e.Add(context.Background(), OrderInput{
		BranchID:    "b1",
		TableNumber: 3,
		Line: testLine(
			ItemInput{MenuItemID: "m1", Name: "Milk Tea", Quantity: 2, Price: 4.25},
			ItemInput{MenuItemID: "c1", Name: "  + Pearl", Quantity: 2, Price: 0.5},
		),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if order.Status != StatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if len(order.Lines) != 1 || len(order.Lines[0].Items) != 2 {
		t.Fatalf("unexpected line shape: %+v", order.Lines)
	}
	if order.Lines[0].Items[0].TotalPrice != 8.5 {
		t.Fatalf("expected item total 8.5, got %v", order.Lines[0].Items[0].TotalPrice)
	}
	if order.Total != 9.5 {
		t.Fatalf("expected order total 9.5, got %v", order.Total)
	}
}

func TestAddValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input OrderInput
	}{
		{name: "missing branch", input: OrderInput{TableNumber: 1, Line: testLine()}},
		{name: "empty line", input: OrderInput{BranchID: "b1", TableNumber: 1}},
		{
			name: "zero quantity",
			input: OrderInput{BranchID: "b1", TableNumber: 1, Line: testLine(
				ItemInput{MenuItemID: "m1", Name: "Milk Tea", Quantity: 0, Price: 4},
			)},
		},
		{
			name: "negative price",
			input: OrderInput{BranchID: "b1", TableNumber: 1, Line: testLine(
				ItemInput{MenuItemID: "m1", Name: "Milk Tea", Quantity: 1, Price: -1},
			)},
		},
		{
			name: "unnamed item",
			input: OrderInput{BranchID: "b1", TableNumber: 1, Line: testLine(
				ItemInput{MenuItemID: "m1", Quantity: 1, Price: 4},
			)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.Add(ctx, tc.input); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAddLineRecomputesTotal(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	order := addOrder(t, e, 1)
	updated, err := e.AddLine(ctx, order.ID, testLine(
		ItemInput{MenuItemID: "m2", Name: "Ramen", Quantity: 1, Price: 9.75},
	))
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if len(updated.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(updated.Lines))
	}
	if updated.Total != 18.25 {
		t.Fatalf("expected total 18.25, got %v", updated.Total)
	}
	if updated.Status != StatusPending {
		t.Fatalf("adding a line must not change order status, got %s", updated.Status)
	}

	if _, err := e.AddLine(ctx, "missing", testLine()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatusMachine(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{name: "pending to preparing", from: StatusPending, to: StatusPreparing, ok: true},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled, ok: true},
		{name: "preparing to ready", from: StatusPreparing, to: StatusReady, ok: true},
		{name: "preparing to cancelled", from: StatusPreparing, to: StatusCancelled, ok: true},
		{name: "ready to completed", from: StatusReady, to: StatusCompleted, ok: true},
		{name: "pending to ready skips preparing", from: StatusPending, to: StatusReady, ok: false},
		{name: "ready cannot cancel", from: StatusReady, to: StatusCancelled, ok: false},
		{name: "completed is terminal", from: StatusCompleted, to: StatusPending, ok: false},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusPreparing, ok: false},
		{name: "no backwards moves", from: StatusReady, to: StatusPreparing, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.ok {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
			}
		})
	}
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	order := addOrder(t, e, 1)

	if _, err := e.UpdateStatus(ctx, order.ID, StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	// Same-status update is a no-op, not an error.
	got, err := e.UpdateStatus(ctx, order.ID, StatusPending)
	if err != nil {
		t.Fatalf("same-status update: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}

	got = advance(t, e, order.ID, StatusPreparing, StatusReady, StatusCompleted)
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}

	if _, err := e.UpdateStatus(ctx, order.ID, StatusPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed order must not move, got %v", err)
	}
	if _, err := e.UpdateStatus(ctx, order.ID, Status("bogus")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := e.UpdateStatus(ctx, "missing", StatusPreparing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestActiveByTable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clock := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return clock })

	first := addOrder(t, e, 7)
	clock = clock.Add(time.Minute)
	second := addOrder(t, e, 7)
	addOrder(t, e, 8)

	active, found := e.ActiveByTable("b1", 7)
	if !found || active.ID != second.ID {
		t.Fatalf("expected most recent unbilled order, got %+v found=%v", active, found)
	}

	// Billing the active order surfaces the older unbilled one.
	advance(t, e, second.ID, StatusPreparing, StatusReady, StatusCompleted)
	if _, err := e.MarkBilled(ctx, second.ID); err != nil {
		t.Fatalf("mark billed: %v", err)
	}
	active, found = e.ActiveByTable("b1", 7)
	if !found || active.ID != first.ID {
		t.Fatalf("expected older order active after billing, got %+v found=%v", active, found)
	}

	if _, found := e.ActiveByTable("b2", 7); found {
		t.Fatal("active order must not leak across branches")
	}
}

func TestMarkBilledIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clock := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return clock })

	order := addOrder(t, e, 1)
	advance(t, e, order.ID, StatusPreparing, StatusReady, StatusCompleted)

	billed, err := e.MarkBilled(ctx, order.ID)
	if err != nil {
		t.Fatalf("mark billed: %v", err)
	}
	if !billed.Billed || billed.BilledAt == nil {
		t.Fatalf("expected billed with timestamp, got %+v", billed)
	}
	firstBilledAt := *billed.BilledAt

	clock = clock.Add(time.Hour)
	again, err := e.MarkBilled(ctx, order.ID)
	if err != nil {
		t.Fatalf("second mark billed: %v", err)
	}
	if !again.BilledAt.Equal(firstBilledAt) {
		t.Fatalf("billedAt must not move on repeat billing: %v vs %v", again.BilledAt, firstBilledAt)
	}
	if again.Total != billed.Total {
		t.Fatalf("total must not change on repeat billing")
	}
}

func TestConfirmBilledAllOrNone(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first := addOrder(t, e, 1)
	second := addOrder(t, e, 1)
	advance(t, e, first.ID, StatusPreparing, StatusReady, StatusCompleted)
	// second stays pending, so the batch must fail.

	if _, err := e.ConfirmBilled(ctx, []string{first.ID, second.ID}); !errors.Is(err, ErrNotBillable) {
		t.Fatalf("expected not billable, got %v", err)
	}
	got, _ := e.Get(first.ID)
	if got.Billed {
		t.Fatal("no order may be billed when the batch fails")
	}

	advance(t, e, second.ID, StatusPreparing, StatusReady, StatusCompleted)
	billed, err := e.ConfirmBilled(ctx, []string{first.ID, second.ID})
	if err != nil {
		t.Fatalf("confirm billed: %v", err)
	}
	if len(billed) != 2 {
		t.Fatalf("expected 2 billed orders, got %d", len(billed))
	}
	if !billed[0].BilledAt.Equal(*billed[1].BilledAt) {
		t.Fatal("batch must share one billedAt timestamp")
	}

	if _, err := e.ConfirmBilled(ctx, []string{first.ID}); !errors.Is(err, ErrAlreadyBilled) {
		t.Fatalf("expected already billed, got %v", err)
	}
	if _, err := e.ConfirmBilled(ctx, []string{"missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := e.ConfirmBilled(ctx, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestAddLineRejectsBilledOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	order := addOrder(t, e, 1)
	advance(t, e, order.ID, StatusPreparing, StatusReady, StatusCompleted)
	if _, err := e.MarkBilled(ctx, order.ID); err != nil {
		t.Fatalf("mark billed: %v", err)
	}

	if _, err := e.AddLine(ctx, order.ID, testLine()); !errors.Is(err, ErrAlreadyBilled) {
		t.Fatalf("expected already billed, got %v", err)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{in: 1.004, want: 1.0},
		{in: 4.256, want: 4.26},
		{in: 0.1 + 0.2, want: 0.3},
		{in: 9.999, want: 10},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

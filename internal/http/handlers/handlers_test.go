package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dinetrack-ops-service/internal/auth"
	"dinetrack-ops-service/internal/billing"
	"dinetrack-ops-service/internal/branches"
	"dinetrack-ops-service/internal/catalog"
	"dinetrack-ops-service/internal/config"
	"dinetrack-ops-service/internal/middleware"
	"dinetrack-ops-service/internal/orders"
	"dinetrack-ops-service/internal/reservations"
	"dinetrack-ops-service/internal/storage"
	"dinetrack-ops-service/internal/tables"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testBranch = "branch-1"

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	ctx := context.Background()
	backend := storage.NewMemory()

	registry, err := tables.Open(ctx, backend)
	require.NoError(t, err)
	ledger, err := reservations.Open(ctx, backend)
	require.NoError(t, err)
	menu, err := catalog.Open(ctx, backend)
	require.NoError(t, err)
	engine, err := orders.Open(ctx, backend)
	require.NoError(t, err)
	aggregator, err := billing.Open(ctx, backend, engine)
	require.NoError(t, err)
	branchStore, err := branches.Open(ctx, backend)
	require.NoError(t, err)

	return &Handler{
		Tables:       registry,
		Reservations: ledger,
		Catalog:      menu,
		Orders:       engine,
		Billing:      aggregator,
		Branches:     branchStore,
		Logger:       zap.NewNop(),
		Config:       config.Config{Env: "test"},
	}
}

func doRequest(h http.HandlerFunc, method, target string, body any, role auth.StaffRole, params map[string]string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	authCtx := &middleware.AuthContext{UserID: "u1", Role: role, BranchID: testBranch, Name: "Test Staff"}
	ctx := middleware.WithAuthContext(req.Context(), authCtx)

	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, body: %s", rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

func seedTable(t *testing.T, h *Handler, number int) tables.Table {
	t.Helper()
	table, err := h.Tables.Add(context.Background(), tables.TableInput{
		BranchID: testBranch, Floor: 1, Number: number, Capacity: 4,
	})
	require.NoError(t, err)
	return table
}

func seedMenuItem(t *testing.T, h *Handler, input catalog.ItemInput) catalog.MenuItem {
	t.Helper()
	if input.BranchID == "" {
		input.BranchID = testBranch
	}
	item, err := h.Catalog.Add(context.Background(), input)
	require.NoError(t, err)
	return item
}

func TestOrderPlaceBranching(t *testing.T) {
	h := newTestHandler(t)
	table := seedTable(t, h, 7)
	tea := seedMenuItem(t, h, catalog.ItemInput{Name: "Milk Tea", Price: 4.5, Category: "Drinks", Available: true})

	body := placeOrderRequest{
		TableID: table.ID,
		Items:   []placeOrderItem{{MenuItemID: tea.ID, Quantity: 2}},
	}

	rec := doRequest(h.OrderPlace, http.MethodPost, "/api/staff/orders", body, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first orders.Order
	decodeData(t, rec, &first)
	require.Len(t, first.Lines, 1)
	require.Equal(t, 9.0, first.Total)

	// Second round on the same table appends a line to the active order
	// instead of opening a second one.
	rec = doRequest(h.OrderPlace, http.MethodPost, "/api/staff/orders", body, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second orders.Order
	decodeData(t, rec, &second)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, second.Lines, 2)
	require.Equal(t, 18.0, second.Total)

	require.Len(t, h.Orders.ByBranch(testBranch), 1)
}

func TestOrderPlaceRejectsCustomizationAsPrimary(t *testing.T) {
	h := newTestHandler(t)
	table := seedTable(t, h, 1)
	pearl := seedMenuItem(t, h, catalog.ItemInput{
		Name: "Pearl", Price: 0.5, Category: "Toppings",
		ParentCategory: ptr("Drinks"), IsCustomizationCategory: true, Available: true,
	})

	body := placeOrderRequest{
		TableID: table.ID,
		Items:   []placeOrderItem{{MenuItemID: pearl.ID, Quantity: 1}},
	}
	rec := doRequest(h.OrderPlace, http.MethodPost, "/api/staff/orders", body, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestOrderPlaceResolvesCustomizations(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()
	table := seedTable(t, h, 2)

	tea := seedMenuItem(t, h, catalog.ItemInput{Name: "Milk Tea", Price: 4, Category: "Drinks", Available: true})
	pearl := seedMenuItem(t, h, catalog.ItemInput{
		Name: "Pearl", Price: 0.5, Category: "Toppings",
		ParentCategory: ptr("Drinks"), IsCustomizationCategory: true, Available: true,
	})
	require.NoError(t, h.Catalog.LinkCustomization(ctx, tea.ID, pearl.ID))

	body := placeOrderRequest{
		TableID: table.ID,
		Items:   []placeOrderItem{{MenuItemID: tea.ID, Quantity: 2, CustomizationIDs: []string{pearl.ID}}},
	}
	rec := doRequest(h.OrderPlace, http.MethodPost, "/api/staff/orders", body, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order orders.Order
	decodeData(t, rec, &order)
	require.Len(t, order.Lines[0].Items, 2)
	require.Equal(t, "  + Pearl", order.Lines[0].Items[1].Name)
	require.Equal(t, 2, order.Lines[0].Items[1].Quantity)
	require.Equal(t, 9.0, order.Total)

	// A customization that is neither embedded nor linked is rejected.
	stray := seedMenuItem(t, h, catalog.ItemInput{
		Name: "Chili Oil", Price: 0.3, Category: "Extras",
		ParentCategory: ptr("Mains"), IsCustomizationCategory: true, Available: true,
	})
	body.Items[0].CustomizationIDs = []string{stray.ID}
	rec = doRequest(h.OrderPlace, http.MethodPost, "/api/staff/orders", body, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestOrderPlaceEmbeddedCustomizationsWin(t *testing.T) {
	h := newTestHandler(t)
	table := seedTable(t, h, 3)

	ramen := seedMenuItem(t, h, catalog.ItemInput{
		Name: "Ramen", Price: 9, Category: "Mains", Available: true,
		Customizations: []catalog.Customization{{Name: "Egg", Price: 1}},
	})
	egg := ramen.Customizations[0]

	body := placeOrderRequest{
		TableID: table.ID,
		Items:   []placeOrderItem{{MenuItemID: ramen.ID, Quantity: 1, CustomizationIDs: []string{egg.ID}}},
	}
	rec := doRequest(h.OrderPlace, http.MethodPost, "/api/staff/orders", body, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order orders.Order
	decodeData(t, rec, &order)
	require.Equal(t, "  + Egg", order.Lines[0].Items[1].Name)
	require.Equal(t, 10.0, order.Total)
}

func TestReservationCancelResetsTable(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()
	table := seedTable(t, h, 4)

	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	res, _, err := h.Reservations.Add(ctx, reservations.Input{
		TableID: table.ID, BranchID: testBranch, GuestName: "Tanaka",
		NumberOfGuests: 2, Start: start, End: start.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	rec := doRequest(h.TableAssignReservation, http.MethodPut, "/api/staff/tables/"+table.ID+"/reservation",
		assignReservationRequest{ReservationID: res.ID}, auth.RoleReceptionist,
		map[string]string{"id": table.ID}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	seated, _ := h.Tables.Get(table.ID)
	require.Equal(t, tables.StatusOccupied, seated.Status)
	require.NotNil(t, seated.ReservationName)

	rec = doRequest(h.ReservationCancel, http.MethodPost, "/api/staff/reservations/"+res.ID+"/cancel",
		nil, auth.RoleReceptionist, map[string]string{"id": res.ID}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cleared, _ := h.Tables.Get(table.ID)
	require.Equal(t, tables.StatusAvailable, cleared.Status)
	require.Nil(t, cleared.ReservationName)
	require.Nil(t, cleared.ReservationStart)
}

func TestTableDeletePinGuard(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()
	table := seedTable(t, h, 5)

	hash, err := bcrypt.GenerateFromPassword([]byte("4321"), 10)
	require.NoError(t, err)
	require.NoError(t, h.Branches.SetDeletePinHash(ctx, testBranch, string(hash)))

	params := map[string]string{"id": table.ID}

	// Waiters cannot delete tables at all.
	rec := doRequest(h.TableDelete, http.MethodDelete, "/api/staff/tables/"+table.ID, nil, auth.RoleWaiter, params, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Owner without the PIN header is refused.
	rec = doRequest(h.TableDelete, http.MethodDelete, "/api/staff/tables/"+table.ID, nil, auth.RoleOwner, params, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(h.TableDelete, http.MethodDelete, "/api/staff/tables/"+table.ID, nil, auth.RoleOwner, params,
		map[string]string{"X-Delete-Pin": "4321"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, found := h.Tables.Get(table.ID)
	require.False(t, found)
}

func TestBillingFlowOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()
	table := seedTable(t, h, 6)
	tea := seedMenuItem(t, h, catalog.ItemInput{Name: "Milk Tea", Price: 4.5, Category: "Drinks", Available: true})

	rec := doRequest(h.OrderPlace, http.MethodPost, "/api/staff/orders",
		placeOrderRequest{TableID: table.ID, Items: []placeOrderItem{{MenuItemID: tea.ID, Quantity: 2}}},
		auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orders.Order
	decodeData(t, rec, &order)

	// Not completed yet: confirm must fail and bill nothing.
	rec = doRequest(h.ConfirmBill, http.MethodPost, "/api/staff/billing/confirm",
		billRequest{OrderIDs: []string{order.ID}}, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	for _, status := range []orders.Status{orders.StatusPreparing, orders.StatusReady, orders.StatusCompleted} {
		_, err := h.Orders.UpdateStatus(ctx, order.ID, status)
		require.NoError(t, err)
	}

	rec = doRequest(h.BillableOrders, http.MethodGet, "/api/staff/billing/billable?tableNumber=6", nil, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var billable []orders.Order
	decodeData(t, rec, &billable)
	require.Len(t, billable, 1)

	rec = doRequest(h.ConfirmBill, http.MethodPost, "/api/staff/billing/confirm",
		billRequest{OrderIDs: []string{order.ID}}, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bill billing.Bill
	decodeData(t, rec, &bill)
	require.Equal(t, 9.0, bill.TotalAmount)
	require.Equal(t, billing.StatusPending, bill.Status)

	// Double confirm is refused.
	rec = doRequest(h.ConfirmBill, http.MethodPost, "/api/staff/billing/confirm",
		billRequest{OrderIDs: []string{order.ID}}, auth.RoleWaiter, nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func ptr(v string) *string { return &v }

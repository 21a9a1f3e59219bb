package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"dinetrack-ops-service/internal/catalog"
	"dinetrack-ops-service/internal/orders"
	"dinetrack-ops-service/internal/queue"
	"dinetrack-ops-service/pkg/response"
)

type placeOrderRequest struct {
	TableID string           `json:"tableId"`
	Notes   string           `json:"notes"`
	Items   []placeOrderItem `json:"items"`
}

type placeOrderItem struct {
	MenuItemID       string   `json:"menuItemId"`
	Quantity         int      `json:"quantity"`
	CustomizationIDs []string `json:"customizationIds"`
}

type orderLineRequest struct {
	Notes string           `json:"notes"`
	Items []placeOrderItem `json:"items"`
}

type orderStatusRequest struct {
	Status orders.Status `json:"status"`
}

func (h *Handler) OrdersList(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	response.Success(w, h.Orders.ByBranch(branchID))
}

func (h *Handler) OrderActiveByTable(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	tableNumber, ok := readQueryInt(r, "tableNumber")
	if !ok {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "tableNumber is required")
		return
	}

	order, found := h.Orders.ActiveByTable(branchID, tableNumber)
	if !found {
		response.Success(w, nil)
		return
	}
	response.Success(w, order)
}

// OrderPlace is the manual-order entry point. One active order per table: if
// the table already has an unbilled order the items are appended to it as a
// new line, otherwise a fresh order is created.
func (h *Handler) OrderPlace(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	var body placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	table, found := h.Tables.Get(body.TableID)
	if !found || table.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Table not found")
		return
	}

	items, err := h.buildOrderItems(branchID, body.Items)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	line := orders.LineInput{Items: items, Notes: body.Notes}

	if active, exists := h.Orders.ActiveByTable(branchID, table.Number); exists {
		order, err := h.Orders.AddLine(r.Context(), active.ID, line)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		h.publish(r.Context(), queue.RouteOrderLineAdded, branchID, order.ID, order)
		response.Success(w, order)
		return
	}

	order, err := h.Orders.Add(r.Context(), orders.OrderInput{
		BranchID:    branchID,
		TableID:     table.ID,
		TableNumber: table.Number,
		Line:        line,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r.Context(), queue.RouteOrderCreated, branchID, order.ID, order)
	response.Created(w, order)
}

func (h *Handler) OrderAddLine(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if existing, found := h.Orders.Get(id); !found || existing.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}

	var body orderLineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	items, err := h.buildOrderItems(branchID, body.Items)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	order, err := h.Orders.AddLine(r.Context(), id, orders.LineInput{Items: items, Notes: body.Notes})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r.Context(), queue.RouteOrderLineAdded, branchID, order.ID, order)
	response.Success(w, order)
}

func (h *Handler) OrderUpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if existing, found := h.Orders.Get(id); !found || existing.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}

	var body orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	order, err := h.Orders.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r.Context(), queue.RouteOrderStatusUpdated, branchID, order.ID, order)
	response.Success(w, order)
}

// buildOrderItems turns the request into snapshot items. Primary items must
// be regular available menu items; selected customizations must come from
// the item's resolved set (embedded, or explicitly linked) and are appended
// as indented add-on rows.
func (h *Handler) buildOrderItems(branchID string, reqItems []placeOrderItem) ([]orders.ItemInput, error) {
	if len(reqItems) == 0 {
		return nil, fmt.Errorf("order must have at least one item")
	}

	out := make([]orders.ItemInput, 0, len(reqItems))
	for _, reqItem := range reqItems {
		item, found := h.Catalog.Get(reqItem.MenuItemID)
		if !found || item.BranchID != branchID {
			return nil, fmt.Errorf("menu item not found")
		}
		if item.IsCustomizationCategory {
			return nil, fmt.Errorf("%q is a customization and cannot be ordered on its own", item.Name)
		}
		if !item.Available {
			return nil, fmt.Errorf("%q is not available", item.Name)
		}
		if reqItem.Quantity < 1 {
			return nil, fmt.Errorf("quantity must be at least 1")
		}

		out = append(out, orders.ItemInput{
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   reqItem.Quantity,
			Price:      item.Price,
		})

		for _, customizationID := range reqItem.CustomizationIDs {
			name, price, ok := resolveCustomization(item, h.Catalog.ItemCustomizations(item.ID), customizationID)
			if !ok {
				return nil, fmt.Errorf("customization does not apply to %q", item.Name)
			}
			out = append(out, orders.ItemInput{
				MenuItemID: customizationID,
				Name:       "  + " + name,
				Quantity:   reqItem.Quantity,
				Price:      price,
			})
		}
	}
	return out, nil
}

func resolveCustomization(item catalog.MenuItem, linked []catalog.MenuItem, customizationID string) (string, float64, bool) {
	if len(item.Customizations) > 0 {
		for _, c := range item.Customizations {
			if c.ID == customizationID {
				return c.Name, c.Price, true
			}
		}
		return "", 0, false
	}
	for _, c := range linked {
		if c.ID == customizationID && c.Available {
			return c.Name, c.Price, true
		}
	}
	return "", 0, false
}

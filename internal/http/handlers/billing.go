package handlers

import (
	"encoding/json"
	"net/http"

	"dinetrack-ops-service/internal/billing"
	"dinetrack-ops-service/internal/queue"
	"dinetrack-ops-service/pkg/response"
)

type billRequest struct {
	OrderIDs []string `json:"orderIds"`
}

type billStatusRequest struct {
	Status billing.Status `json:"status"`
}

// BillableOrders lists a table's completed, not-yet-billed orders. This is
// what the cashier picks from before computing a bill.
func (h *Handler) BillableOrders(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	tableNumber, ok := readQueryInt(r, "tableNumber")
	if !ok {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "tableNumber is required")
		return
	}
	response.Success(w, h.Billing.SelectBillable(branchID, tableNumber))
}

// ComputeBill previews the aggregate for a set of orders without touching
// their billed state. Safe to call repeatedly.
func (h *Handler) ComputeBill(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	var body billRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	bill, err := h.Billing.ComputeBill(branchID, body.OrderIDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, bill)
}

// ConfirmBill marks every selected order billed and records the bill. The
// whole batch succeeds or none of it does.
func (h *Handler) ConfirmBill(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	var body billRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	bill, err := h.Billing.ConfirmBill(r.Context(), branchID, body.OrderIDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r.Context(), queue.RouteOrderBilled, branchID, bill.ID, bill)
	response.Created(w, bill)
}

func (h *Handler) BillsList(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	response.Success(w, h.Billing.ByBranch(branchID))
}

func (h *Handler) BillSetStatus(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if existing, found := h.Billing.Get(id); !found || existing.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Bill not found")
		return
	}

	var body billStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	bill, err := h.Billing.SetStatus(r.Context(), id, body.Status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, bill)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"dinetrack-ops-service/internal/auth"
	"dinetrack-ops-service/internal/middleware"
	"dinetrack-ops-service/internal/queue"
	"dinetrack-ops-service/internal/tables"
	"dinetrack-ops-service/pkg/response"

	"golang.org/x/crypto/bcrypt"
)

type tableCreateRequest struct {
	Floor    int `json:"floor"`
	Number   int `json:"number"`
	Capacity int `json:"capacity"`
}

type tablePatchRequest struct {
	Floor    *int           `json:"floor"`
	Number   *int           `json:"number"`
	Capacity *int           `json:"capacity"`
	Status   *tables.Status `json:"status"`
}

type tableStatusRequest struct {
	Status tables.Status `json:"status"`
}

type assignReservationRequest struct {
	ReservationID string `json:"reservationId"`
}

func (h *Handler) TablesList(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	response.Success(w, h.Tables.ByBranch(branchID))
}

// TablesByFloor returns the floor map, each floor annotated with whether its
// area is currently selectable for seating.
func (h *Handler) TablesByFloor(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	grouped := h.Tables.ByBranchAndFloor(branchID)
	floors := make([]map[string]any, 0, len(grouped))
	for floor, group := range grouped {
		floors = append(floors, map[string]any{
			"floor":      floor,
			"selectable": h.Tables.FloorSelectable(branchID, floor),
			"tables":     group,
		})
	}
	response.Success(w, floors)
}

func (h *Handler) TableCreate(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	var body tableCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	table, err := h.Tables.Add(r.Context(), tables.TableInput{
		BranchID: branchID,
		Floor:    body.Floor,
		Number:   body.Number,
		Capacity: body.Capacity,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Created(w, table)
}

func (h *Handler) TablePatch(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if !h.tableInBranch(id, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Table not found")
		return
	}

	var body tablePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	table, err := h.Tables.Update(r.Context(), id, tables.TablePatch{
		Floor:    body.Floor,
		Number:   body.Number,
		Capacity: body.Capacity,
		Status:   body.Status,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, table)
}

func (h *Handler) TableUpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if !h.tableInBranch(id, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Table not found")
		return
	}

	var body tableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	table, err := h.Tables.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r.Context(), queue.RouteTableStatusUpdated, branchID, table.ID, table)
	response.Success(w, table)
}

// TableAssignReservation seats a table under a reservation: status goes
// occupied and the reservation snapshot fields are set in one write.
func (h *Handler) TableAssignReservation(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if !h.tableInBranch(id, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Table not found")
		return
	}

	var body assignReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, found := h.Reservations.Get(body.ReservationID)
	if !found || res.BranchID != branchID || res.TableID != id {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Reservation not found for this table")
		return
	}

	occupied := tables.StatusOccupied
	start, end, name := res.Start, res.End, res.GuestName
	table, err := h.Tables.Update(r.Context(), id, tables.TablePatch{
		Status:           &occupied,
		ReservationStart: &start,
		ReservationEnd:   &end,
		ReservationName:  &name,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r.Context(), queue.RouteTableStatusUpdated, branchID, table.ID, table)
	response.Success(w, table)
}

// TableDelete is a hard removal guarded by the branch delete PIN when one is
// set. The response carries counts of reservations and orders that still
// reference the table so the UI can warn about orphans.
func (h *Handler) TableDelete(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	authCtx, _ := middleware.GetAuthContext(r.Context())
	if authCtx.Role != auth.RoleOwner && authCtx.Role != auth.RoleManager && authCtx.Role != auth.RoleAdmin {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Owner or manager access required")
		return
	}

	id := readPathString(r, "id")
	table, found := h.Tables.Get(id)
	if !found || table.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Table not found")
		return
	}

	if hash, set := h.Branches.DeletePinHash(branchID); set {
		pin := r.Header.Get("X-Delete-Pin")
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
			response.Error(w, http.StatusForbidden, "DELETE_PIN_REQUIRED", "A valid delete PIN is required")
			return
		}
	}

	orphanedReservations := 0
	now := time.Now()
	for _, res := range h.Reservations.ByTable(id) {
		if res.Status != "cancelled" && res.End.After(now) {
			orphanedReservations++
		}
	}
	openOrders := 0
	for _, order := range h.Orders.ByBranch(branchID) {
		if order.TableID == id && !order.Billed {
			openOrders++
		}
	}

	if err := h.Tables.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	response.Success(w, map[string]any{
		"deleted":              true,
		"orphanedReservations": orphanedReservations,
		"openOrders":           openOrders,
	})
}

func (h *Handler) tableInBranch(id string, branchID string) bool {
	table, found := h.Tables.Get(id)
	return found && table.BranchID == branchID
}

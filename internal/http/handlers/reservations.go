package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"dinetrack-ops-service/internal/queue"
	"dinetrack-ops-service/internal/reservations"
	"dinetrack-ops-service/pkg/response"
)

type reservationCreateRequest struct {
	TableID        string    `json:"tableId"`
	GuestName      string    `json:"guestName"`
	GuestPhone     string    `json:"guestPhone"`
	GuestEmail     string    `json:"guestEmail"`
	NumberOfGuests int       `json:"numberOfGuests"`
	Start          time.Time `json:"reservationStart"`
	End            time.Time `json:"reservationEnd"`
	Notes          string    `json:"notes"`
}

type reservationPatchRequest struct {
	GuestName      *string    `json:"guestName"`
	GuestPhone     *string    `json:"guestPhone"`
	GuestEmail     *string    `json:"guestEmail"`
	NumberOfGuests *int       `json:"numberOfGuests"`
	Start          *time.Time `json:"reservationStart"`
	End            *time.Time `json:"reservationEnd"`
	Notes          *string    `json:"notes"`
}

func (h *Handler) ReservationsList(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	response.Success(w, h.Reservations.ByBranch(branchID))
}

func (h *Handler) ReservationsByTable(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	tableID := readPathString(r, "tableId")
	if !h.tableInBranch(tableID, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Table not found")
		return
	}
	response.Success(w, h.Reservations.ByTable(tableID))
}

// ReservationCreate stores the reservation and reports any confirmed windows
// on the same table it overlaps, so the operator sees the conflict instead of
// silently double-booking.
func (h *Handler) ReservationCreate(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	var body reservationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if !h.tableInBranch(body.TableID, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Table not found")
		return
	}

	res, overlaps, err := h.Reservations.Add(r.Context(), reservations.Input{
		TableID:        body.TableID,
		BranchID:       branchID,
		GuestName:      body.GuestName,
		GuestPhone:     body.GuestPhone,
		GuestEmail:     body.GuestEmail,
		NumberOfGuests: body.NumberOfGuests,
		Start:          body.Start,
		End:            body.End,
		Notes:          body.Notes,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r.Context(), queue.RouteReservationCreated, branchID, res.ID, res)
	response.JSON(w, http.StatusCreated, map[string]any{
		"success":                 true,
		"data":                    res,
		"overlappingReservations": overlaps,
	})
}

func (h *Handler) ReservationUpdate(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if existing, found := h.Reservations.Get(id); !found || existing.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
		return
	}

	var body reservationPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, overlaps, err := h.Reservations.Update(r.Context(), id, reservations.Patch{
		GuestName:      body.GuestName,
		GuestPhone:     body.GuestPhone,
		GuestEmail:     body.GuestEmail,
		NumberOfGuests: body.NumberOfGuests,
		Start:          body.Start,
		End:            body.End,
		Notes:          body.Notes,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success":                 true,
		"data":                    res,
		"overlappingReservations": overlaps,
	})
}

// ReservationCancel marks the reservation cancelled and, when the table is
// currently displaying this reservation, clears the stale snapshot by setting
// the table back to available.
func (h *Handler) ReservationCancel(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	existing, found := h.Reservations.Get(id)
	if !found || existing.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
		return
	}

	res, err := h.Reservations.Cancel(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if table, ok := h.Tables.Get(res.TableID); ok &&
		table.ReservationName != nil && *table.ReservationName == res.GuestName &&
		table.ReservationStart != nil && table.ReservationStart.Equal(res.Start) {
		if updated, err := h.Tables.UpdateStatus(r.Context(), table.ID, "available"); err == nil {
			h.publish(r.Context(), queue.RouteTableStatusUpdated, branchID, updated.ID, updated)
		}
	}

	response.Success(w, res)
}

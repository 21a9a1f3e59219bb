package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"dinetrack-ops-service/internal/auth"
	"dinetrack-ops-service/internal/middleware"
	"dinetrack-ops-service/pkg/response"

	"golang.org/x/crypto/bcrypt"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

type deletePinRequest struct {
	Pin        string `json:"pin"`
	CurrentPin string `json:"currentPin"`
}

// DeletePinSet sets or rotates the branch delete PIN. Rotation requires the
// current PIN; owners and admins only.
func (h *Handler) DeletePinSet(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	authCtx, _ := middleware.GetAuthContext(r.Context())
	if authCtx.Role != auth.RoleOwner && authCtx.Role != auth.RoleAdmin {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Owner access required")
		return
	}

	var body deletePinRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	pin := strings.TrimSpace(body.Pin)
	if !pinPattern.MatchString(pin) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "PIN must be 4 to 8 digits")
		return
	}

	if existing, has := h.Branches.DeletePinHash(branchID); has {
		current := strings.TrimSpace(body.CurrentPin)
		if current == "" {
			response.Error(w, http.StatusBadRequest, "CURRENT_PIN_REQUIRED", "Current PIN is required to change the PIN")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(existing), []byte(current)) != nil {
			response.Error(w, http.StatusForbidden, "INVALID_PIN", "Current PIN is incorrect")
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), 10)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to set PIN")
		return
	}
	if err := h.Branches.SetDeletePinHash(r.Context(), branchID, string(hashed)); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to set PIN")
		return
	}
	response.Success(w, map[string]any{"hasDeletePin": true})
}

// DeletePinRemove clears the branch delete PIN after verifying it.
func (h *Handler) DeletePinRemove(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	authCtx, _ := middleware.GetAuthContext(r.Context())
	if authCtx.Role != auth.RoleOwner && authCtx.Role != auth.RoleAdmin {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Owner access required")
		return
	}

	var body deletePinRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	existing, has := h.Branches.DeletePinHash(branchID)
	if !has {
		response.Success(w, map[string]any{"hasDeletePin": false})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(existing), []byte(strings.TrimSpace(body.CurrentPin))) != nil {
		response.Error(w, http.StatusForbidden, "INVALID_PIN", "Current PIN is incorrect")
		return
	}

	if err := h.Branches.RemoveDeletePin(r.Context(), branchID); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove PIN")
		return
	}
	response.Success(w, map[string]any{"hasDeletePin": false})
}

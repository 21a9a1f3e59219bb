package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"dinetrack-ops-service/internal/billing"
	"dinetrack-ops-service/internal/catalog"
	"dinetrack-ops-service/internal/middleware"
	"dinetrack-ops-service/internal/orders"
	"dinetrack-ops-service/internal/queue"
	"dinetrack-ops-service/internal/reservations"
	"dinetrack-ops-service/internal/tables"
	"dinetrack-ops-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) branchID(w http.ResponseWriter, r *http.Request) (string, bool) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok || authCtx.BranchID == "" {
		response.Error(w, http.StatusBadRequest, "BRANCH_ID_REQUIRED", "Branch context not found")
		return "", false
	}
	return authCtx.BranchID, true
}

func readPathString(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func readQueryInt(r *http.Request, key string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

// writeStoreError maps domain errors onto the response envelope codes. Errors
// stay result values all the way out; the worst case is a toast on the
// dashboard and an unchanged state.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tables.ErrNotFound),
		errors.Is(err, reservations.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, billing.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, orders.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, orders.ErrAlreadyBilled):
		response.Error(w, http.StatusConflict, "ALREADY_BILLED", err.Error())
	case errors.Is(err, orders.ErrNotBillable):
		response.Error(w, http.StatusConflict, "NOT_BILLABLE", err.Error())
	case errors.Is(err, tables.ErrValidation),
		errors.Is(err, reservations.ErrValidation),
		errors.Is(err, catalog.ErrValidation),
		errors.Is(err, orders.ErrValidation),
		errors.Is(err, billing.ErrValidation):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed")
	}
}

// publish fans a lifecycle event out to the broker and the branch's live
// dashboards. Both are best-effort.
func (h *Handler) publish(ctx context.Context, routingKey string, branchID string, entityID string, data any) {
	if err := queue.PublishEvent(ctx, h.Queue, routingKey, branchID, entityID, data); err != nil {
		h.Logger.Warn("event publish failed", zap.String("routingKey", routingKey), zap.Error(err))
	}
	if h.WS != nil {
		h.WS.Broadcast(branchID, routingKey, data)
	}
}

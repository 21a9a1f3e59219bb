package handlers

import (
	"net/http"
	"strings"

	"dinetrack-ops-service/pkg/response"
)

// CategoryCustomizations lists the available customization items scoped to a
// parent category.
func (h *Handler) CategoryCustomizations(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Category is required")
		return
	}
	response.Success(w, h.Catalog.CategoryCustomizations(branchID, category))
}

// ItemCustomizations resolves the customizations available for one item:
// embedded customizations when the item carries them, otherwise the
// explicitly linked standalone customization items. The two mechanisms are
// independent; there is no category fallback here.
func (h *Handler) ItemCustomizations(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	item, found := h.Catalog.Get(id)
	if !found || item.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
		return
	}

	if len(item.Customizations) > 0 {
		response.Success(w, map[string]any{
			"source":         "embedded",
			"customizations": item.Customizations,
		})
		return
	}

	response.Success(w, map[string]any{
		"source":         "linked",
		"customizations": h.Catalog.ItemCustomizations(id),
	})
}

func (h *Handler) LinkCustomization(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	customizationID := readPathString(r, "customizationId")
	if !h.menuItemInBranch(id, branchID) || !h.menuItemInBranch(customizationID, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
		return
	}

	if err := h.Catalog.LinkCustomization(r.Context(), id, customizationID); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]any{"linked": true})
}

func (h *Handler) UnlinkCustomization(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	customizationID := readPathString(r, "customizationId")
	if !h.menuItemInBranch(id, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
		return
	}

	if err := h.Catalog.UnlinkCustomization(r.Context(), id, customizationID); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]any{"linked": false})
}

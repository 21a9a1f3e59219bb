package handlers

import (
	"encoding/json"
	"net/http"

	"dinetrack-ops-service/internal/catalog"
	"dinetrack-ops-service/pkg/response"
)

type menuItemRequest struct {
	Name                    string                  `json:"name"`
	Description             string                  `json:"description"`
	Price                   float64                 `json:"price"`
	Category                string                  `json:"category"`
	ParentCategory          *string                 `json:"parentCategory"`
	IsCustomizationCategory bool                    `json:"isCustomizationCategory"`
	Available               bool                    `json:"available"`
	Customizations          []catalog.Customization `json:"customizations"`
}

type menuItemPatchRequest struct {
	Name           *string                  `json:"name"`
	Description    *string                  `json:"description"`
	Price          *float64                 `json:"price"`
	Category       *string                  `json:"category"`
	ParentCategory *string                  `json:"parentCategory"`
	Available      *bool                    `json:"available"`
	Customizations *[]catalog.Customization `json:"customizations"`
}

func (h *Handler) MenuList(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	response.Success(w, h.Catalog.ByBranch(branchID))
}

// MenuSelectable lists the items an order line may be built from. This is the
// list order-construction UIs must use: customization categories never show
// up here.
func (h *Handler) MenuSelectable(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	response.Success(w, h.Catalog.SelectableItems(branchID))
}

func (h *Handler) MenuCreate(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	var body menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	item, err := h.Catalog.Add(r.Context(), catalog.ItemInput{
		BranchID:                branchID,
		Name:                    body.Name,
		Description:             body.Description,
		Price:                   body.Price,
		Category:                body.Category,
		ParentCategory:          body.ParentCategory,
		IsCustomizationCategory: body.IsCustomizationCategory,
		Available:               body.Available,
		Customizations:          body.Customizations,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Created(w, item)
}

func (h *Handler) MenuUpdate(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if !h.menuItemInBranch(id, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
		return
	}

	var body menuItemPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	item, err := h.Catalog.Update(r.Context(), id, catalog.ItemPatch{
		Name:           body.Name,
		Description:    body.Description,
		Price:          body.Price,
		Category:       body.Category,
		ParentCategory: body.ParentCategory,
		Available:      body.Available,
		Customizations: body.Customizations,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, item)
}

func (h *Handler) MenuDelete(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")
	if !h.menuItemInBranch(id, branchID) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
		return
	}

	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]any{"deleted": true})
}

func (h *Handler) menuItemInBranch(id string, branchID string) bool {
	item, found := h.Catalog.Get(id)
	return found && item.BranchID == branchID
}

package handlers

import (
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dinetrack-ops-service/pkg/response"
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// MenuItemImageUpload stores a menu item photo in the object store and saves
// the public URL on the item. Requires an object store to be configured.
func (h *Handler) MenuItemImageUpload(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	if h.Objects == nil {
		response.Error(w, http.StatusServiceUnavailable, "OBJECT_STORE_UNAVAILABLE", "Image uploads are not configured")
		return
	}

	id := readPathString(r, "id")
	item, found := h.Catalog.Get(id)
	if !found || item.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
		return
	}

	data, contentType, err := readImageBytes(r, "image", h.Config.MaxUploadBytes)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	branch, _ := h.Branches.Get(branchID)
	code := strings.ToLower(strings.TrimSpace(branch.ShortCode))
	if code == "" {
		code = strings.ToLower(branchID)
	}
	key := fmt.Sprintf("branches/%s/menus/menu-%s-%d-%s.%s",
		code, item.ID, time.Now().UnixMilli(), randomSuffix8(), imageExtensions[contentType])

	url, err := h.Objects.PutObject(r.Context(), key, data, contentType)
	if err != nil {
		h.Logger.Error("menu image upload failed")
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store image")
		return
	}

	updated, err := h.Catalog.SetImageURL(r.Context(), item.ID, url)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, updated)
}

// MenuItemImageDelete removes the stored photo and clears the item URL.
func (h *Handler) MenuItemImageDelete(w http.ResponseWriter, r *http.Request) {
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

	if item.ImageURL != nil && h.Objects != nil {
		if key, ok := h.Objects.KeyFromURL(*item.ImageURL); ok {
			if err := h.Objects.DeleteObject(r.Context(), key); err != nil {
				h.Logger.Warn("menu image delete failed")
			}
		}
	}

	updated, err := h.Catalog.SetImageURL(r.Context(), item.ID, "")
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, updated)
}

func readImageBytes(r *http.Request, field string, maxBytes int64) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("image file is required")
	}
	defer file.Close()

	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("file size must be less than %dMB", maxBytes/(1024*1024))
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" {
		contentType = strings.ToLower(http.DetectContentType(data))
	}
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, contentType, fmt.Errorf("invalid file type, please upload an image")
	}
	return data, contentType, nil
}

func randomSuffix8() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

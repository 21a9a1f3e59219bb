// Package catalog holds the per-branch menu, including "customization"
// pseudo-items (toppings, sizes) that are linked to regular items either
// through an embedded list or through explicit item links. Customization
// items are never orderable on their own.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dinetrack-ops-service/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("catalog: menu item not found")
	ErrValidation = errors.New("catalog: validation failed")
)

type Customization struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type MenuItem struct {
	ID                      string          `json:"id"`
	BranchID                string          `json:"branchId"`
	Name                    string          `json:"name"`
	Description             string          `json:"description,omitempty"`
	Price                   float64         `json:"price"`
	Category                string          `json:"category"`
	ParentCategory          *string         `json:"parentCategory,omitempty"`
	IsCustomizationCategory bool            `json:"isCustomizationCategory"`
	Available               bool            `json:"available"`
	Customizations          []Customization `json:"customizations,omitempty"`
	ImageURL                *string         `json:"imageUrl,omitempty"`
}

// Link associates a regular menu item with a standalone customization item.
type Link struct {
	MenuItemID          string `json:"menuItemId"`
	CustomizationItemID string `json:"customizationItemId"`
}

type ItemInput struct {
	BranchID                string
	Name                    string
	Description             string
	Price                   float64
	Category                string
	ParentCategory          *string
	IsCustomizationCategory bool
	Available               bool
	Customizations          []Customization
}

type ItemPatch struct {
	Name           *string
	Description    *string
	Price          *float64
	Category       *string
	ParentCategory *string
	Available      *bool
	Customizations *[]Customization
}

type Store struct {
	mu      sync.RWMutex
	backend storage.Backend
	items   []MenuItem
	links   []Link
}

func Open(ctx context.Context, backend storage.Backend) (*Store, error) {
	s := &Store{backend: backend}
	if err := loadDoc(ctx, backend, storage.KeyMenuItems, &s.items); err != nil {
		return nil, err
	}
	if err := loadDoc(ctx, backend, storage.KeyMenuItemLinks, &s.links); err != nil {
		return nil, err
	}
	return s, nil
}

func loadDoc(ctx context.Context, backend storage.Backend, key string, out any) error {
	data, err := backend.Load(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) persistItems(ctx context.Context) error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, storage.KeyMenuItems, data)
}

func (s *Store) persistLinks(ctx context.Context) error {
	data, err := json.Marshal(s.links)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, storage.KeyMenuItemLinks, data)
}

func (s *Store) Get(id string) (MenuItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return MenuItem{}, false
}

func (s *Store) ByBranch(branchID string) []MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MenuItem, 0)
	for _, item := range s.items {
		if item.BranchID == branchID {
			out = append(out, item)
		}
	}
	return out
}

// SelectableItems lists the items an order line may be built from: available
// regular items only, never customization categories.
func (s *Store) SelectableItems(branchID string) []MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MenuItem, 0)
	for _, item := range s.items {
		if item.BranchID == branchID && item.Available && !item.IsCustomizationCategory {
			out = append(out, item)
		}
	}
	return out
}

func (s *Store) validate(input ItemInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(input.BranchID) == "" {
		return fmt.Errorf("%w: branch id is required", ErrValidation)
	}
	if input.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	for _, c := range input.Customizations {
		if c.Price < 0 {
			return fmt.Errorf("%w: customization price must not be negative", ErrValidation)
		}
	}
	if input.IsCustomizationCategory {
		if input.ParentCategory == nil || strings.TrimSpace(*input.ParentCategory) == "" {
			return fmt.Errorf("%w: customization category requires a parent category", ErrValidation)
		}
		// The parent has to be a regular category; a customization category
		// cannot hang off another customization category.
		if s.categoryIsCustomization(input.BranchID, *input.ParentCategory) {
			return fmt.Errorf("%w: parent category must be a non-customization category", ErrValidation)
		}
	}
	return nil
}

func (s *Store) categoryIsCustomization(branchID, category string) bool {
	for _, item := range s.items {
		if item.BranchID == branchID && item.IsCustomizationCategory && item.Category == category {
			return true
		}
	}
	return false
}

func (s *Store) Add(ctx context.Context, input ItemInput) (MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(input); err != nil {
		return MenuItem{}, err
	}

	item := MenuItem{
		ID:                      uuid.NewString(),
		BranchID:                input.BranchID,
		Name:                    strings.TrimSpace(input.Name),
		Description:             strings.TrimSpace(input.Description),
		Price:                   input.Price,
		Category:                input.Category,
		ParentCategory:          input.ParentCategory,
		IsCustomizationCategory: input.IsCustomizationCategory,
		Available:               input.Available,
		Customizations:          input.Customizations,
	}
	for i := range item.Customizations {
		if item.Customizations[i].ID == "" {
			item.Customizations[i].ID = uuid.NewString()
		}
	}

	s.items = append(s.items, item)
	if err := s.persistItems(ctx); err != nil {
		s.items = s.items[:len(s.items)-1]
		return MenuItem{}, err
	}
	return item, nil
}

func (s *Store) Update(ctx context.Context, id string, patch ItemPatch) (MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return MenuItem{}, ErrNotFound
	}

	prev := s.items[idx]
	item := prev
	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return MenuItem{}, fmt.Errorf("%w: price must not be negative", ErrValidation)
		}
		item.Price = *patch.Price
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.ParentCategory != nil {
		item.ParentCategory = patch.ParentCategory
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}
	if patch.Customizations != nil {
		item.Customizations = *patch.Customizations
		for i := range item.Customizations {
			if item.Customizations[i].ID == "" {
				item.Customizations[i].ID = uuid.NewString()
			}
		}
	}

	s.items[idx] = item
	if err := s.persistItems(ctx); err != nil {
		s.items[idx] = prev
		return MenuItem{}, err
	}
	return item, nil
}

// Delete removes the item and any customization links that reference it on
// either side.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}

	prevItems := s.items
	prevLinks := s.links

	items := make([]MenuItem, 0, len(s.items)-1)
	items = append(items, s.items[:idx]...)
	items = append(items, s.items[idx+1:]...)
	s.items = items

	links := make([]Link, 0, len(s.links))
	for _, link := range s.links {
		if link.MenuItemID == id || link.CustomizationItemID == id {
			continue
		}
		links = append(links, link)
	}
	s.links = links

	if err := s.persistItems(ctx); err != nil {
		s.items, s.links = prevItems, prevLinks
		return err
	}
	if err := s.persistLinks(ctx); err != nil {
		s.items, s.links = prevItems, prevLinks
		return err
	}
	return nil
}

func (s *Store) SetImageURL(ctx context.Context, id string, url string) (MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return MenuItem{}, ErrNotFound
	}
	prev := s.items[idx]
	item := prev
	if url == "" {
		item.ImageURL = nil
	} else {
		item.ImageURL = &url
	}
	s.items[idx] = item
	if err := s.persistItems(ctx); err != nil {
		s.items[idx] = prev
		return MenuItem{}, err
	}
	return item, nil
}

// CategoryCustomizations lists the available customization items whose parent
// category matches, branch-scoped.
func (s *Store) CategoryCustomizations(branchID string, category string) []MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MenuItem, 0)
	for _, item := range s.items {
		if !item.IsCustomizationCategory || item.BranchID != branchID || !item.Available {
			continue
		}
		if item.ParentCategory != nil && *item.ParentCategory == category {
			out = append(out, item)
		}
	}
	return out
}

// ItemCustomizations resolves explicit links only. Embedded customizations on
// the item and category-wide options are separate mechanisms the caller
// unions itself.
func (s *Store) ItemCustomizations(menuItemID string) []MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	linked := make(map[string]struct{})
	for _, link := range s.links {
		if link.MenuItemID == menuItemID {
			linked[link.CustomizationItemID] = struct{}{}
		}
	}
	if len(linked) == 0 {
		return []MenuItem{}
	}

	out := make([]MenuItem, 0, len(linked))
	for _, item := range s.items {
		if _, ok := linked[item.ID]; ok {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LinkCustomization is idempotent: linking an already-linked pair changes
// nothing.
func (s *Store) LinkCustomization(ctx context.Context, menuItemID, customizationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.lookup(menuItemID)
	if !ok {
		return ErrNotFound
	}
	customization, ok := s.lookup(customizationID)
	if !ok {
		return ErrNotFound
	}
	if item.IsCustomizationCategory {
		return fmt.Errorf("%w: links only exist for non-customization menu items", ErrValidation)
	}
	if !customization.IsCustomizationCategory {
		return fmt.Errorf("%w: target is not a customization item", ErrValidation)
	}

	for _, link := range s.links {
		if link.MenuItemID == menuItemID && link.CustomizationItemID == customizationID {
			return nil
		}
	}

	s.links = append(s.links, Link{MenuItemID: menuItemID, CustomizationItemID: customizationID})
	if err := s.persistLinks(ctx); err != nil {
		s.links = s.links[:len(s.links)-1]
		return err
	}
	return nil
}

// UnlinkCustomization is idempotent: removing a link that does not exist is a
// no-op.
func (s *Store) UnlinkCustomization(ctx context.Context, menuItemID, customizationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, link := range s.links {
		if link.MenuItemID == menuItemID && link.CustomizationItemID == customizationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	prev := s.links
	links := make([]Link, 0, len(s.links)-1)
	links = append(links, s.links[:idx]...)
	links = append(links, s.links[idx+1:]...)
	s.links = links

	if err := s.persistLinks(ctx); err != nil {
		s.links = prev
		return err
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) lookup(id string) (MenuItem, bool) {
	if idx := s.indexOf(id); idx >= 0 {
		return s.items[idx], true
	}
	return MenuItem{}, false
}

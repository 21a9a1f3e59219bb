// Package storage provides the persistence backends the domain stores write
// through. State is kept as one JSON document per key; the key layout below
// is the contract shared with whichever backend is configured.
package storage

import (
	"context"
	"errors"
)

const (
	KeyTables        = "tables"
	KeyAreas         = "areas"
	KeyReservations  = "reservations"
	KeyMenuItems     = "menu_items"
	KeyMenuItemLinks = "menu_item_customizations"
	KeyOrders        = "orders"
	KeyBills         = "bills"
	KeyBranches      = "branches"
	KeyDeletePins    = "branch_delete_pins"
)

// ErrKeyNotFound is returned by Load when the key has never been saved.
var ErrKeyNotFound = errors.New("storage: key not found")

type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

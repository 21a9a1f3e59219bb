package branches

import (
	"context"
	"encoding/json"
	"testing"

	"dinetrack-ops-service/internal/storage"
)

func newTestStore(t *testing.T) (*Store, storage.Backend) {
	t.Helper()
	backend := storage.NewMemory()
	seed := []Branch{
		{ID: "br-1", OwnerID: "own-1", Name: "Downtown", ShortCode: "DTN", Currency: "USD"},
		{ID: "br-2", OwnerID: "own-1", Name: "Harbor", ShortCode: "HRB"},
		{ID: "br-3", OwnerID: "own-2", Name: "Uptown", ShortCode: "UPT"},
	}
	data, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := backend.Save(context.Background(), storage.KeyBranches, data); err != nil {
		t.Fatalf("seed branches: %v", err)
	}
	s, err := Open(context.Background(), backend)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s, backend
}

func TestLookups(t *testing.T) {
	s, _ := newTestStore(t)

	b, ok := s.Get("br-1")
	if !ok || b.Name != "Downtown" {
		t.Fatalf("Get br-1 = %+v, %v", b, ok)
	}
	if _, ok := s.Get("br-9"); ok {
		t.Fatal("Get br-9 should miss")
	}

	b, ok = s.ByShortCode("HRB")
	if !ok || b.ID != "br-2" {
		t.Fatalf("ByShortCode HRB = %+v, %v", b, ok)
	}

	owned := s.ByOwner("own-1")
	if len(owned) != 2 {
		t.Fatalf("ByOwner own-1 returned %d branches", len(owned))
	}
	if got := s.ByOwner("own-9"); len(got) != 0 {
		t.Fatalf("ByOwner own-9 returned %d branches", len(got))
	}
}

func TestOpenWithoutSeed(t *testing.T) {
	s, err := Open(context.Background(), storage.NewMemory())
	if err != nil {
		t.Fatalf("open empty store: %v", err)
	}
	if _, ok := s.Get("br-1"); ok {
		t.Fatal("empty store should have no branches")
	}
}

func TestDeletePinLifecycle(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	if _, ok := s.DeletePinHash("br-1"); ok {
		t.Fatal("fresh branch should have no pin")
	}
	if err := s.SetDeletePinHash(ctx, "br-1", "hash-a"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	hash, ok := s.DeletePinHash("br-1")
	if !ok || hash != "hash-a" {
		t.Fatalf("DeletePinHash = %q, %v", hash, ok)
	}

	// Pins survive a reopen from the same backend.
	reopened, err := Open(ctx, backend)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	hash, ok = reopened.DeletePinHash("br-1")
	if !ok || hash != "hash-a" {
		t.Fatalf("after reopen DeletePinHash = %q, %v", hash, ok)
	}

	if err := s.RemoveDeletePin(ctx, "br-1"); err != nil {
		t.Fatalf("remove pin: %v", err)
	}
	if _, ok := s.DeletePinHash("br-1"); ok {
		t.Fatal("pin should be gone after removal")
	}
	// Removing an absent pin is a no-op.
	if err := s.RemoveDeletePin(ctx, "br-1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

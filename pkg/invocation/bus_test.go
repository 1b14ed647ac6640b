package invocation

import (
	"context"
	"testing"
	"time"

	"hangarcore/pkg/models"
	"hangarcore/pkg/store"
)

func testBus(t *testing.T) *Bus {
	t.Helper()
	p, err := store.OpenPebble(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPebble: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return &Bus{Store: store.NewAdapter(p)}
}

func TestCreateAndConsume(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)

	params := map[string]any{"asset_id": "HC-204"}
	if err := b.Create(ctx, "u1", "inventory", "detailscreen", params, time.Minute); err != nil {
		t.Fatalf("Create: %v", err)
	}

	inv := b.FetchAndConsume(ctx, "u1", "inventory")
	if inv == nil {
		t.Fatal("expected a pending invocation")
	}
	if inv.Route != "detailscreen" {
		t.Fatalf("route = %q", inv.Route)
	}
	if inv.Params["asset_id"] != "HC-204" {
		t.Fatalf("params = %v", inv.Params)
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)

	if err := b.Create(ctx, "u1", "inventory", "detailscreen", nil, time.Minute); err != nil {
		t.Fatal(err)
	}
	if inv := b.FetchAndConsume(ctx, "u1", "inventory"); inv == nil {
		t.Fatal("first consume must succeed")
	}
	if inv := b.FetchAndConsume(ctx, "u1", "inventory"); inv != nil {
		t.Fatalf("second consume must be empty, got %+v", inv)
	}
}

func TestLastWriterWins(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)

	if err := b.Create(ctx, "u1", "inventory", "first", nil, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := b.Create(ctx, "u1", "inventory", "second", nil, time.Minute); err != nil {
		t.Fatal(err)
	}
	inv := b.FetchAndConsume(ctx, "u1", "inventory")
	if inv == nil || inv.Route != "second" {
		t.Fatalf("got %+v, want the replacing invocation", inv)
	}
}

func TestExpiredInvocationIsDestroyed(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)

	now := time.Now()
	b.Now = func() time.Time { return now }
	if err := b.Create(ctx, "u1", "inventory", "detailscreen", nil, time.Minute); err != nil {
		t.Fatal(err)
	}

	// jump past the TTL before the module comes up
	b.Now = func() time.Time { return now.Add(2 * time.Minute) }
	if inv := b.FetchAndConsume(ctx, "u1", "inventory"); inv != nil {
		t.Fatalf("expired invocation must read as absent, got %+v", inv)
	}

	// the record is gone, not just hidden
	coll := models.InvocationsCollection("u1")
	id := models.InvocationDocID("u1", "inventory")
	if doc := b.Store.GetDocument(ctx, coll, id); doc != nil {
		t.Fatalf("expired record left behind: %v", doc)
	}
}

func TestInvocationsAreScopedPerUserAndModule(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)

	if err := b.Create(ctx, "u1", "inventory", "a", nil, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := b.Create(ctx, "u2", "inventory", "b", nil, time.Minute); err != nil {
		t.Fatal(err)
	}
	if inv := b.FetchAndConsume(ctx, "u1", "maintenance"); inv != nil {
		t.Fatalf("wrong module consumed %+v", inv)
	}
	if inv := b.FetchAndConsume(ctx, "u2", "inventory"); inv == nil || inv.Route != "b" {
		t.Fatalf("got %+v", inv)
	}
	if inv := b.FetchAndConsume(ctx, "u1", "inventory"); inv == nil || inv.Route != "a" {
		t.Fatalf("got %+v", inv)
	}
}

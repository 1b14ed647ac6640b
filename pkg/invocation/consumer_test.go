package invocation

import (
	"context"
	"testing"
	"time"
)

type recordingPort struct {
	routes []string
	params []map[string]any
	panics bool
}

func (p *recordingPort) RouteTo(screenID string) {
	p.routes = append(p.routes, screenID)
}

func (p *recordingPort) HandleInvocationParams(params map[string]any) error {
	if p.panics {
		panic("bad payload")
	}
	p.params = append(p.params, params)
	return nil
}

func TestConsumerRoutesOnStartup(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)
	if err := b.Create(ctx, "u1", "inventory", "detailscreen", map[string]any{"asset_id": "HC-204"}, time.Minute); err != nil {
		t.Fatal(err)
	}

	port := &recordingPort{}
	c := &Consumer{Bus: b, ModuleName: "inventory", Port: port}
	inv := c.Start(ctx, "u1")
	if inv == nil {
		t.Fatal("expected consumed invocation")
	}
	if len(port.routes) != 1 || port.routes[0] != "detailscreen" {
		t.Fatalf("routes = %v", port.routes)
	}
	if len(port.params) != 1 || port.params[0]["asset_id"] != "HC-204" {
		t.Fatalf("params = %v", port.params)
	}
}

func TestConsumerFallbackRoute(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)
	if err := b.Create(ctx, "u1", "inventory", "", nil, time.Minute); err != nil {
		t.Fatal(err)
	}

	port := &recordingPort{}
	c := &Consumer{Bus: b, ModuleName: "inventory", RouteOnInvocation: "homescreen", Port: port}
	if inv := c.Start(ctx, "u1"); inv == nil {
		t.Fatal("expected consumed invocation")
	}
	if len(port.routes) != 1 || port.routes[0] != "homescreen" {
		t.Fatalf("routes = %v", port.routes)
	}
}

func TestConsumerNoPending(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)
	port := &recordingPort{}
	c := &Consumer{Bus: b, ModuleName: "inventory", Port: port}
	if inv := c.Start(ctx, "u1"); inv != nil {
		t.Fatalf("got %+v", inv)
	}
	if len(port.routes) != 0 {
		t.Fatalf("routed without invocation: %v", port.routes)
	}
}

func TestConsumerSurvivesParamsPanic(t *testing.T) {
	ctx := context.Background()
	b := testBus(t)
	if err := b.Create(ctx, "u1", "inventory", "detailscreen", map[string]any{"k": "v"}, time.Minute); err != nil {
		t.Fatal(err)
	}

	port := &recordingPort{panics: true}
	c := &Consumer{Bus: b, ModuleName: "inventory", Port: port}
	if inv := c.Start(ctx, "u1"); inv == nil {
		t.Fatal("a panicking params handler must not abort startup")
	}
	if len(port.routes) != 1 {
		t.Fatalf("routes = %v", port.routes)
	}
}

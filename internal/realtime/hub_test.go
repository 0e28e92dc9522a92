package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventUsage, Tenant: "acme", Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventUsage, EventSubscription},
	}}

	usageEvent := &Event{Type: EventUsage}
	subEvent := &Event{Type: EventSubscription}
	signupEvent := &Event{Type: EventSignup}

	if !h.shouldSend(client, usageEvent) {
		t.Error("Should receive usage events")
	}
	if !h.shouldSend(client, subEvent) {
		t.Error("Should receive subscription events")
	}
	if h.shouldSend(client, signupEvent) {
		t.Error("Should NOT receive signup events")
	}
}

func TestShouldSend_TenantFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Tenants: []string{"acme"},
	}}

	matching := &Event{Type: EventUsage, Tenant: "acme"}
	notMatching := &Event{Type: EventUsage, Tenant: "globex"}

	if !h.shouldSend(client, matching) {
		t.Error("Should match the watched tenant")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match other tenants")
	}
}

func TestShouldSend_CombinedFilters(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventSubscription},
		Tenants:    []string{"acme"},
	}}

	if !h.shouldSend(client, &Event{Type: EventSubscription, Tenant: "acme"}) {
		t.Error("Should receive matching type for the watched tenant")
	}
	if h.shouldSend(client, &Event{Type: EventUsage, Tenant: "acme"}) {
		t.Error("Type filter should still apply")
	}
	if h.shouldSend(client, &Event{Type: EventSubscription, Tenant: "globex"}) {
		t.Error("Tenant filter should still apply")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventUsage}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(&Event{Type: EventUsage, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
}

func TestHub_EmitReachesClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{Tenants: []string{"acme"}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Emit("usage", "acme", map[string]any{"tokens": 42})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for emitted event")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only watches one tenant
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{Tenants: []string{"acme"}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Another tenant's event should be filtered out
	h.Broadcast(&Event{Type: EventUsage, Tenant: "globex", Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive another tenant's event")
	default:
		// Good - filtered out
	}

	h.Broadcast(&Event{Type: EventSubscription, Tenant: "acme", Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive the watched tenant's event")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

package websocket

import (
	"testing"
	"time"
)

// ============================================================
// Тесты Hub
// ============================================================

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil {
		t.Error("clients map not initialized")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("new hub has %d clients", hub.ClientCount())
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.unregister <- client
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	// Канал клиента закрыт при отмене регистрации
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed")
	}
}

func TestHub_BroadcastMetricsUpdate(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- client
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	at := time.Date(2024, 6, 15, 2, 0, 0, 0, time.UTC)
	hub.BroadcastMetricsUpdate([]string{"BTC/USDT:USDT", "ETH/USDT:USDT"}, at)

	select {
	case raw := <-client.send:
		var msg MetricsUpdateMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("invalid broadcast JSON: %v", err)
		}
		if msg.Type != MessageTypeMetricsUpdate {
			t.Errorf("type = %q, want %q", msg.Type, MessageTypeMetricsUpdate)
		}
		if msg.Count != 2 || len(msg.Symbols) != 2 {
			t.Errorf("message = %+v", msg)
		}
		if !msg.Timestamp.Equal(at) {
			t.Errorf("timestamp = %v, want %v", msg.Timestamp, at)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast not delivered")
	}
}

func TestHub_SlowClientRemoved(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Буфер на 1 сообщение: второй broadcast переполняет клиента
	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- slow
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.BroadcastMetricsUpdate([]string{"A/USDT:USDT"}, time.Now())
	hub.BroadcastMetricsUpdate([]string{"B/USDT:USDT"}, time.Now())

	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

// waitFor опрашивает условие до таймаута
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// ============================================================
// Тесты OriginChecker
// ============================================================

func TestOriginChecker(t *testing.T) {
	checker := &OriginChecker{
		allowedOrigins: map[string]struct{}{
			"https://example.com": {},
		},
	}

	tests := []struct {
		name     string
		origin   string
		expected bool
	}{
		{"allowed origin", "https://example.com", true},
		{"unknown origin", "https://evil.com", false},
		{"empty origin allowed", "", true}, // non-browser клиенты
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := checker.Check(tt.origin); result != tt.expected {
				t.Errorf("Check(%q) = %v, want %v", tt.origin, result, tt.expected)
			}
		})
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	checker := &OriginChecker{allowAll: true}

	if !checker.Check("https://anything.example") {
		t.Error("allowAll checker must accept any origin")
	}
}

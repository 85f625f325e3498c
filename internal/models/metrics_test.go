package models

import (
	"encoding/json"
	"testing"
	"time"
)

// ============================================================
// Тесты PairMetrics.Stale
// ============================================================

func TestPairMetricsStale(t *testing.T) {
	expires := time.Date(2024, 6, 16, 2, 0, 0, 0, time.UTC)
	m := &PairMetrics{TTLExpiresAt: expires}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"well before expiry", expires.Add(-12 * time.Hour), false},
		{"just before expiry", expires.Add(-time.Second), false},
		{"exactly at expiry", expires, false},
		{"just after expiry", expires.Add(time.Second), true},
		{"long after expiry", expires.Add(72 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := m.Stale(tt.now); result != tt.expected {
				t.Errorf("Stale(%v) = %v, want %v", tt.now, result, tt.expected)
			}
		})
	}
}

// ============================================================
// Тесты сериализации wire-форматов
// ============================================================

func TestPairMetricsEntryJSON(t *testing.T) {
	entry := &PairMetricsEntry{
		LeverageAdjustment:  1.2,
		VolatilityRatio:     0.85,
		CorrelationWithETH:  0.92,
		AvgDailyMovement:    0.024,
		RecommendedLeverage: 12,
		LastUpdated:         "2024-06-15T02:00:00Z",
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	// Контрактные имена полей
	for _, field := range []string{
		"leverage_adjustment",
		"volatility_ratio",
		"correlation_with_eth",
		"avg_daily_movement",
		"recommended_leverage",
		"last_updated",
	} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("serialized entry missing field %q", field)
		}
	}

	// stale опускается когда false
	if _, ok := decoded["stale"]; ok {
		t.Error("stale=false must be omitted from JSON")
	}
}

func TestPairMetricsEntryJSON_StaleIncluded(t *testing.T) {
	entry := &PairMetricsEntry{Stale: true}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if string(decoded["stale"]) != "true" {
		t.Errorf("stale field = %s, want true", decoded["stale"])
	}
}

func TestPairMetricsJSON_InternalFieldsHidden(t *testing.T) {
	m := &PairMetrics{
		Symbol:       "BTC/USDT:USDT",
		ComputedAt:   time.Now(),
		TTLExpiresAt: time.Now().Add(24 * time.Hour),
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	// ttl_expires_at - внутренняя деталь хранилища
	if _, ok := decoded["ttl_expires_at"]; ok {
		t.Error("ttl_expires_at must not be serialized")
	}
	// computed_at наружу выходит как last_updated
	if _, ok := decoded["last_updated"]; !ok {
		t.Error("computed_at must serialize as last_updated")
	}
}

package models

import "time"

// PairMetrics представляет риск-метрики одной торговой пары
// относительно бенчмарка (по умолчанию ETH).
//
// Одна строка на символ (upsert-семантика, история не хранится).
// Строка создаётся при первом успешном расчёте и полностью заменяется
// при каждом следующем; частичных записей не бывает.
type PairMetrics struct {
	Symbol                   string    `json:"symbol" db:"symbol"`                                        // BTC/USDT:USDT
	VolatilityRatio          float64   `json:"volatility_ratio" db:"volatility_ratio"`                    // vol пары / vol бенчмарка, >= 0
	CorrelationWithBenchmark float64   `json:"correlation_with_eth" db:"correlation_with_benchmark"`      // корреляция Пирсона, [-1, 1]
	AvgDailyMovement         float64   `json:"avg_daily_movement" db:"avg_daily_movement"`                // mean(|r|) за окно, >= 0
	RecommendedLeverage      int       `json:"recommended_leverage" db:"recommended_leverage"`            // [min_leverage, max_leverage]
	LeverageAdjustment       float64   `json:"leverage_adjustment" db:"leverage_adjustment"`              // recommended / baseline
	ComputedAt               time.Time `json:"last_updated" db:"computed_at"`                             // момент расчёта
	TTLExpiresAt             time.Time `json:"-" db:"ttl_expires_at"`                                     // computed_at + интервал обновления
}

// Stale возвращает true если срок свежести строки истёк.
// Производное поле: не хранится, вычисляется от текущего времени.
func (m *PairMetrics) Stale(now time.Time) bool {
	return now.After(m.TTLExpiresAt)
}

// PairMetricsEntry - элемент ответа /leverage-adjustment для найденной пары.
//
// Имена полей зафиксированы контрактом и не меняются:
// leverage_adjustment, volatility_ratio, correlation_with_eth,
// avg_daily_movement, recommended_leverage, last_updated.
// Бенчмарк конфигурируем, но wire-поле исторически называется
// correlation_with_eth.
type PairMetricsEntry struct {
	LeverageAdjustment  float64 `json:"leverage_adjustment"`
	VolatilityRatio     float64 `json:"volatility_ratio"`
	CorrelationWithETH  float64 `json:"correlation_with_eth"`
	AvgDailyMovement    float64 `json:"avg_daily_movement"`
	RecommendedLeverage int     `json:"recommended_leverage"`
	LastUpdated         string  `json:"last_updated"` // ISO-8601 (RFC 3339)
	Stale               bool    `json:"stale,omitempty"`
}

// PairErrorEntry - элемент ответа для пары, метрики которой недоступны.
//
// Содержит консервативные дефолты чтобы клиент мог продолжить работу:
// плечо без корректировки и осторожное рекомендованное значение.
type PairErrorEntry struct {
	Error               string  `json:"error"`
	LeverageAdjustment  float64 `json:"leverage_adjustment"`
	RecommendedLeverage int     `json:"recommended_leverage"`
}

// HealthStatus - ответ endpoint'а /health
type HealthStatus struct {
	Status           string `json:"status"` // healthy / unhealthy
	Timestamp        string `json:"timestamp"`
	DatabasePairs    int    `json:"database_pairs"`
	ExchangeStatus   string `json:"exchange_status"` // connected / disconnected
	SchedulerRunning bool   `json:"scheduler_running"`
	Error            string `json:"error,omitempty"`
}

// Статусы health-check
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"

	ExchangeStatusConnected    = "connected"
	ExchangeStatusDisconnected = "disconnected"
)

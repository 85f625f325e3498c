package analyzer

import (
	"errors"
	"math"
	"testing"
	"time"

	"leverage/internal/exchange"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		MinWindow:        10,
		MinLeverage:      1,
		MaxLeverage:      20,
		BaselineLeverage: 10,
		TTL:              24 * time.Hour,
	}
}

// dailyCandles строит ряд дневных свечей из цен закрытия,
// по одной свече в сутки начиная с фиксированной даты
func dailyCandles(closes []float64) []exchange.Candle {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]exchange.Candle, len(closes))
	for i, c := range closes {
		candles[i] = exchange.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Close:     c,
		}
	}
	return candles
}

// series генерирует ряд цен с заданной амплитудой чередующихся
// доходностей: +amp, -amp, +amp, ...
func series(n int, start, amp float64) []float64 {
	prices := make([]float64, n)
	prices[0] = start
	for i := 1; i < n; i++ {
		r := amp
		if i%2 == 0 {
			r = -amp
		}
		prices[i] = prices[i-1] * (1 + r)
	}
	return prices
}

// ============================================================
// Тесты Compute: базовые свойства
// ============================================================

func TestCompute_IdenticalSeries(t *testing.T) {
	// Пара, идентичная бенчмарку: ratio=1, corr=1, плечо = baseline
	closes := series(30, 100, 0.02)
	candles := dailyCandles(closes)

	a := New(testConfig())
	m, err := a.Compute("ETH/USDT:USDT", candles, candles, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(m.VolatilityRatio-1) > 1e-9 {
		t.Errorf("VolatilityRatio = %v, want 1", m.VolatilityRatio)
	}
	if math.Abs(m.CorrelationWithBenchmark-1) > 1e-9 {
		t.Errorf("Correlation = %v, want 1", m.CorrelationWithBenchmark)
	}
	if m.RecommendedLeverage != 10 {
		t.Errorf("RecommendedLeverage = %d, want baseline 10", m.RecommendedLeverage)
	}
	if math.Abs(m.LeverageAdjustment-1) > 1e-9 {
		t.Errorf("LeverageAdjustment = %v, want 1", m.LeverageAdjustment)
	}
}

func TestCompute_TwiceAsVolatile(t *testing.T) {
	// Пара вдвое волатильнее бенчмарка получает вдвое меньшее плечо
	bench := dailyCandles(series(30, 100, 0.01))
	pair := dailyCandles(series(30, 50, 0.02))

	a := New(testConfig())
	m, err := a.Compute("SOL/USDT:USDT", pair, bench, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(m.VolatilityRatio-2) > 0.05 {
		t.Errorf("VolatilityRatio = %v, want ~2", m.VolatilityRatio)
	}
	if m.RecommendedLeverage != 5 {
		t.Errorf("RecommendedLeverage = %d, want 5 (baseline/2)", m.RecommendedLeverage)
	}
	if math.Abs(m.LeverageAdjustment-0.5) > 1e-9 {
		t.Errorf("LeverageAdjustment = %v, want 0.5", m.LeverageAdjustment)
	}
}

func TestCompute_LeverageAlwaysWithinBounds(t *testing.T) {
	// Границы плеча держатся на любой волатильности
	cfg := testConfig()
	a := New(cfg)
	bench := dailyCandles(series(30, 100, 0.01))

	tests := []struct {
		name string
		amp  float64
	}{
		{"extremely volatile", 0.5},
		{"very calm", 0.0001},
		{"moderate", 0.015},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := dailyCandles(series(30, 100, tt.amp))
			m, err := a.Compute("X1/USDT:USDT", pair, bench, testNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.RecommendedLeverage < cfg.MinLeverage || m.RecommendedLeverage > cfg.MaxLeverage {
				t.Errorf("RecommendedLeverage = %d outside [%d, %d]",
					m.RecommendedLeverage, cfg.MinLeverage, cfg.MaxLeverage)
			}
			if m.VolatilityRatio < 0 {
				t.Errorf("VolatilityRatio = %v, must be >= 0", m.VolatilityRatio)
			}
			if m.CorrelationWithBenchmark < -1 || m.CorrelationWithBenchmark > 1 {
				t.Errorf("Correlation = %v outside [-1, 1]", m.CorrelationWithBenchmark)
			}
			if m.AvgDailyMovement < 0 {
				t.Errorf("AvgDailyMovement = %v, must be >= 0", m.AvgDailyMovement)
			}
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	// Одинаковые входы дают одинаковые метрики
	bench := dailyCandles(series(30, 100, 0.01))
	pair := dailyCandles(series(30, 200, 0.03))

	a := New(testConfig())
	m1, err1 := a.Compute("ADA/USDT:USDT", pair, bench, testNow)
	m2, err2 := a.Compute("ADA/USDT:USDT", pair, bench, testNow)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}

	if *m1 != *m2 {
		t.Errorf("identical inputs produced different metrics:\n%+v\n%+v", m1, m2)
	}
}

func TestCompute_TTLDerivedFromComputedAt(t *testing.T) {
	candles := dailyCandles(series(30, 100, 0.02))

	a := New(testConfig())
	m, err := a.Compute("BTC/USDT:USDT", candles, candles, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !m.ComputedAt.Equal(testNow) {
		t.Errorf("ComputedAt = %v, want %v", m.ComputedAt, testNow)
	}
	if !m.TTLExpiresAt.Equal(testNow.Add(24 * time.Hour)) {
		t.Errorf("TTLExpiresAt = %v, want computed_at + TTL", m.TTLExpiresAt)
	}
}

// ============================================================
// Тесты Compute: ошибки
// ============================================================

func TestCompute_InsufficientHistory(t *testing.T) {
	bench := dailyCandles(series(30, 100, 0.01))
	pair := dailyCandles(series(5, 100, 0.02)) // меньше MinWindow=10

	a := New(testConfig())
	_, err := a.Compute("NEW/USDT:USDT", pair, bench, testNow)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestCompute_InsufficientOverlap(t *testing.T) {
	// Оба ряда длинные, но пересечение дат короче окна
	bench := dailyCandles(series(30, 100, 0.01))

	pairStart := time.Date(2024, 5, 26, 0, 0, 0, 0, time.UTC) // последние 5 дней бенчмарка
	closes := series(30, 100, 0.02)
	pair := make([]exchange.Candle, len(closes))
	for i, c := range closes {
		pair[i] = exchange.Candle{Timestamp: pairStart.AddDate(0, 0, i), Close: c}
	}

	a := New(testConfig())
	_, err := a.Compute("NEW/USDT:USDT", pair, bench, testNow)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory for short overlap, got %v", err)
	}
}

func TestCompute_DegenerateBenchmark(t *testing.T) {
	// Константный бенчмарк: нулевая волатильность, нормализация невозможна
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	bench := dailyCandles(flat)
	pair := dailyCandles(series(30, 100, 0.02))

	a := New(testConfig())
	_, err := a.Compute("BTC/USDT:USDT", pair, bench, testNow)
	if !errors.Is(err, ErrDegenerateBenchmark) {
		t.Errorf("expected ErrDegenerateBenchmark, got %v", err)
	}
}

func TestCompute_FlatPairAgainstNormalBenchmark(t *testing.T) {
	// Константная ПАРА - не ошибка: ratio=0, плечо = MaxLeverage
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	pair := dailyCandles(flat)
	bench := dailyCandles(series(30, 100, 0.01))

	cfg := testConfig()
	a := New(cfg)
	m, err := a.Compute("STABLE/USDT:USDT", pair, bench, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.VolatilityRatio != 0 {
		t.Errorf("VolatilityRatio = %v, want 0", m.VolatilityRatio)
	}
	if m.RecommendedLeverage != cfg.MaxLeverage {
		t.Errorf("RecommendedLeverage = %d, want MaxLeverage %d", m.RecommendedLeverage, cfg.MaxLeverage)
	}
	if m.CorrelationWithBenchmark != 0 {
		t.Errorf("Correlation = %v, want 0 for zero-variance pair", m.CorrelationWithBenchmark)
	}
}

// ============================================================
// Тесты alignByDay
// ============================================================

func TestAlignByDay(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
	}

	pair := []exchange.Candle{
		{Timestamp: day(1), Close: 10},
		{Timestamp: day(2), Close: 11},
		{Timestamp: day(4), Close: 12}, // дыра 3-го числа
	}
	bench := []exchange.Candle{
		{Timestamp: day(1).Add(8 * time.Hour), Close: 100}, // иной внутрисуточный час
		{Timestamp: day(3), Close: 101},
		{Timestamp: day(4), Close: 102},
	}

	pairCloses, benchCloses := alignByDay(pair, bench)

	if len(pairCloses) != 2 || len(benchCloses) != 2 {
		t.Fatalf("aligned lengths = %d, %d, want 2, 2", len(pairCloses), len(benchCloses))
	}
	// Совпадают только 1-е и 4-е числа
	if pairCloses[0] != 10 || pairCloses[1] != 12 {
		t.Errorf("pairCloses = %v, want [10 12]", pairCloses)
	}
	if benchCloses[0] != 100 || benchCloses[1] != 102 {
		t.Errorf("benchCloses = %v, want [100 102]", benchCloses)
	}
}

func TestAlignByDay_NoOverlap(t *testing.T) {
	pair := dailyCandles([]float64{1, 2, 3})
	bench := []exchange.Candle{
		{Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100},
	}

	pairCloses, benchCloses := alignByDay(pair, bench)
	if len(pairCloses) != 0 || len(benchCloses) != 0 {
		t.Errorf("expected empty alignment, got %v / %v", pairCloses, benchCloses)
	}
}

// Package analyzer реализует чистый расчёт риск-метрик пары
// относительно бенчмарка. Никаких побочных эффектов: ценовые ряды
// на входе, PairMetrics или типизированная ошибка на выходе.
package analyzer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"leverage/internal/exchange"
	"leverage/internal/models"
	"leverage/pkg/utils"
)

// Ошибки расчёта. Все они скоупятся одним символом:
// batch-запрос или sweep планировщика из-за них не падают.
var (
	// ErrInsufficientHistory - выровненных точек меньше минимального окна
	ErrInsufficientHistory = errors.New("insufficient aligned price history")

	// ErrDegenerateBenchmark - волатильность бенчмарка ~0, нормализация невозможна
	ErrDegenerateBenchmark = errors.New("benchmark volatility is degenerate")
)

// epsVolatility - порог "нулевой" волатильности бенчмарка.
// Дневные доходности ликвидных активов имеют stddev порядка 1e-2;
// значение ниже порога означает битые или константные данные.
const epsVolatility = 1e-9

// Config - параметры расчёта (подмножество конфигурации движка)
type Config struct {
	MinWindow        int
	MinLeverage      int
	MaxLeverage      int
	BaselineLeverage int
	TTL              time.Duration
}

// Analyzer вычисляет PairMetrics из ценовых рядов.
// Безопасен для конкурентного использования: состояния нет.
type Analyzer struct {
	cfg Config
}

// New создаёт Analyzer
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Compute рассчитывает метрики пары относительно бенчмарка.
//
// Шаги:
//  1. Выравнивание двух рядов свечей по торговой дате (UTC-сутки)
//  2. Дневные доходности каждого ряда: r[i] = p[i]/p[i-1] - 1
//  3. avg_daily_movement = mean(|r_pair|)
//  4. volatility_ratio = stddev(r_pair) / stddev(r_bench), выборочное stddev
//  5. correlation = Пирсон(r_pair, r_bench), 0 при нулевой дисперсии
//  6. recommended_leverage = clamp(round(baseline / volatility_ratio), min, max)
//  7. leverage_adjustment = recommended / baseline
//
// Детерминирован: одинаковые входы дают одинаковые метрики
// (за исключением computed_at, который передаётся явно).
func (a *Analyzer) Compute(symbol string, pairCandles, benchCandles []exchange.Candle, now time.Time) (*models.PairMetrics, error) {
	pairCloses, benchCloses := alignByDay(pairCandles, benchCandles)

	if len(pairCloses) < a.cfg.MinWindow {
		return nil, fmt.Errorf("%w: %s has %d aligned points, need %d",
			ErrInsufficientHistory, symbol, len(pairCloses), a.cfg.MinWindow)
	}

	pairReturns := utils.DailyReturns(pairCloses)
	benchReturns := utils.DailyReturns(benchCloses)

	pairVol := utils.SampleStdDev(pairReturns)
	benchVol := utils.SampleStdDev(benchReturns)

	if benchVol < epsVolatility {
		return nil, fmt.Errorf("%w: stddev=%g", ErrDegenerateBenchmark, benchVol)
	}

	volatilityRatio := pairVol / benchVol
	correlation := utils.PearsonCorrelation(pairReturns, benchReturns)
	avgMovement := utils.MeanAbs(pairReturns)

	recommended := a.recommendLeverage(volatilityRatio)
	adjustment := float64(recommended) / float64(a.cfg.BaselineLeverage)

	return &models.PairMetrics{
		Symbol:                   symbol,
		VolatilityRatio:          volatilityRatio,
		CorrelationWithBenchmark: correlation,
		AvgDailyMovement:         avgMovement,
		RecommendedLeverage:      recommended,
		LeverageAdjustment:       adjustment,
		ComputedAt:               now,
		TTLExpiresAt:             now.Add(a.cfg.TTL),
	}, nil
}

// recommendLeverage переводит отношение волатильностей в целое плечо.
//
// Обратная зависимость: пара вдвое волатильнее бенчмарка получает
// вдвое меньшее плечо. Результат всегда в [MinLeverage, MaxLeverage].
func (a *Analyzer) recommendLeverage(volatilityRatio float64) int {
	// Нулевая волатильность пары: риска относительно бенчмарка нет,
	// отдаём верхнюю границу вместо деления на ноль
	if volatilityRatio <= 0 {
		return a.cfg.MaxLeverage
	}

	raw := math.Round(float64(a.cfg.BaselineLeverage) / volatilityRatio)

	// float64 -> int безопасно только после отсечения бесконечностей
	if raw > float64(a.cfg.MaxLeverage) {
		return a.cfg.MaxLeverage
	}

	return utils.ClampInt(int(raw), a.cfg.MinLeverage, a.cfg.MaxLeverage)
}

// alignByDay выравнивает два ряда свечей по торговой дате.
//
// Биржи проставляют открытие дневной свечи в разные моменты суток;
// ключом выравнивания служат UTC-сутки. Возвращаются два ряда цен
// закрытия одинаковой длины в хронологическом порядке - только даты,
// присутствующие в обоих рядах.
func alignByDay(pair, bench []exchange.Candle) (pairCloses, benchCloses []float64) {
	benchByDay := make(map[string]float64, len(bench))
	for _, c := range bench {
		benchByDay[utils.DayKey(c.Timestamp)] = c.Close
	}

	pairCloses = make([]float64, 0, len(pair))
	benchCloses = make([]float64, 0, len(pair))
	for _, c := range pair {
		if benchClose, ok := benchByDay[utils.DayKey(c.Timestamp)]; ok {
			pairCloses = append(pairCloses, c.Close)
			benchCloses = append(benchCloses, benchClose)
		}
	}

	return pairCloses, benchCloses
}

// Package engine содержит координатор вычислений (single-flight)
// и планировщик фоновых пересчётов.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"leverage/internal/analyzer"
	"leverage/internal/config"
	"leverage/internal/exchange"
	"leverage/internal/models"
	"leverage/pkg/retry"
)

// Ошибки координатора
var (
	// ErrSourceUnavailable - запрос рыночных данных исчерпал повторы
	ErrSourceUnavailable = errors.New("market data source unavailable")

	// ErrTimeout - цикл вычисления не уложился в COMPUTE_TIMEOUT;
	// slot освобождён, следующий вызов запустит новый расчёт
	ErrTimeout = errors.New("computation timed out")
)

// Store - интерфейс кеш-хранилища, нужный координатору
type Store interface {
	Get(ctx context.Context, symbol string) (*models.PairMetrics, error)
	Upsert(ctx context.Context, m *models.PairMetrics) error
	ListSymbols(ctx context.Context) ([]string, error)
}

// Coordinator дедуплицирует конкурентные запросы на вычисление (single-flight).
//
// Инвариант: на символ в любой момент существует не более одного
// вычисления в полёте. Запросы, пришедшие пока вычисление летит,
// присоединяются к нему и получают его результат (успех или ошибку),
// не создавая дополнительной нагрузки на источник данных.
//
// Порядок на успешном пути: запись в хранилище происходит ДО
// пробуждения ожидающих, поэтому get сразу после resolve
// гарантированно видит свежую строку.
type Coordinator struct {
	cfg      config.EngineConfig
	source   exchange.MarketDataSource
	store    Store
	analyzer *analyzer.Analyzer

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// inflightCall - одно летящее вычисление. Результат валиден после
// закрытия done; slot в реестре к этому моменту уже освобождён.
type inflightCall struct {
	done    chan struct{}
	metrics *models.PairMetrics
	err     error
}

// NewCoordinator создаёт координатор
func NewCoordinator(cfg config.EngineConfig, source exchange.MarketDataSource, store Store) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		source: source,
		store:  store,
		analyzer: analyzer.New(analyzer.Config{
			MinWindow:        cfg.MinWindow,
			MinLeverage:      cfg.MinLeverage,
			MaxLeverage:      cfg.MaxLeverage,
			BaselineLeverage: cfg.BaselineLeverage,
			TTL:              cfg.TTL(),
		}),
		inflight: make(map[string]*inflightCall),
	}
}

// Resolve вычисляет (или дожидается) свежие метрики символа.
//
// Первый вызов для символа становится лидером: запускает цикл
// fetch+compute+store со своим таймаутом. Остальные вызовы ждут его
// результат. Отмена контекста ожидающего отсоединяет только его
// самого - лидер продолжает работать для остальных.
func (c *Coordinator) Resolve(ctx context.Context, symbol string) (*models.PairMetrics, error) {
	c.mu.Lock()
	if call, ok := c.inflight[symbol]; ok {
		c.mu.Unlock()
		SingleflightShared.Inc()
		return awaitCall(ctx, call)
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[symbol] = call
	c.mu.Unlock()

	// Лидер работает в отдельной горутине с собственным таймаутом:
	// его жизнь не должна зависеть от контекста одного из ожидающих
	go c.lead(symbol, call)

	return awaitCall(ctx, call)
}

// awaitCall ждёт завершения вычисления или отмены контекста вызывающего
func awaitCall(ctx context.Context, call *inflightCall) (*models.PairMetrics, error) {
	select {
	case <-call.done:
		return call.metrics, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lead выполняет цикл вычисления и публикует результат всем ожидающим.
//
// Slot удаляется из реестра ДО закрытия done: к моменту, когда
// ожидающие проснутся с ошибкой (например, Timeout), повторный
// Resolve уже запустит новое вычисление, а не прицепится к мёртвому.
func (c *Coordinator) lead(symbol string, call *inflightCall) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ComputeTimeout)
	defer cancel()

	metrics, err := c.computeOnce(ctx, symbol)
	if err != nil && ctx.Err() != nil {
		// Таймаут лидера отменяет fetch и транслируется всем ожидающим
		err = fmt.Errorf("%w: %s after %v", ErrTimeout, symbol, c.cfg.ComputeTimeout)
	}

	call.metrics, call.err = metrics, err

	ComputationDuration.Observe(time.Since(start).Seconds())
	ComputationsTotal.WithLabelValues(resultLabel(err)).Inc()

	c.mu.Lock()
	delete(c.inflight, symbol)
	c.mu.Unlock()

	close(call.done)
}

// computeOnce - один цикл: fetch обоих рядов (с повторами), расчёт, запись.
//
// При любой ошибке хранилище не трогается: предыдущая строка символа,
// пусть и устаревшая, остаётся доступной для fallback-чтений.
func (c *Coordinator) computeOnce(ctx context.Context, symbol string) (*models.PairMetrics, error) {
	retryCfg := retry.MarketDataConfig(c.cfg.MaxRetries, c.cfg.RetryBackoff)
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Printf("Retrying market data fetch for %s (attempt %d, delay %v): %v", symbol, attempt, delay, err)
	}

	pairCandles, err := retry.DoWithResult(ctx, func() ([]exchange.Candle, error) {
		return c.source.FetchDailyCandles(ctx, symbol, c.cfg.LookbackDays)
	}, retryCfg)
	if err != nil {
		return nil, wrapFetchErr(symbol, err)
	}

	// Бенчмарк, сравниваемый сам с собой, второй раз не запрашивается
	benchCandles := pairCandles
	if symbol != c.cfg.BenchmarkSymbol {
		benchCandles, err = retry.DoWithResult(ctx, func() ([]exchange.Candle, error) {
			return c.source.FetchDailyCandles(ctx, c.cfg.BenchmarkSymbol, c.cfg.LookbackDays)
		}, retryCfg)
		if err != nil {
			return nil, wrapFetchErr(c.cfg.BenchmarkSymbol, err)
		}
	}

	metrics, err := c.analyzer.Compute(symbol, pairCandles, benchCandles, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	// Запись до пробуждения ожидающих: последующий get обязан видеть
	// свежую строку (sequential consistency в пределах символа)
	if err := c.store.Upsert(ctx, metrics); err != nil {
		return nil, err
	}

	return metrics, nil
}

// wrapFetchErr сворачивает исчерпанные повторы в ErrSourceUnavailable,
// сохраняя ошибки контекста как есть (их превратит в Timeout лидер)
func wrapFetchErr(symbol string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, symbol, err)
}

// resultLabel - значение label'а result для ComputationsTotal
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, analyzer.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, analyzer.ErrDegenerateBenchmark):
		return "degenerate_benchmark"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "storage_error"
	}
}

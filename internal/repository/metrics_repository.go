package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"leverage/internal/models"
)

// Ошибки репозитория метрик
var (
	ErrMetricsNotFound = errors.New("pair metrics not found")
)

// MetricsRepository - работа с таблицей pair_metrics
//
// Таблица является кеш-хранилищем движка: одна строка на символ,
// переживает рестарт процесса и доступна для операционной инспекции
// обычным SQL (count, размер, выборки) независимо от сервиса.
type MetricsRepository struct {
	db *sql.DB
}

// NewMetricsRepository создает новый экземпляр репозитория
func NewMetricsRepository(db *sql.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// Init создаёт таблицу pair_metrics если её нет
func (r *MetricsRepository) Init(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS pair_metrics (
			symbol TEXT PRIMARY KEY,
			volatility_ratio DOUBLE PRECISION NOT NULL,
			correlation_with_benchmark DOUBLE PRECISION NOT NULL,
			avg_daily_movement DOUBLE PRECISION NOT NULL,
			recommended_leverage INTEGER NOT NULL,
			leverage_adjustment DOUBLE PRECISION NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL,
			ttl_expires_at TIMESTAMPTZ NOT NULL
		)`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to init pair_metrics table: %w", err)
	}
	return nil
}

// Upsert атомарно заменяет строку символа, соблюдая монотонность computed_at.
//
// Запись с computed_at старше уже сохранённой - no-op, НЕ ошибка:
// из двух конкурентных пересчётов победить должен более свежий,
// даже если его запись физически пришла раньше. Условие зашито
// в сам UPDATE, поэтому отдельная блокировка на символ не нужна -
// postgres сериализует конфликт по первичному ключу.
func (r *MetricsRepository) Upsert(ctx context.Context, m *models.PairMetrics) error {
	query := `
		INSERT INTO pair_metrics (symbol, volatility_ratio, correlation_with_benchmark, avg_daily_movement, recommended_leverage, leverage_adjustment, computed_at, ttl_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol) DO UPDATE SET
			volatility_ratio = EXCLUDED.volatility_ratio,
			correlation_with_benchmark = EXCLUDED.correlation_with_benchmark,
			avg_daily_movement = EXCLUDED.avg_daily_movement,
			recommended_leverage = EXCLUDED.recommended_leverage,
			leverage_adjustment = EXCLUDED.leverage_adjustment,
			computed_at = EXCLUDED.computed_at,
			ttl_expires_at = EXCLUDED.ttl_expires_at
		WHERE pair_metrics.computed_at <= EXCLUDED.computed_at`

	_, err := r.db.ExecContext(
		ctx,
		query,
		m.Symbol,
		m.VolatilityRatio,
		m.CorrelationWithBenchmark,
		m.AvgDailyMovement,
		m.RecommendedLeverage,
		m.LeverageAdjustment,
		m.ComputedAt,
		m.TTLExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert metrics for %s: %w", m.Symbol, err)
	}

	return nil
}

// Get возвращает метрики символа или ErrMetricsNotFound
func (r *MetricsRepository) Get(ctx context.Context, symbol string) (*models.PairMetrics, error) {
	query := `
		SELECT symbol, volatility_ratio, correlation_with_benchmark, avg_daily_movement, recommended_leverage, leverage_adjustment, computed_at, ttl_expires_at
		FROM pair_metrics
		WHERE symbol = $1`

	m := &models.PairMetrics{}
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(
		&m.Symbol,
		&m.VolatilityRatio,
		&m.CorrelationWithBenchmark,
		&m.AvgDailyMovement,
		&m.RecommendedLeverage,
		&m.LeverageAdjustment,
		&m.ComputedAt,
		&m.TTLExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMetricsNotFound
		}
		return nil, fmt.Errorf("failed to get metrics for %s: %w", symbol, err)
	}

	return m, nil
}

// ListAll возвращает все сохранённые метрики
func (r *MetricsRepository) ListAll(ctx context.Context) ([]*models.PairMetrics, error) {
	query := `
		SELECT symbol, volatility_ratio, correlation_with_benchmark, avg_daily_movement, recommended_leverage, leverage_adjustment, computed_at, ttl_expires_at
		FROM pair_metrics
		ORDER BY symbol`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	defer rows.Close()

	var result []*models.PairMetrics
	for rows.Next() {
		m := &models.PairMetrics{}
		if err := rows.Scan(
			&m.Symbol,
			&m.VolatilityRatio,
			&m.CorrelationWithBenchmark,
			&m.AvgDailyMovement,
			&m.RecommendedLeverage,
			&m.LeverageAdjustment,
			&m.ComputedAt,
			&m.TTLExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metrics row: %w", err)
		}
		result = append(result, m)
	}

	return result, rows.Err()
}

// ListSymbols возвращает все символы, для которых есть строка метрик
func (r *MetricsRepository) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol FROM pair_metrics ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	return symbols, rows.Err()
}

// ListStale возвращает символы, чей срок свежести истёк к моменту now.
// Используется планировщиком для внеочередных досчётов.
func (r *MetricsRepository) ListStale(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol FROM pair_metrics WHERE ttl_expires_at < $1 ORDER BY symbol`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan stale symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	return symbols, rows.Err()
}

// Count возвращает количество строк метрик (для health-check)
func (r *MetricsRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pair_metrics`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count metrics: %w", err)
	}
	return count, nil
}

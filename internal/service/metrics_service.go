// Package service содержит бизнес-логику фасада запросов:
// кеш-попадание отдаём сразу, промах или устаревание делегируем
// координатору, при неудачном пересчёте допускаем fallback
// на устаревшую строку.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"leverage/internal/engine"
	"leverage/internal/models"
	"leverage/internal/repository"
	"leverage/pkg/utils"
)

// MetricsRepositoryInterface определяет интерфейс репозитория метрик
type MetricsRepositoryInterface interface {
	Get(ctx context.Context, symbol string) (*models.PairMetrics, error)
	ListAll(ctx context.Context) ([]*models.PairMetrics, error)
	ListSymbols(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// ResolverInterface определяет интерфейс координатора вычислений
type ResolverInterface interface {
	Resolve(ctx context.Context, symbol string) (*models.PairMetrics, error)
}

// SweeperInterface определяет интерфейс планировщика для ручного обновления
type SweeperInterface interface {
	RunSweep(ctx context.Context) engine.SweepResult
	Running() bool
}

// PingerInterface - проверка доступности биржи для health-check
type PingerInterface interface {
	Ping(ctx context.Context) error
}

// ServiceConfig - параметры ответов фасада
type ServiceConfig struct {
	// FallbackLeverage - консервативное плечо для пар без метрик
	FallbackLeverage int

	// ResponsePrecision - количество знаков округления float-полей ответа
	ResponsePrecision int
}

// MetricsService предоставляет бизнес-логику для выдачи leverage-метрик.
//
// Политика по каждой паре batch-запроса:
//  1. Невалидный символ -> error-элемент, координатор не вызывается
//  2. Свежая строка кеша -> отдаём её
//  3. Промах или устаревание -> Resolve у координатора
//  4. Resolve не удался, но есть устаревшая строка -> отдаём её с stale=true
//  5. Иначе -> error-элемент с консервативными дефолтами
//
// Ошибки всегда скоупятся одной парой: batch не падает целиком.
type MetricsService struct {
	repo     MetricsRepositoryInterface
	resolver ResolverInterface
	cfg      ServiceConfig
}

// NewMetricsService создает новый экземпляр MetricsService
func NewMetricsService(repo MetricsRepositoryInterface, resolver ResolverInterface, cfg ServiceConfig) *MetricsService {
	if cfg.ResponsePrecision <= 0 {
		cfg.ResponsePrecision = 4
	}
	return &MetricsService{
		repo:     repo,
		resolver: resolver,
		cfg:      cfg,
	}
}

// GetLeverageAdjustments возвращает метрики для набора пар.
//
// Результат - map символ -> *models.PairMetricsEntry либо
// *models.PairErrorEntry; форма каждого элемента зависит от того,
// удалось ли получить метрики пары.
func (s *MetricsService) GetLeverageAdjustments(ctx context.Context, pairs []string) map[string]interface{} {
	response := make(map[string]interface{}, len(pairs))
	now := time.Now().UTC()

	for _, pair := range pairs {
		if _, done := response[pair]; done {
			continue // дубликаты во входном наборе схлопываются
		}
		response[pair] = s.resolvePair(ctx, pair, now)
	}

	return response
}

// resolvePair реализует политику выдачи для одной пары
func (s *MetricsService) resolvePair(ctx context.Context, pair string, now time.Time) interface{} {
	if err := utils.ValidateSymbol(pair); err != nil {
		return s.errorEntry("Malformed pair symbol")
	}

	cached, err := s.repo.Get(ctx, pair)
	if err != nil && !errors.Is(err, repository.ErrMetricsNotFound) {
		log.Printf("Cache read failed for %s: %v", pair, err)
		return s.errorEntry("Storage error")
	}

	if cached != nil && !cached.Stale(now) {
		engine.CacheHits.Inc()
		return s.metricsEntry(cached, false)
	}

	engine.CacheMisses.Inc()

	fresh, err := s.resolver.Resolve(ctx, pair)
	if err == nil {
		return s.metricsEntry(fresh, false)
	}

	log.Printf("Refresh failed for %s: %v", pair, err)

	// Пересчёт не удался: устаревшая строка лучше, чем ничего
	if cached != nil {
		engine.StaleServed.Inc()
		return s.metricsEntry(cached, true)
	}

	return s.errorEntry("Pair not found in database")
}

// metricsEntry строит элемент ответа из строки метрик
func (s *MetricsService) metricsEntry(m *models.PairMetrics, stale bool) *models.PairMetricsEntry {
	p := s.cfg.ResponsePrecision
	return &models.PairMetricsEntry{
		LeverageAdjustment:  utils.Round(m.LeverageAdjustment, p),
		VolatilityRatio:     utils.Round(m.VolatilityRatio, p),
		CorrelationWithETH:  utils.Round(m.CorrelationWithBenchmark, p),
		AvgDailyMovement:    utils.Round(m.AvgDailyMovement, p),
		RecommendedLeverage: m.RecommendedLeverage,
		LastUpdated:         m.ComputedAt.UTC().Format(time.RFC3339),
		Stale:               stale,
	}
}

// errorEntry строит error-элемент с консервативными дефолтами
func (s *MetricsService) errorEntry(msg string) *models.PairErrorEntry {
	return &models.PairErrorEntry{
		Error:               msg,
		LeverageAdjustment:  1.0,
		RecommendedLeverage: s.cfg.FallbackLeverage,
	}
}

// ListPairs возвращает все символы, для которых есть метрики
func (s *MetricsService) ListPairs(ctx context.Context) ([]string, error) {
	symbols, err := s.repo.ListSymbols(ctx)
	if err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = []string{}
	}
	return symbols, nil
}

// ListAllMetrics возвращает все сохранённые строки метрик
func (s *MetricsService) ListAllMetrics(ctx context.Context) ([]*models.PairMetrics, error) {
	return s.repo.ListAll(ctx)
}

// BroadcasterInterface уведомляет WebSocket клиентов об обновлениях
type BroadcasterInterface interface {
	BroadcastMetricsUpdate(symbols []string, at time.Time)
}

// UpdateService запускает ручное обновление метрик
type UpdateService struct {
	sweeper  SweeperInterface
	resolver ResolverInterface
	hub      BroadcasterInterface // может быть nil
}

// NewUpdateService создает новый экземпляр UpdateService
func NewUpdateService(sweeper SweeperInterface, resolver ResolverInterface, hub BroadcasterInterface) *UpdateService {
	return &UpdateService{sweeper: sweeper, resolver: resolver, hub: hub}
}

// UpdateAll пересчитывает все отслеживаемые пары (полный sweep).
// Возвращает количество обновлённых пар и флаг пропуска.
func (u *UpdateService) UpdateAll(ctx context.Context) (updated int, skipped bool) {
	result := u.sweeper.RunSweep(ctx)
	return len(result.Updated), result.Skipped
}

// UpdatePairs пересчитывает только указанные пары.
// Невалидные и неудавшиеся символы пропускаются.
func (u *UpdateService) UpdatePairs(ctx context.Context, pairs []string) (updated int) {
	var refreshed []string
	for _, pair := range pairs {
		if err := utils.ValidateSymbol(pair); err != nil {
			log.Printf("Manual update: skipping malformed symbol %q", pair)
			continue
		}
		if _, err := u.resolver.Resolve(ctx, pair); err != nil {
			log.Printf("Manual update: failed to refresh %s: %v", pair, err)
			continue
		}
		refreshed = append(refreshed, pair)
	}

	if u.hub != nil && len(refreshed) > 0 {
		u.hub.BroadcastMetricsUpdate(refreshed, time.Now().UTC())
	}

	return len(refreshed)
}

// HealthService собирает статус компонентов для /health
type HealthService struct {
	repo    MetricsRepositoryInterface
	pinger  PingerInterface
	sweeper SweeperInterface
}

// NewHealthService создает новый экземпляр HealthService
func NewHealthService(repo MetricsRepositoryInterface, pinger PingerInterface, sweeper SweeperInterface) *HealthService {
	return &HealthService{repo: repo, pinger: pinger, sweeper: sweeper}
}

// Check возвращает статус системы.
//
// БД - критичная зависимость: её недоступность даёт unhealthy.
// Биржа - нет: при недоступной бирже сервис продолжает отдавать кеш,
// поэтому статус остаётся healthy с exchange_status=disconnected.
func (h *HealthService) Check(ctx context.Context) *models.HealthStatus {
	status := &models.HealthStatus{
		Status:    models.HealthStatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	count, err := h.repo.Count(ctx)
	if err != nil {
		status.Status = models.HealthStatusUnhealthy
		status.Error = err.Error()
		return status
	}
	status.DatabasePairs = count

	status.ExchangeStatus = models.ExchangeStatusConnected
	if h.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := h.pinger.Ping(pingCtx); err != nil {
			status.ExchangeStatus = models.ExchangeStatusDisconnected
		}
		cancel()
	}

	if h.sweeper != nil {
		status.SchedulerRunning = h.sweeper.Running()
	}

	return status
}

package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"leverage/internal/config"
	"leverage/internal/models"
	"leverage/pkg/utils"
)

// Resolver - интерфейс координатора, нужный планировщику.
// Выделен чтобы sweep тестировался на фейке без сети и БД.
type Resolver interface {
	Resolve(ctx context.Context, symbol string) (*models.PairMetrics, error)
}

// Broadcaster отправляет уведомление об обновлённых метриках
// подключенным WebSocket клиентам
type Broadcaster interface {
	BroadcastMetricsUpdate(symbols []string, at time.Time)
}

// SweepResult - итог одного прохода по отслеживаемым символам
type SweepResult struct {
	Updated []string // успешно пересчитанные символы
	Failed  []string // символы, пересчёт которых не удался
	Skipped bool     // проход пропущен: предыдущий ещё идёт
}

// Scheduler периодически пересчитывает метрики всех отслеживаемых пар,
// чтобы чтения в steady state были попаданиями в кеш.
//
// Режимы расписания:
//   - RefreshAt != "": ежедневно в HH:MM в таймзоне RefreshTZ
//   - иначе: каждые RefreshInterval
//
// Перекрытия исключены: если к моменту следующего срабатывания
// предыдущий проход ещё идёт, срабатывание пропускается и логируется,
// в очередь ничего не ставится.
type Scheduler struct {
	cfg      config.EngineConfig
	resolver Resolver
	store    Store
	hub      Broadcaster // может быть nil
	loc      *time.Location

	sweeping int32 // atomic: 1 пока идёт проход
	running  int32 // atomic: 1 после Start до Stop

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler создаёт планировщик.
//
// Таймзона расписания валидируется конфигом; здесь её разбор
// уже не может упасть, но на всякий случай откатываемся в UTC.
func NewScheduler(cfg config.EngineConfig, resolver Resolver, store Store, hub Broadcaster) *Scheduler {
	loc, err := time.LoadLocation(cfg.RefreshTZ)
	if err != nil {
		log.Printf("Unknown timezone %q, falling back to UTC", cfg.RefreshTZ)
		loc = time.UTC
	}

	return &Scheduler{
		cfg:      cfg,
		resolver: resolver,
		store:    store,
		hub:      hub,
		loc:      loc,
		stopCh:   make(chan struct{}),
	}
}

// Start запускает фоновый цикл планировщика
func (s *Scheduler) Start() {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return
	}

	s.wg.Add(1)
	go s.loop()

	if s.cfg.RefreshAt != "" {
		log.Printf("Scheduler started: daily at %s %s", s.cfg.RefreshAt, s.loc)
	} else {
		log.Printf("Scheduler started: every %v", s.cfg.RefreshInterval)
	}
}

// Stop останавливает планировщик и дожидается завершения цикла.
// Идущий sweep дорабатывает текущий символ и прерывается.
func (s *Scheduler) Stop() {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	log.Println("Scheduler stopped")
}

// Running сообщает, запущен ли планировщик (для health-check)
func (s *Scheduler) Running() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// loop - единственный логический таймер планировщика
func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		wait := time.Until(s.nextRun(time.Now()))

		timer := time.NewTimer(wait)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithCancel(context.Background())

		// Отмена sweep'а при Stop, не дожидаясь его конца
		stopWatch := make(chan struct{})
		go func() {
			select {
			case <-s.stopCh:
				cancel()
			case <-stopWatch:
			}
		}()

		s.RunSweep(ctx)

		close(stopWatch)
		cancel()

		select {
		case <-s.stopCh:
			return
		default:
		}
	}
}

// nextRun возвращает момент следующего срабатывания
func (s *Scheduler) nextRun(now time.Time) time.Time {
	if s.cfg.RefreshAt != "" {
		hour, minute, err := utils.ParseClock(s.cfg.RefreshAt)
		if err == nil {
			return utils.NextDailyRun(now, hour, minute, s.loc)
		}
		log.Printf("Invalid REFRESH_AT %q, falling back to interval mode: %v", s.cfg.RefreshAt, err)
	}
	return now.Add(s.cfg.RefreshInterval)
}

// RunSweep выполняет один проход по всем отслеживаемым символам.
//
// Вызывается циклом планировщика и вручную (начальный расчёт при
// старте, POST /update-metrics). Гонка между вызовами разрешается
// atomic-флагом: второй одновременный проход пропускается.
//
// Ошибка отдельного символа логируется и НЕ прерывает проход -
// InsufficientHistory у свежелистингованной пары не должна лишать
// обновления остальные (изоляция частичных отказов).
func (s *Scheduler) RunSweep(ctx context.Context) SweepResult {
	if !atomic.CompareAndSwapInt32(&s.sweeping, 0, 1) {
		log.Println("Sweep skipped: previous sweep still running")
		SweepsSkipped.Inc()
		return SweepResult{Skipped: true}
	}
	defer atomic.StoreInt32(&s.sweeping, 0)

	start := time.Now()
	symbols := s.trackedSymbols(ctx)
	log.Printf("Starting metrics sweep for %d symbols", len(symbols))

	var result SweepResult
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			log.Printf("Sweep interrupted after %d symbols", len(result.Updated)+len(result.Failed))
			break
		}

		if _, err := s.resolver.Resolve(ctx, symbol); err != nil {
			log.Printf("Sweep: failed to refresh %s: %v", symbol, err)
			SweepSymbolFailures.Inc()
			result.Failed = append(result.Failed, symbol)
			continue
		}
		result.Updated = append(result.Updated, symbol)
	}

	SweepDuration.Observe(time.Since(start).Seconds())
	log.Printf("Sweep completed in %v: %d updated, %d failed",
		time.Since(start).Round(time.Millisecond), len(result.Updated), len(result.Failed))

	if s.hub != nil && len(result.Updated) > 0 {
		s.hub.BroadcastMetricsUpdate(result.Updated, time.Now().UTC())
	}

	return result
}

// trackedSymbols - объединение сконфигурированных пар и символов,
// уже присутствующих в хранилище (добавленные вручную пары
// продолжают обновляться по расписанию)
func (s *Scheduler) trackedSymbols(ctx context.Context) []string {
	seen := make(map[string]struct{}, len(s.cfg.Pairs))
	symbols := make([]string, 0, len(s.cfg.Pairs))

	for _, p := range s.cfg.Pairs {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			symbols = append(symbols, p)
		}
	}

	stored, err := s.store.ListSymbols(ctx)
	if err != nil {
		log.Printf("Sweep: failed to list stored symbols, using configured pairs only: %v", err)
		return symbols
	}
	for _, p := range stored {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			symbols = append(symbols, p)
		}
	}

	return symbols
}

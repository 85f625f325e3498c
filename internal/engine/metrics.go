package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики движка расчёта
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений (рост timeout'ов, пропуски sweep'ов)
// - Анализ попаданий в кеш в production

// ============ Вычисления ============

// ComputationsTotal - количество завершённых циклов вычисления по результатам.
// result: success | insufficient_history | degenerate_benchmark |
// source_unavailable | timeout | storage_error
var ComputationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "leverage",
		Subsystem: "engine",
		Name:      "computations_total",
		Help:      "Total number of completed metric computations by result",
	},
	[]string{"result"},
)

// ComputationDuration - длительность одного цикла fetch+compute+store.
// Buckets подобраны под сетевые запросы к бирже (0.1s - 30s)
var ComputationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "leverage",
		Subsystem: "engine",
		Name:      "computation_duration_seconds",
		Help:      "Duration of a full fetch+compute+store cycle in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

// SingleflightShared - количество запросов, присоединившихся
// к уже летящему вычислению вместо запуска собственного
var SingleflightShared = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "leverage",
		Subsystem: "engine",
		Name:      "singleflight_shared_total",
		Help:      "Requests that attached to an in-flight computation",
	},
)

// ============ Кеш ============

// CacheHits - чтения, обслуженные свежей строкой кеша
var CacheHits = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "leverage",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Reads served from a fresh cached row",
	},
)

// CacheMisses - чтения, потребовавшие пересчёта (нет строки или строка устарела)
var CacheMisses = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "leverage",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Reads that required a recomputation (missing or stale row)",
	},
)

// StaleServed - ответы, отданные устаревшей строкой после неудачного пересчёта
var StaleServed = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "leverage",
		Subsystem: "cache",
		Name:      "stale_served_total",
		Help:      "Responses served from a stale row after a failed refresh",
	},
)

// ============ Планировщик ============

// SweepDuration - длительность полного прохода по отслеживаемым символам
var SweepDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "leverage",
		Subsystem: "scheduler",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of a full refresh sweep in seconds",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
)

// SweepsSkipped - пропуски запланированных sweep'ов из-за ещё идущего прохода
var SweepsSkipped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "leverage",
		Subsystem: "scheduler",
		Name:      "sweeps_skipped_total",
		Help:      "Scheduled sweeps skipped because the previous one was still running",
	},
)

// SweepSymbolFailures - количество символов, не пересчитанных в ходе sweep'ов
var SweepSymbolFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "leverage",
		Subsystem: "scheduler",
		Name:      "sweep_symbol_failures_total",
		Help:      "Per-symbol failures during refresh sweeps",
	},
)

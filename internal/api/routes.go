package api

import (
	"net/http"

	"leverage/internal/api/handlers"
	"leverage/internal/api/middleware"
	"leverage/internal/config"
	"leverage/internal/service"
	"leverage/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Security       config.SecurityConfig
	MetricsService *service.MetricsService
	UpdateService  *service.UpdateService
	HealthService  *service.HealthService
	Hub            *websocket.Hub
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── POST /leverage-adjustment - batch метрики для набора пар (auth)
//	├── POST /update-metrics - принудительный пересчёт (auth)
//	└── GET  /pairs - список пар с сохранёнными метриками
//
// /health - статус системы (без auth, для probes)
// /metrics - Prometheus метрики
// /ws/stream - WebSocket для уведомлений о пересчётах
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. APIKeyAuth (только для защищённых маршрутов)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var leverageHandler *handlers.LeverageHandler
	var pairsHandler *handlers.PairsHandler
	if deps != nil && deps.MetricsService != nil {
		leverageHandler = handlers.NewLeverageHandler(deps.MetricsService)
		pairsHandler = handlers.NewPairsHandler(deps.MetricsService)
	}

	var updateHandler *handlers.UpdateHandler
	if deps != nil && deps.UpdateService != nil {
		updateHandler = handlers.NewUpdateHandler(deps.UpdateService)
	}

	var healthHandler *handlers.HealthHandler
	if deps != nil && deps.HealthService != nil {
		healthHandler = handlers.NewHealthHandler(deps.HealthService)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Защищённый subrouter: мутирующие и дорогие endpoints требуют ключ
	protected := api.NewRoute().Subrouter()
	if deps != nil {
		protected.Use(middleware.APIKeyAuth(deps.Security))
	}

	if leverageHandler != nil {
		protected.HandleFunc("/leverage-adjustment", leverageHandler.GetLeverageAdjustments).Methods("POST")
	}

	if updateHandler != nil {
		protected.HandleFunc("/update-metrics", updateHandler.UpdateMetrics).Methods("POST")
	}

	if pairsHandler != nil {
		api.HandleFunc("/pairs", pairsHandler.ListPairs).Methods("GET")
	}

	// Health check (без auth, используется probes и балансировщиками)
	if healthHandler != nil {
		router.HandleFunc("/health", healthHandler.HealthCheck).Methods("GET")
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// WebSocket для real-time уведомлений об обновлениях
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	return router
}

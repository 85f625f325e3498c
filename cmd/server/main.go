package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leverage/internal/api"
	"leverage/internal/config"
	"leverage/internal/engine"
	"leverage/internal/exchange"
	"leverage/internal/repository"
	"leverage/internal/service"
	"leverage/internal/websocket"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.DSNWithoutPassword())

	// Инициализация репозитория и схемы
	metricsRepo := repository.NewMetricsRepository(db)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	if err := metricsRepo.Init(initCtx); err != nil {
		cancelInit()
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	cancelInit()

	// Источник рыночных данных
	source, err := exchange.NewSource(cfg.Exchange)
	if err != nil {
		log.Fatalf("Failed to create market data source: %v", err)
	}
	log.Printf("Market data source: %s", source.GetName())

	// Координатор вычислений (single-flight на символ)
	coordinator := engine.NewCoordinator(cfg.Engine, source, metricsRepo)

	// WebSocket hub для уведомлений об обновлениях
	hub := websocket.NewHub()
	go hub.Run()

	// Планировщик периодических пересчётов
	scheduler := engine.NewScheduler(cfg.Engine, coordinator, metricsRepo, hub)

	// Инициализация сервисов
	metricsService := service.NewMetricsService(metricsRepo, coordinator, service.ServiceConfig{
		FallbackLeverage: cfg.Engine.FallbackLeverage,
	})
	updateService := service.NewUpdateService(scheduler, coordinator, hub)
	healthService := service.NewHealthService(metricsRepo, source, scheduler)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		Security:       cfg.Security,
		MetricsService: metricsService,
		UpdateService:  updateService,
		HealthService:  healthService,
		Hub:            hub,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// Первичный прогрев кеша: не блокируем старт сервера,
	// запросы до окончания прогрева обслужит single-flight
	go func() {
		result := scheduler.RunSweep(context.Background())
		log.Printf("Initial sweep finished: %d updated, %d failed",
			len(result.Updated), len(result.Failed))
	}()

	scheduler.Start()

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // batch с холодным кешем может считаться долго
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

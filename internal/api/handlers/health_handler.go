package handlers

import (
	"context"
	"net/http"

	"leverage/internal/models"
)

// HealthService - интерфейс health-check сервиса
type HealthService interface {
	Check(ctx context.Context) *models.HealthStatus
}

// HealthHandler обрабатывает health-check запросы
type HealthHandler struct {
	service HealthService
}

// NewHealthHandler создает новый экземпляр HealthHandler
func NewHealthHandler(service HealthService) *HealthHandler {
	return &HealthHandler{service: service}
}

// HealthCheck возвращает статус системы
//
// GET /health
// При недоступной БД возвращает 503; недоступная биржа статус не роняет,
// сервис продолжает отдавать кешированные метрики.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.Check(r.Context())

	code := http.StatusOK
	if status.Status == models.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}

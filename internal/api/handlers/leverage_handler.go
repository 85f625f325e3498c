package handlers

import (
	"context"
	"net/http"
)

// LeverageService - интерфейс сервиса leverage-метрик
type LeverageService interface {
	GetLeverageAdjustments(ctx context.Context, pairs []string) map[string]interface{}
}

// LeverageHandler обрабатывает batch-запросы метрик
type LeverageHandler struct {
	service LeverageService
}

// NewLeverageHandler создает новый экземпляр LeverageHandler
func NewLeverageHandler(service LeverageService) *LeverageHandler {
	return &LeverageHandler{service: service}
}

// leverageRequest - тело запроса POST /api/v1/leverage-adjustment
type leverageRequest struct {
	Pairs []string `json:"pairs"`
}

// GetLeverageAdjustments возвращает метрики для набора пар
//
// POST /api/v1/leverage-adjustment
// Body: {"pairs": ["BTC/USDT:USDT", "ETH/USDT:USDT"]}
//
// Ответ - map символ -> метрики либо error-элемент с консервативными
// дефолтами. Один плохой символ не валит весь batch.
func (h *LeverageHandler) GetLeverageAdjustments(w http.ResponseWriter, r *http.Request) {
	var req leverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Pairs) == 0 {
		writeError(w, http.StatusBadRequest, "Field 'pairs' must be a non-empty list")
		return
	}

	result := h.service.GetLeverageAdjustments(r.Context(), req.Pairs)
	writeJSON(w, http.StatusOK, result)
}

package handlers

import (
	"context"
	"net/http"
)

// UpdateService - интерфейс ручного обновления метрик
type UpdateService interface {
	UpdateAll(ctx context.Context) (updated int, skipped bool)
	UpdatePairs(ctx context.Context, pairs []string) (updated int)
}

// UpdateHandler обрабатывает ручной пересчёт метрик
type UpdateHandler struct {
	service UpdateService
}

// NewUpdateHandler создает новый экземпляр UpdateHandler
func NewUpdateHandler(service UpdateService) *UpdateHandler {
	return &UpdateHandler{service: service}
}

// updateRequest - тело запроса POST /api/v1/update-metrics.
// Пустое тело или пустой список pairs означает полный sweep.
type updateRequest struct {
	Pairs []string `json:"pairs"`
}

// updateResponse - тело ответа POST /api/v1/update-metrics
type updateResponse struct {
	Status       string `json:"status"`
	PairsUpdated int    `json:"pairs_updated"`
}

// UpdateMetrics принудительно пересчитывает метрики
//
// POST /api/v1/update-metrics
// Body: {} или {"pairs": ["BTC/USDT:USDT"]}
func (h *UpdateHandler) UpdateMetrics(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if len(req.Pairs) > 0 {
		updated := h.service.UpdatePairs(r.Context(), req.Pairs)
		writeJSON(w, http.StatusOK, updateResponse{
			Status:       "completed",
			PairsUpdated: updated,
		})
		return
	}

	updated, skipped := h.service.UpdateAll(r.Context())
	status := "completed"
	if skipped {
		// Sweep уже идёт: не запускаем второй параллельно
		status = "already_running"
	}

	writeJSON(w, http.StatusOK, updateResponse{
		Status:       status,
		PairsUpdated: updated,
	})
}

package handlers

import (
	"context"
	"log"
	"net/http"
)

// PairsService - интерфейс для списка отслеживаемых пар
type PairsService interface {
	ListPairs(ctx context.Context) ([]string, error)
}

// PairsHandler обрабатывает запросы списка пар
type PairsHandler struct {
	service PairsService
}

// NewPairsHandler создает новый экземпляр PairsHandler
func NewPairsHandler(service PairsService) *PairsHandler {
	return &PairsHandler{service: service}
}

// pairsResponse - тело ответа GET /api/v1/pairs
type pairsResponse struct {
	Pairs []string `json:"pairs"`
	Count int      `json:"count"`
}

// ListPairs возвращает все символы, для которых есть сохранённые метрики
//
// GET /api/v1/pairs
func (h *PairsHandler) ListPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.service.ListPairs(r.Context())
	if err != nil {
		log.Printf("Error listing pairs: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list pairs")
		return
	}

	writeJSON(w, http.StatusOK, pairsResponse{
		Pairs: pairs,
		Count: len(pairs),
	})
}

package websocket

import "time"

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeMetricsUpdate - метрики пар пересчитаны
	// Отправляется после каждого успешного sweep'а или ручного обновления
	MessageTypeMetricsUpdate MessageType = "metricsUpdate"
)

// MetricsUpdateMessage - уведомление об обновлённых метриках.
//
// Содержит только список символов: клиент, которому нужны сами
// значения, забирает их через POST /api/v1/leverage-adjustment.
// Это сознательно держит сообщения маленькими при больших наборах пар.
type MetricsUpdateMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Symbols   []string    `json:"symbols"`
	Count     int         `json:"count"`
}

// Package exchange предоставляет доступ к публичным рыночным данным бирж.
package exchange

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Ошибки источника данных
var (
	// ErrNoData - биржа ответила успешно, но свечей для символа нет
	// (неизвестный символ или слишком молодой листинг)
	ErrNoData = errors.New("no candle data for symbol")

	// ErrBadResponse - ответ биржи не удалось разобрать
	ErrBadResponse = errors.New("malformed exchange response")
)

// Candle представляет одну дневную свечу
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// MarketDataSource определяет унифицированный интерфейс источника
// исторических цен. Движок работает только через этот интерфейс;
// конкретная биржа выбирается фабрикой по конфигурации.
type MarketDataSource interface {
	// GetName возвращает имя биржи
	GetName() string

	// FetchDailyCandles возвращает до days последних ДНЕВНЫХ свечей
	// символа в хронологическом порядке (старые первыми).
	FetchDailyCandles(ctx context.Context, symbol string, days int) ([]Candle, error)

	// Ping проверяет доступность биржи (для health-check)
	Ping(ctx context.Context) error
}

// NormalizeSymbol переводит символ из формата "BTC/USDT:USDT"
// в биржевой формат "BTCUSDT".
//
// Суффикс ":SETTLE" (валюта расчёта перпетуала) и разделитель "/"
// отбрасываются - у Binance futures и Bybit linear символ слитный.
func NormalizeSymbol(symbol string) string {
	if idx := strings.IndexByte(symbol, ':'); idx >= 0 {
		symbol = symbol[:idx]
	}
	return strings.ReplaceAll(symbol, "/", "")
}

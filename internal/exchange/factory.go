package exchange

import (
	"fmt"
	"strings"

	"leverage/internal/config"
	"leverage/pkg/ratelimit"
)

// NewSource создаёт источник рыночных данных по конфигурации.
//
// Поддерживаемые биржи: binance (дефолт), bybit.
// Каждый источник получает собственный rate limiter - лимиты
// публичных API считаются по IP и по бирже.
func NewSource(cfg config.ExchangeConfig) (MarketDataSource, error) {
	client := NewHTTPClient(DefaultHTTPClientConfig())
	limiter := ratelimit.NewRateLimiter(cfg.RateLimit, cfg.Burst)

	switch strings.ToLower(cfg.Name) {
	case "", "binance":
		return NewBinanceSource(client, limiter), nil
	case "bybit":
		return NewBybitSource(client, limiter), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", cfg.Name)
	}
}

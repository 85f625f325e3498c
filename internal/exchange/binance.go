package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"leverage/pkg/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	binanceBaseURL = "https://fapi.binance.com"

	// Binance отдаёт максимум 1500 свечей за запрос; для дневного
	// окна этого движка хватает одного запроса
	binanceMaxLimit = 1500
)

// BinanceSource - источник исторических цен с Binance USDT-M futures.
// Использует только публичные endpoint'ы, API ключи не требуются.
type BinanceSource struct {
	http    *HTTPClient
	limiter *ratelimit.RateLimiter
	baseURL string
}

// NewBinanceSource создаёт источник данных Binance
func NewBinanceSource(client *HTTPClient, limiter *ratelimit.RateLimiter) *BinanceSource {
	return &BinanceSource{
		http:    client,
		limiter: limiter,
		baseURL: binanceBaseURL,
	}
}

// GetName возвращает имя биржи
func (b *BinanceSource) GetName() string {
	return "binance"
}

// FetchDailyCandles возвращает последние days дневных свечей символа.
//
// Binance формат ответа - массив массивов:
//
//	[[openTime, "open", "high", "low", "close", "volume", closeTime, ...], ...]
//
// числа цен приходят строками, времена - миллисекундными числами.
// Свечи уже отсортированы от старых к новым.
func (b *BinanceSource) FetchDailyCandles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	if days > binanceMaxLimit {
		days = binanceMaxLimit
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=1d&limit=%d",
		b.baseURL, NormalizeSymbol(symbol), days)

	body, err := b.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("binance klines request failed: %w", err)
	}

	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	candles := make([]Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("%w: kline with %d fields", ErrBadResponse, len(k))
		}

		openTime, ok := k[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric open time", ErrBadResponse)
		}

		c := Candle{Timestamp: time.UnixMilli(int64(openTime)).UTC()}
		fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		for i, dst := range fields {
			v, err := parsePriceField(k[i+1])
			if err != nil {
				return nil, err
			}
			*dst = v
		}

		candles = append(candles, c)
	}

	return candles, nil
}

// Ping проверяет доступность биржи
func (b *BinanceSource) Ping(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.http.Get(ctx, b.baseURL+"/fapi/v1/ping")
	return err
}

// parsePriceField разбирает ценовое поле kline-ответа.
// Binance присылает цены строками, но защищаемся и от числового варианта.
func parsePriceField(v interface{}) (float64, error) {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad price %q", ErrBadResponse, val)
		}
		return f, nil
	case float64:
		return val, nil
	default:
		return 0, fmt.Errorf("%w: unexpected price type %T", ErrBadResponse, v)
	}
}

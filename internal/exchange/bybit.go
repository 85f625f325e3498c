package exchange

import (
	"context"
	"fmt"
	"time"
)

const (
	bybitBaseURL = "https://api.bybit.com"

	// Bybit v5 отдаёт максимум 1000 свечей за запрос
	bybitMaxLimit = 1000
)

// BybitSource - источник исторических цен с Bybit linear perpetuals (v5 API).
// Использует только публичные endpoint'ы.
type BybitSource struct {
	http    *HTTPClient
	limiter interface {
		Wait(ctx context.Context) error
	}
	baseURL string
}

// bybitKlineResponse - обёртка ответа Bybit v5
//
// Формат:
//
//	{"retCode":0,"retMsg":"OK","result":{"list":[["ts","open","high","low","close","volume","turnover"],...]}}
//
// Все значения в list - строки, список отсортирован от НОВЫХ к старым.
type bybitKlineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]string `json:"list"`
	} `json:"result"`
}

// NewBybitSource создаёт источник данных Bybit
func NewBybitSource(client *HTTPClient, limiter interface {
	Wait(ctx context.Context) error
}) *BybitSource {
	return &BybitSource{
		http:    client,
		limiter: limiter,
		baseURL: bybitBaseURL,
	}
}

// GetName возвращает имя биржи
func (b *BybitSource) GetName() string {
	return "bybit"
}

// FetchDailyCandles возвращает последние days дневных свечей символа
// в хронологическом порядке (ответ Bybit разворачивается).
func (b *BybitSource) FetchDailyCandles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	if days > bybitMaxLimit {
		days = bybitMaxLimit
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v5/market/kline?category=linear&symbol=%s&interval=D&limit=%d",
		b.baseURL, NormalizeSymbol(symbol), days)

	body, err := b.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("bybit kline request failed: %w", err)
	}

	var resp bybitKlineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit error %d: %s", resp.RetCode, resp.RetMsg)
	}

	list := resp.Result.List
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	// Разворачиваем: Bybit присылает новые свечи первыми
	candles := make([]Candle, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		k := list[i]
		if len(k) < 6 {
			return nil, fmt.Errorf("%w: kline with %d fields", ErrBadResponse, len(k))
		}

		ts, err := parsePriceField(k[0])
		if err != nil {
			return nil, err
		}

		c := Candle{Timestamp: time.UnixMilli(int64(ts)).UTC()}
		fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		for j, dst := range fields {
			v, err := parsePriceField(k[j+1])
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
func (b *BybitSource) Ping(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.http.Get(ctx, b.baseURL+"/v5/market/time")
	return err
}

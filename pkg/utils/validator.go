package utils

import (
	"errors"
	"fmt"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности символов инструментов до того, как они
// попадут в координатор вычислений или в запросы к бирже.
//
// Принятый формат символа (как у деривативных пар ccxt-стиля):
//   BASE/QUOTE          - спотовая пара,  например "BTC/USDT"
//   BASE/QUOTE:SETTLE   - перпетуал,      например "BTC/USDT:USDT"
//
// Компоненты: только заглавные латинские буквы и цифры, 2-12 символов.

// ErrMalformedSymbol возвращается для символов, не прошедших валидацию
var ErrMalformedSymbol = errors.New("malformed symbol")

const (
	minComponentLen = 2
	maxComponentLen = 12
)

// ValidateSymbol проверяет формат символа инструмента.
//
// Возвращает nil для корректного символа или ошибку, оборачивающую
// ErrMalformedSymbol (проверяется через errors.Is).
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrMalformedSymbol)
	}

	pair := symbol
	if idx := strings.IndexByte(symbol, ':'); idx >= 0 {
		pair = symbol[:idx]
		settle := symbol[idx+1:]
		if !isValidComponent(settle) {
			return fmt.Errorf("%w: bad settle currency in %q", ErrMalformedSymbol, symbol)
		}
	}

	base, quote, found := strings.Cut(pair, "/")
	if !found {
		return fmt.Errorf("%w: %q is not in BASE/QUOTE form", ErrMalformedSymbol, symbol)
	}
	if !isValidComponent(base) {
		return fmt.Errorf("%w: bad base currency in %q", ErrMalformedSymbol, symbol)
	}
	if !isValidComponent(quote) {
		return fmt.Errorf("%w: bad quote currency in %q", ErrMalformedSymbol, symbol)
	}

	return nil
}

// isValidComponent проверяет компонент символа (base, quote или settle)
func isValidComponent(s string) bool {
	if len(s) < minComponentLen || len(s) > maxComponentLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

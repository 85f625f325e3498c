package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Вспомогательные функции для планирования фоновых пересчётов
// и для выравнивания дневных свечей по границам суток.
//
// Функции:
// - ParseClock: разбор строки "HH:MM"
// - NextDailyRun: ближайший момент "HH:MM" в заданной таймзоне
// - DayKey: ключ дня (UTC) для выравнивания двух ценовых рядов
// - GetDayStartFrom: начало суток в UTC

// ParseClock разбирает строку времени вида "HH:MM" (24-часовой формат).
//
// Возвращает:
//   - час [0, 23] и минуту [0, 59]
//   - ошибку если формат не соответствует или значения вне диапазона
//
// Примеры:
//   - ParseClock("02:00") = 2, 0, nil
//   - ParseClock("23:59") = 23, 59, nil
//   - ParseClock("24:00") = ошибка
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock value %q, expected HH:MM", value)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", value, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", value, err)
	}

	if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour out of range in %q: %d", value, hour)
	}
	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute out of range in %q: %d", value, minute)
	}

	return hour, minute, nil
}

// NextDailyRun возвращает ближайший будущий момент "hour:minute"
// в указанной таймзоне.
//
// Если сегодняшний момент уже прошёл (или наступает прямо сейчас),
// возвращается завтрашний. AddDate корректно обрабатывает переходы
// на летнее/зимнее время.
//
// Параметры:
//   - now: текущее время (передаётся явно для тестируемости)
//   - hour, minute: целевое время суток
//   - loc: таймзона расписания
func NextDailyRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// DayKey возвращает ключ суток в формате "2006-01-02" (UTC).
//
// Используется для выравнивания дневных свечей пары и бенчмарка:
// свечи с одинаковым DayKey считаются одной торговой датой,
// даже если биржи проставляют разные внутрисуточные timestamp'ы.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// GetDayStartFrom возвращает начало суток (00:00:00 UTC) для указанного времени.
func GetDayStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

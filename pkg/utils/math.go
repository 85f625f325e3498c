package utils

import (
	"math"
)

// math.go - математические утилиты для расчёта риск-метрик
//
// Назначение:
// Вспомогательные статистические функции для анализа ценовых рядов.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - DailyReturns: дневные доходности из ряда цен закрытия
// - Mean / MeanAbs: среднее и среднее абсолютное значение
// - SampleStdDev: выборочное стандартное отклонение (n-1)
// - PearsonCorrelation: корреляция Пирсона двух рядов
// - Clamp / ClampInt: ограничение значения диапазоном
// - Round: округление до заданного количества знаков

// DailyReturns вычисляет дневные доходности из ряда цен закрытия.
//
// Формула:
//
//	r[i] = price[i] / price[i-1] - 1
//
// Параметры:
//   - prices: ряд цен закрытия в хронологическом порядке
//
// Возвращает:
//   - Ряд доходностей длиной len(prices)-1
//   - Пустой slice если цен меньше двух
//   - Нулевая предыдущая цена даёт доходность 0 (защита от деления на ноль)
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	return returns
}

// Mean возвращает среднее арифметическое ряда.
// Для пустого ряда возвращает 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MeanAbs возвращает среднее абсолютное значение ряда.
//
// Используется для расчёта среднего дневного движения:
// avg_daily_movement = mean(|r|) по доходностям пары.
func MeanAbs(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += math.Abs(v)
	}
	return sum / float64(len(values))
}

// SampleStdDev вычисляет ВЫБОРОЧНОЕ стандартное отклонение (делитель n-1).
//
// Фиксированный выбор для всего движка: выборочная дисперсия, а не
// популяционная. Ряд доходностей за окно наблюдения - это выборка из
// генеральной совокупности движений цены.
//
// Возвращает:
//   - 0 если в ряду меньше двух точек
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// PearsonCorrelation вычисляет корреляцию Пирсона двух выровненных рядов.
//
// Формула:
//
//	corr = cov(x, y) / (stddev(x) * stddev(y))
//
// Параметры:
//   - x, y: выровненные ряды одинаковой длины
//
// Возвращает:
//   - Значение в диапазоне [-1, 1]
//   - 0 если ряды разной длины, короче двух точек,
//     или у одного из рядов нулевая дисперсия (вместо деления на ноль)
func PearsonCorrelation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}

	corr := cov / math.Sqrt(varX*varY)

	// Защита от накопленной погрешности float64: результат строго в [-1, 1]
	return Clamp(corr, -1, 1)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampInt ограничивает целое значение диапазоном [min, max].
func ClampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Round округляет значение до указанного количества десятичных знаков.
//
// Примеры:
//   - Round(1.23456, 4) = 1.2346
//   - Round(0.85001, 4) = 0.85
func Round(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

package utils

import (
	"testing"
	"time"
)

// ============================================================
// Тесты ParseClock
// ============================================================

func TestParseClock(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{"default schedule", "02:00", 2, 0, false},
		{"midnight", "00:00", 0, 0, false},
		{"end of day", "23:59", 23, 59, false},
		{"midday", "12:30", 12, 30, false},

		// Невалидные значения
		{"hour out of range", "24:00", 0, 0, true},
		{"minute out of range", "12:60", 0, 0, true},
		{"negative hour", "-1:00", 0, 0, true},
		{"no colon", "1200", 0, 0, true},
		{"too many parts", "12:00:00", 0, 0, true},
		{"not a number", "ab:cd", 0, 0, true},
		{"empty", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseClock(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseClock(%q) expected error, got %d:%d", tt.value, hour, minute)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) unexpected error: %v", tt.value, err)
			}
			if hour != tt.wantHour || minute != tt.wantMinute {
				t.Errorf("ParseClock(%q) = %d:%d, want %d:%d", tt.value, hour, minute, tt.wantHour, tt.wantMinute)
			}
		})
	}
}

// ============================================================
// Тесты NextDailyRun
// ============================================================

func TestNextDailyRun(t *testing.T) {
	utc := time.UTC

	tests := []struct {
		name     string
		now      time.Time
		hour     int
		minute   int
		expected time.Time
	}{
		{
			"before today's run",
			time.Date(2024, 3, 10, 1, 30, 0, 0, utc),
			2, 0,
			time.Date(2024, 3, 10, 2, 0, 0, 0, utc),
		},
		{
			"after today's run",
			time.Date(2024, 3, 10, 5, 0, 0, 0, utc),
			2, 0,
			time.Date(2024, 3, 11, 2, 0, 0, 0, utc),
		},
		{
			// Точное совпадение считается прошедшим, иначе sweep запустился бы дважды
			"exactly at run time",
			time.Date(2024, 3, 10, 2, 0, 0, 0, utc),
			2, 0,
			time.Date(2024, 3, 11, 2, 0, 0, 0, utc),
		},
		{
			"month boundary",
			time.Date(2024, 1, 31, 23, 0, 0, 0, utc),
			2, 0,
			time.Date(2024, 2, 1, 2, 0, 0, 0, utc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NextDailyRun(tt.now, tt.hour, tt.minute, utc)
			if !result.Equal(tt.expected) {
				t.Errorf("NextDailyRun(%v, %d, %d) = %v, want %v",
					tt.now, tt.hour, tt.minute, result, tt.expected)
			}
		})
	}
}

func TestNextDailyRun_AlwaysFuture(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 23, 45, 0, time.UTC)

	for hour := 0; hour < 24; hour++ {
		next := NextDailyRun(now, hour, 0, time.UTC)
		if !next.After(now) {
			t.Errorf("NextDailyRun at %02d:00 returned %v, not after %v", hour, next, now)
		}
		if next.Sub(now) > 24*time.Hour {
			t.Errorf("NextDailyRun at %02d:00 returned %v, more than 24h ahead", hour, next)
		}
	}
}

// ============================================================
// Тесты DayKey / GetDayStartFrom
// ============================================================

func TestDayKey(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{"midday utc", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), "2024-03-10"},
		{"start of day", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), "2024-03-10"},
		{"end of day", time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC), "2024-03-10"},
		{
			// Не-UTC время нормализуется к UTC перед взятием даты
			"non-utc normalized",
			time.Date(2024, 3, 10, 23, 0, 0, 0, time.FixedZone("UTC-3", -3*3600)),
			"2024-03-11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := DayKey(tt.input); result != tt.expected {
				t.Errorf("DayKey(%v) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetDayStartFrom(t *testing.T) {
	input := time.Date(2024, 3, 10, 17, 45, 12, 999, time.UTC)
	expected := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if result := GetDayStartFrom(input); !result.Equal(expected) {
		t.Errorf("GetDayStartFrom(%v) = %v, want %v", input, result, expected)
	}
}

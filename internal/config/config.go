package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"leverage/pkg/utils"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Engine   EngineConfig
	Exchange ExchangeConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности API
type SecurityConfig struct {
	// APIKeyRequired включает проверку X-API-Key на защищённых endpoint'ах
	APIKeyRequired bool

	// APIKeyHash - bcrypt хеш ключа (предпочтительный способ хранения)
	APIKeyHash string

	// APIKey - ключ открытым текстом (fallback, сравнивается constant-time)
	APIKey string
}

// EngineConfig - настройки движка расчёта метрик
type EngineConfig struct {
	// BenchmarkSymbol - референсный инструмент для нормализации волатильности.
	// Wire-поле ответа называется correlation_with_eth независимо от значения.
	BenchmarkSymbol string

	// Pairs - отслеживаемые по умолчанию пары (пересчитываются планировщиком)
	Pairs []string

	// Окно наблюдения
	LookbackDays int // сколько дневных свечей запрашивать у биржи
	MinWindow    int // минимум выровненных точек для расчёта

	// Границы плеча
	MinLeverage      int
	MaxLeverage      int
	BaselineLeverage int

	// FallbackLeverage - консервативный дефолт для пар без метрик
	FallbackLeverage int

	// Расписание пересчёта: либо каждые RefreshInterval,
	// либо ежедневно в RefreshAt ("HH:MM") в таймзоне RefreshTZ
	RefreshInterval time.Duration
	RefreshAt       string
	RefreshTZ       string

	// Лимиты одного цикла вычисления
	ComputeTimeout time.Duration // таймаут fetch+compute+store на символ
	MaxRetries     int           // попыток запроса к источнику данных
	RetryBackoff   time.Duration // начальная задержка экспоненциального backoff
}

// ExchangeConfig - настройки источника рыночных данных
type ExchangeConfig struct {
	Name      string  // binance, bybit
	RateLimit float64 // запросов в секунду
	Burst     float64 // ёмкость token bucket
}

// DefaultPairs - пары, отслеживаемые если TRACKED_PAIRS не задана
var DefaultPairs = []string{
	"BTC/USDT:USDT",
	"ETH/USDT:USDT",
	"ADA/USDT:USDT",
	"SOL/USDT:USDT",
	"MATIC/USDT:USDT",
	"DOT/USDT:USDT",
	"LINK/USDT:USDT",
	"UNI/USDT:USDT",
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "leverage"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			APIKeyRequired: getEnvAsBool("API_KEY_REQUIRED", false),
			APIKeyHash:     getEnv("API_KEY_HASH", ""),
			APIKey:         getEnv("API_KEY", ""),
		},
		Engine: EngineConfig{
			BenchmarkSymbol:  getEnv("BENCHMARK_SYMBOL", "ETH/USDT:USDT"),
			Pairs:            getEnvAsList("TRACKED_PAIRS", DefaultPairs),
			LookbackDays:     getEnvAsInt("LOOKBACK_DAYS", 30),
			MinWindow:        getEnvAsInt("MIN_WINDOW", 10),
			MinLeverage:      getEnvAsInt("MIN_LEVERAGE", 1),
			MaxLeverage:      getEnvAsInt("MAX_LEVERAGE", 20),
			BaselineLeverage: getEnvAsInt("BASELINE_LEVERAGE", 10),
			FallbackLeverage: getEnvAsInt("FALLBACK_LEVERAGE", 5),
			RefreshInterval:  getEnvAsDuration("REFRESH_INTERVAL", 24*time.Hour),
			RefreshAt:        getEnvAllowEmpty("REFRESH_AT", "02:00"),
			RefreshTZ:        getEnv("REFRESH_TZ", "UTC"),
			ComputeTimeout:   getEnvAsDuration("COMPUTE_TIMEOUT", 30*time.Second),
			MaxRetries:       getEnvAsInt("MAX_RETRIES", 3),
			RetryBackoff:     getEnvAsDuration("RETRY_BACKOFF", 500*time.Millisecond),
		},
		Exchange: ExchangeConfig{
			Name:      getEnv("EXCHANGE", "binance"),
			RateLimit: getEnvAsFloat("EXCHANGE_RATE_LIMIT", 10),
			Burst:     getEnvAsFloat("EXCHANGE_RATE_BURST", 20),
		},
	}

	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// При включённой авторизации нужен либо хеш, либо сам ключ
	if c.Security.APIKeyRequired && c.Security.APIKeyHash == "" && c.Security.APIKey == "" {
		return fmt.Errorf("API_KEY_REQUIRED is set but neither API_KEY_HASH nor API_KEY is provided")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	e := c.Engine

	// Границы плеча: 1 <= min <= baseline <= max
	if e.MinLeverage < 1 {
		return fmt.Errorf("MIN_LEVERAGE must be at least 1, got %d", e.MinLeverage)
	}
	if e.MaxLeverage < e.MinLeverage {
		return fmt.Errorf("MAX_LEVERAGE (%d) must be >= MIN_LEVERAGE (%d)", e.MaxLeverage, e.MinLeverage)
	}
	if e.BaselineLeverage < e.MinLeverage || e.BaselineLeverage > e.MaxLeverage {
		return fmt.Errorf("BASELINE_LEVERAGE (%d) must be within [%d, %d]", e.BaselineLeverage, e.MinLeverage, e.MaxLeverage)
	}
	if e.FallbackLeverage < e.MinLeverage || e.FallbackLeverage > e.MaxLeverage {
		return fmt.Errorf("FALLBACK_LEVERAGE (%d) must be within [%d, %d]", e.FallbackLeverage, e.MinLeverage, e.MaxLeverage)
	}

	// Окно наблюдения
	if e.MinWindow < 2 {
		return fmt.Errorf("MIN_WINDOW must be at least 2, got %d", e.MinWindow)
	}
	if e.LookbackDays < e.MinWindow {
		return fmt.Errorf("LOOKBACK_DAYS (%d) must be >= MIN_WINDOW (%d)", e.LookbackDays, e.MinWindow)
	}

	// Расписание
	if e.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %v", e.RefreshInterval)
	}
	if e.RefreshAt != "" {
		if _, _, err := utils.ParseClock(e.RefreshAt); err != nil {
			return fmt.Errorf("invalid REFRESH_AT: %w", err)
		}
		if _, err := time.LoadLocation(e.RefreshTZ); err != nil {
			return fmt.Errorf("invalid REFRESH_TZ %q: %w", e.RefreshTZ, err)
		}
	}

	// Лимиты вычисления
	if e.ComputeTimeout <= 0 {
		return fmt.Errorf("COMPUTE_TIMEOUT must be positive, got %v", e.ComputeTimeout)
	}
	if e.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", e.MaxRetries)
	}
	if e.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES should not exceed 10, got %d", e.MaxRetries)
	}
	if e.RetryBackoff <= 0 {
		return fmt.Errorf("RETRY_BACKOFF must be positive, got %v", e.RetryBackoff)
	}

	if len(e.Pairs) == 0 {
		return fmt.Errorf("TRACKED_PAIRS must not be empty")
	}
	for _, pair := range e.Pairs {
		if err := utils.ValidateSymbol(pair); err != nil {
			return fmt.Errorf("invalid tracked pair: %w", err)
		}
	}
	if err := utils.ValidateSymbol(e.BenchmarkSymbol); err != nil {
		return fmt.Errorf("invalid BENCHMARK_SYMBOL: %w", err)
	}

	return nil
}

// TTL возвращает срок свежести кешированной строки: ttl_expires_at = computed_at + TTL().
//
// В режиме "ежедневно в HH:MM" срок равен суткам, иначе интервалу пересчёта.
func (e EngineConfig) TTL() time.Duration {
	if e.RefreshAt != "" {
		return 24 * time.Hour
	}
	return e.RefreshInterval
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty отличает неустановленную переменную от пустой:
// REFRESH_AT="" (установлена, но пуста) выключает ежедневный режим,
// отсутствие переменной оставляет дефолт.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

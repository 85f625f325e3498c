package crypto

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Ошибки хеширования
var (
	ErrEmptyKey      = errors.New("api key cannot be empty")
	ErrKeyMismatch   = errors.New("api key does not match hash")
	ErrKeyTooLong    = errors.New("api key exceeds maximum length of 72 bytes")
)

// DefaultCost - стоимость bcrypt хеширования по умолчанию
// Более высокое значение = больше времени на хеширование = более безопасно
const DefaultCost = 12

// MaxKeyLength - максимальная длина ключа для bcrypt (72 байта)
const MaxKeyLength = 72

// HashAPIKey хеширует API ключ с использованием bcrypt.
// Автоматически генерирует криптографически стойкий salt.
//
// Полученный хеш кладётся в переменную окружения API_KEY_HASH,
// чтобы сам ключ не хранился в конфигурации открытым текстом.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	// bcrypt ограничен 72 байтами
	if len(key) > MaxKeyLength {
		return "", ErrKeyTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyAPIKey проверяет API ключ против bcrypt хеша.
//
// Возвращает:
//   - nil: ключ совпадает
//   - ErrKeyMismatch: ключ не совпадает
//   - другую ошибку при некорректном хеше
func VerifyAPIKey(key, hash string) error {
	if key == "" {
		return ErrEmptyKey
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrKeyMismatch
	}
	return err
}

// ConstantTimeEquals сравнивает две строки за константное время.
//
// Используется как fallback когда ключ задан открытым текстом (API_KEY);
// обычное сравнение строк уязвимо к timing attacks.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

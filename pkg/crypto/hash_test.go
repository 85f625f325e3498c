package crypto

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Тесты HashAPIKey
// ============================================================

func TestHashAPIKey(t *testing.T) {
	hash, err := HashAPIKey("my-secret-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("expected bcrypt hash prefix, got %q", hash[:4])
	}
}

func TestHashAPIKey_EmptyKey(t *testing.T) {
	_, err := HashAPIKey("")
	if !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestHashAPIKey_TooLong(t *testing.T) {
	key := strings.Repeat("x", MaxKeyLength+1)
	_, err := HashAPIKey(key)
	if !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("expected ErrKeyTooLong, got %v", err)
	}
}

func TestHashAPIKey_UniqueSalt(t *testing.T) {
	// bcrypt генерирует соль на каждый вызов: хеши одного ключа различаются
	h1, err1 := HashAPIKey("same-key")
	h2, err2 := HashAPIKey("same-key")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if h1 == h2 {
		t.Error("two hashes of the same key must differ (random salt)")
	}
}

// ============================================================
// Тесты VerifyAPIKey
// ============================================================

func TestVerifyAPIKey(t *testing.T) {
	hash, err := HashAPIKey("correct-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := VerifyAPIKey("correct-key", hash); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}

	if err := VerifyAPIKey("wrong-key", hash); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("expected ErrKeyMismatch, got %v", err)
	}

	if err := VerifyAPIKey("", hash); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestVerifyAPIKey_MalformedHash(t *testing.T) {
	err := VerifyAPIKey("key", "not-a-bcrypt-hash")
	if err == nil {
		t.Fatal("expected error for malformed hash")
	}
	if errors.Is(err, ErrKeyMismatch) {
		t.Error("malformed hash must not be reported as mismatch")
	}
}

// ============================================================
// Тесты ConstantTimeEquals
// ============================================================

func TestConstantTimeEquals(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{"equal", "secret", "secret", true},
		{"different", "secret", "secre7", false},
		{"different length", "secret", "secrets", false},
		{"both empty", "", "", true},
		{"one empty", "secret", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := ConstantTimeEquals(tt.a, tt.b); result != tt.expected {
				t.Errorf("ConstantTimeEquals(%q, %q) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

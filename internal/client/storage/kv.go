package storage

import "context"

//go:generate moq -out kv_mock.go . SessionStorage

// Ключи плоского key/value пространства сессии.
// Раскладка унаследована от исходного клиента, поэтому legacy-ключ
// auth-token сохранен: он обслуживает резервный уровень чтения.
const (
	// KeySecureToken - base64 blob зашифрованного SecureTokenData
	KeySecureToken = "secure-auth-token"
	// KeyDeviceFingerprint - открытый JSON отпечатка на момент записи токена
	KeyDeviceFingerprint = "device-fingerprint"
	// KeyUser - открытый JSON пользователя
	KeyUser = "user"
	// KeyLastLogin - epoch-ms время последнего логина (строка)
	KeyLastLogin = "lastLoginTime"
	// KeyLegacyToken - незашифрованный токен старого формата (fallback)
	KeyLegacyToken = "auth-token"
	// KeyLastActivity - epoch-ms время последней активности (строка)
	KeyLastActivity = "lastActivity"
)

// SessionStorage defines the lowest storage layer for session state:
// a flat key/value namespace with no multi-key atomicity. Values are
// stored as-is (the encryption layer above is responsible for what is
// plaintext and what is ciphertext).
type SessionStorage interface {
	// Get returns the value for key.
	// Returns ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

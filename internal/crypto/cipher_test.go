package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncrypt(t *testing.T) {
	// Генерируем валидный ключ (32 bytes)
	validKey := make([]byte, 32)
	_, _ = rand.Read(validKey)

	tests := []struct {
		name      string
		errMsg    string
		plaintext []byte
		key       []byte
		wantErr   bool
	}{
		{
			name:      "successful encryption",
			plaintext: []byte(`{"token":"abc123","deviceId":"d1"}`),
			key:       validKey,
			wantErr:   false,
		},
		{
			name:      "empty plaintext",
			plaintext: []byte{},
			key:       validKey,
			wantErr:   true,
			errMsg:    "plaintext cannot be empty",
		},
		{
			name:      "invalid key length - too short",
			plaintext: []byte("test"),
			key:       make([]byte, 16),
			wantErr:   true,
			errMsg:    "encryption key must be 32 bytes",
		},
		{
			name:      "invalid key length - too long",
			plaintext: []byte("test"),
			key:       make([]byte, 64),
			wantErr:   true,
			errMsg:    "encryption key must be 32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := Encrypt(tt.plaintext, tt.key)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, encrypted)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, encrypted)
				// IV + ciphertext + auth_tag
				assert.Greater(t, len(encrypted), len(tt.plaintext)+NonceSize)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	plaintext := []byte("bearer-token-payload")

	encrypted, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	decrypted, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptUniqueIV(t *testing.T) {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	plaintext := []byte("same input")

	first, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	second, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	// IV генерируется заново - шифртексты не совпадают
	assert.NotEqual(t, first, second)
}

func TestDecryptWrongKey(t *testing.T) {
	key, err := DeriveTokenKey("device-a", "https://dispatch.example.com")
	require.NoError(t, err)
	otherKey, err := DeriveTokenKey("device-b", "https://dispatch.example.com")
	require.NoError(t, err)

	encrypted, err := Encrypt([]byte("secret token"), key)
	require.NoError(t, err)

	// Ключ от другого устройства не расшифровывает payload
	decrypted, err := Decrypt(encrypted, otherKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed or corrupted data")
	assert.Nil(t, decrypted)
}

func TestDecryptCorruptedData(t *testing.T) {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	encrypted, err := Encrypt([]byte("secret token"), key)
	require.NoError(t, err)

	// Портим байт шифртекста
	encrypted[len(encrypted)-1] ^= 0xFF

	_, err = Decrypt(encrypted, key)
	require.Error(t, err)
}

func TestDecryptTooShort(t *testing.T) {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	_, err := Decrypt([]byte{1, 2, 3}, key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encrypted data too short")
}

func TestBase64RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	plaintext := []byte("token data")

	blob, err := EncryptToBase64(plaintext, key)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	decrypted, err := DecryptFromBase64(blob, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptFromBase64InvalidEncoding(t *testing.T) {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	_, err := DecryptFromBase64("not-valid-base64!!!", key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode base64")
}

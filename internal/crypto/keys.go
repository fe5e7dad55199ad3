package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры деривации ключа шифрования токена
const (
	// PBKDF2Iterations - количество итераций PBKDF2
	PBKDF2Iterations = 100_000
	// KeyLen - длина выходного ключа в байтах (AES-256)
	KeyLen = 32
	// keySalt - фиксированная соль. Ключ привязан к идентичности
	// устройства, а не к пользовательскому секрету: материал ключа
	// меняется от устройства к устройству, случайная соль здесь
	// не требуется.
	keySalt = "fieldkeeper-salt-2024"
)

// DeriveTokenKey генерирует ключ AES-256 из идентичности устройства
// и origin развертывания (base URL бэкенда). Один и тот же отпечаток
// на другом origin дает другой ключ.
func DeriveTokenKey(deviceID, origin string) ([]byte, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id cannot be empty")
	}
	if origin == "" {
		return nil, fmt.Errorf("origin cannot be empty")
	}

	keyMaterial := []byte(deviceID + origin)
	key := pbkdf2.Key(keyMaterial, []byte(keySalt), PBKDF2Iterations, KeyLen, sha256.New)

	return key, nil
}

package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FingerprintIDLen - длина ID отпечатка в hex-символах
const FingerprintIDLen = 32

// FingerprintID вычисляет ID отпечатка устройства: SHA-256 от
// сериализованной map компонентов, hex, усечение до 32 символов.
// Детерминирован: одинаковый вход дает одинаковый ID.
func FingerprintID(serializedComponents []byte) (string, error) {
	if len(serializedComponents) == 0 {
		return "", fmt.Errorf("serialized components cannot be empty")
	}

	hash := sha256.Sum256(serializedComponents)

	return hex.EncodeToString(hash[:])[:FingerprintIDLen], nil
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/riskianand4/fieldkeeper/internal/client/storage"
	"github.com/riskianand4/fieldkeeper/internal/crypto"
	"github.com/riskianand4/fieldkeeper/internal/models"
)

// TokenResult - результат чтения credential
type TokenResult struct {
	Token   string // bearer token
	IsValid bool   // прошел ли токен проверки своего уровня
}

// errNotAvailable сигнализирует, что уровень не содержит данных
// и лестница должна перейти к следующему провайдеру
var errNotAvailable = errors.New("credential not available at this tier")

// credentialProvider - один уровень лестницы чтения credential
type credentialProvider interface {
	name() string
	fetch(ctx context.Context) (*TokenResult, error)
}

// encryptedProvider - основной уровень: расшифровка device-bound blob.
// Несовпадение отпечатка, возраст токена и IP-мисматч только логируются:
// дрейф отпечатка - штатная ситуация, и он не должен разлогинивать.
type encryptedProvider struct {
	store *Store
}

func (p *encryptedProvider) name() string { return "encrypted" }

func (p *encryptedProvider) fetch(ctx context.Context) (*TokenResult, error) {
	s := p.store

	// Уровень применим только когда есть и blob, и открытый отпечаток
	blob, err := s.storage.Get(ctx, storage.KeySecureToken)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, errNotAvailable
		}
		return nil, fmt.Errorf("failed to read encrypted token: %w", err)
	}

	storedFPJSON, err := s.storage.Get(ctx, storage.KeyDeviceFingerprint)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, errNotAvailable
		}
		return nil, fmt.Errorf("failed to read stored fingerprint: %w", err)
	}

	// Ключ расшифровки выводится из ТЕКУЩЕГО отпечатка: если устройство
	// действительно то же, ключ совпадет с ключом записи
	fp, err := s.devices.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device fingerprint: %w", err)
	}

	key, err := s.encryptionKey(fp.ID)
	if err != nil {
		return nil, err
	}

	plaintext, err := crypto.DecryptFromBase64(string(blob), key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token data: %w", err)
	}

	var data models.SecureTokenData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	// Покомпонентное сравнение отпечатков. Несовпадение не блокирует
	// чтение: обновление драйверов или смена сетевой карты не повод
	// принудительно разлогинивать техника.
	storedFP := data.Fingerprint
	if storedFP == nil {
		storedFP = &models.DeviceFingerprint{}
		if err := json.Unmarshal(storedFPJSON, storedFP); err != nil {
			s.logger.Warn("failed to unmarshal stored fingerprint", "error", err)
			storedFP = nil
		}
	}
	if storedFP != nil {
		match, err := s.devices.ValidateDevice(ctx, storedFP)
		if err != nil {
			s.logger.Warn("device validation failed", "error", err)
		} else if !match {
			s.logger.Warn("device fingerprint drifted since token was stored",
				"stored_device", data.DeviceID,
				"current_device", fp.ID)
		}
	}

	now := models.EpochMillis(s.nowFn())

	// Возраст токена - рекомендательная проверка, истечение решает бэкенд
	if age := time.Duration(now-data.CreatedAt) * time.Millisecond; age > maxTokenAge {
		s.logger.Warn("stored token is older than advisory limit",
			"age", age.Round(time.Hour),
			"limit", maxTokenAge)
	}

	// Ветка сейчас недостижима: IP не снимается и IPAddress всегда пуст
	if data.IPAddress != "" {
		if current := s.resolveClientIP(ctx); current != "" && current != data.IPAddress {
			s.logger.Warn("client ip changed since token was stored",
				"stored_ip", data.IPAddress,
				"current_ip", current)
		}
	}

	// Успешное чтение трогает lastUsed и перешифровывает payload.
	// Сбой записи не отменяет выдачу токена: доступность важнее.
	data.LastUsed = now
	if payload, err := json.Marshal(&data); err == nil {
		if reblob, err := crypto.EncryptToBase64(payload, key); err == nil {
			if err := s.storage.Put(ctx, storage.KeySecureToken, []byte(reblob)); err != nil {
				s.logger.Warn("failed to persist last-used update", "error", err)
			}
		} else {
			s.logger.Warn("failed to re-encrypt token data", "error", err)
		}
	} else {
		s.logger.Warn("failed to marshal token data", "error", err)
	}

	return &TokenResult{Token: data.Token, IsValid: true}, nil
}

// legacyProvider - резервный уровень: незашифрованный токен старого
// формата, без какой-либо привязки к устройству. Существует только как
// клапан доступности на случай, когда расшифровка основного уровня
// невозможна.
type legacyProvider struct {
	store *Store
}

func (p *legacyProvider) name() string { return "legacy" }

func (p *legacyProvider) fetch(ctx context.Context) (*TokenResult, error) {
	raw, err := p.store.storage.Get(ctx, storage.KeyLegacyToken)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, errNotAvailable
		}
		return nil, fmt.Errorf("failed to read legacy token: %w", err)
	}
	if len(raw) == 0 {
		return nil, errNotAvailable
	}

	p.store.logger.Warn("serving credential from legacy plaintext tier")
	return &TokenResult{Token: string(raw), IsValid: true}, nil
}

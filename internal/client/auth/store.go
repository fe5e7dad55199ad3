package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/riskianand4/fieldkeeper/internal/client/storage"
	"github.com/riskianand4/fieldkeeper/internal/crypto"
	"github.com/riskianand4/fieldkeeper/internal/fingerprint"
	"github.com/riskianand4/fieldkeeper/internal/models"
)

const (
	// maxTokenAge - рекомендательный предел возраста токена. Превышение
	// только логируется: жесткое истечение остается за бэкендом.
	maxTokenAge = 30 * 24 * time.Hour

	// DefaultRecentLoginWindow - окно по умолчанию для IsRecentLogin
	DefaultRecentLoginWindow = 60 * time.Second
)

// Store реализует device-bound хранение credential: токен шифруется
// ключом, производным от отпечатка устройства и origin бэкенда, и
// персистится в плоском key/value хранилище. Чтение идет по явной
// лестнице провайдеров с деградацией до legacy-уровня.
type Store struct {
	storage   storage.SessionStorage
	devices   *fingerprint.Manager
	origin    string
	logger    *slog.Logger
	providers []credentialProvider
	nowFn     func() time.Time

	mu          sync.Mutex
	cachedKey   []byte
	cachedKeyID string // deviceID, для которого выведен cachedKey
}

// NewStore создает новый Store.
// origin - base URL бэкенда: он входит в материал ключа шифрования,
// тот же отпечаток на другом развертывании дает другой ключ.
func NewStore(st storage.SessionStorage, devices *fingerprint.Manager, origin string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		storage: st,
		devices: devices,
		origin:  origin,
		logger:  logger,
		nowFn:   time.Now,
	}
	// Порядок уровней чтения: зашифрованный, затем legacy plaintext.
	// Legacy-уровень - клапан доступности: он намеренно слабее
	// (без привязки к устройству), чтобы дрейф отпечатка не разлогинивал.
	s.providers = []credentialProvider{
		&encryptedProvider{store: s},
		&legacyProvider{store: s},
	}
	return s
}

// StoreToken шифрует и сохраняет credential, привязывая его к текущему
// отпечатку устройства. Возвращает false при любой ошибке: путь записи
// живет внутри login-флоу и не должен его ронять.
func (s *Store) StoreToken(ctx context.Context, token string, user *models.User) bool {
	// 1. Текущая идентичность устройства
	fp, err := s.devices.Get(ctx)
	if err != nil {
		s.logger.Error("failed to get device fingerprint", "error", err)
		return false
	}

	// 2. IP намеренно не снимается (см. resolveClientIP)
	ip := s.resolveClientIP(ctx)

	// 3. Собираем полезную нагрузку
	now := models.EpochMillis(s.nowFn())
	data := &models.SecureTokenData{
		Token:       token,
		DeviceID:    fp.ID,
		IPAddress:   ip,
		CreatedAt:   now,
		LastUsed:    now,
		Fingerprint: fp,
	}

	// 4. Ключ из отпечатка + origin
	key, err := s.encryptionKey(fp.ID)
	if err != nil {
		s.logger.Error("failed to derive encryption key", "error", err)
		return false
	}

	// 5. Шифруем и персистим
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal token data", "error", err)
		return false
	}

	blob, err := crypto.EncryptToBase64(payload, key)
	if err != nil {
		s.logger.Error("failed to encrypt token data", "error", err)
		return false
	}

	if err := s.storage.Put(ctx, storage.KeySecureToken, []byte(blob)); err != nil {
		s.logger.Error("failed to persist encrypted token", "error", err)
		return false
	}

	// Открытый отпечаток: нужен для сравнения при fallback-чтении
	// без расшифровки
	fpJSON, err := json.Marshal(fp)
	if err == nil {
		err = s.storage.Put(ctx, storage.KeyDeviceFingerprint, fpJSON)
	}
	if err != nil {
		s.logger.Error("failed to persist device fingerprint", "error", err)
		return false
	}

	// Пользователь и время логина хранятся открыто: нужны UI сразу,
	// без round-trip расшифровки
	userJSON, err := json.Marshal(user)
	if err == nil {
		err = s.storage.Put(ctx, storage.KeyUser, userJSON)
	}
	if err != nil {
		s.logger.Error("failed to persist user", "error", err)
		return false
	}

	if err := s.storage.Put(ctx, storage.KeyLastLogin, []byte(strconv.FormatInt(now, 10))); err != nil {
		s.logger.Error("failed to persist last login time", "error", err)
		return false
	}

	s.logger.Info("credential stored", "device_id", fp.ShortID())
	return true
}

// GetToken читает credential по лестнице провайдеров. Никогда не
// возвращает ошибку: вызывающие дергают его по таймеру, и любой сбой
// трактуется как "токена нет" (nil).
func (s *Store) GetToken(ctx context.Context) *TokenResult {
	for _, provider := range s.providers {
		result, err := provider.fetch(ctx)
		if err != nil {
			if err == errNotAvailable {
				continue
			}
			// Порченый blob, несовпавший ключ и прочие сбои уровня -
			// не фатальны, пробуем следующий уровень
			s.logger.Warn("credential provider failed",
				"provider", provider.name(),
				"error", err)
			continue
		}
		if result != nil {
			return result
		}
	}
	return nil
}

// Clear удаляет все ключи сессии и сбрасывает кеш ключа шифрования.
// Best-effort: ошибки логируются и не прерывают logout.
func (s *Store) Clear(ctx context.Context) {
	keys := []string{
		storage.KeySecureToken,
		storage.KeyDeviceFingerprint,
		storage.KeyUser,
		storage.KeyLegacyToken,
		storage.KeyLastLogin,
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to clear storage key", "key", key, "error", err)
		}
	}

	s.mu.Lock()
	s.cachedKey = nil
	s.cachedKeyID = ""
	s.mu.Unlock()
}

// GetUser возвращает сохраненного пользователя или nil
func (s *Store) GetUser(ctx context.Context) *models.User {
	data, err := s.storage.Get(ctx, storage.KeyUser)
	if err != nil {
		return nil
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		s.logger.Warn("failed to unmarshal stored user", "error", err)
		return nil
	}
	return &user
}

// IsRecentLogin сообщает, был ли логин в пределах окна within.
// При within <= 0 используется окно по умолчанию (60 секунд).
// Любая ошибка разбора дает false.
func (s *Store) IsRecentLogin(ctx context.Context, within time.Duration) bool {
	if within <= 0 {
		within = DefaultRecentLoginWindow
	}

	data, err := s.storage.Get(ctx, storage.KeyLastLogin)
	if err != nil {
		return false
	}

	loginTime, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return false
	}

	elapsed := models.EpochMillis(s.nowFn()) - loginTime
	return elapsed >= 0 && elapsed < within.Milliseconds()
}

// encryptionKey возвращает ключ AES для deviceID, кешируя деривацию:
// PBKDF2 на 100k итераций не должен выполняться на каждом тике.
func (s *Store) encryptionKey(deviceID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedKey != nil && s.cachedKeyID == deviceID {
		return s.cachedKey, nil
	}

	key, err := crypto.DeriveTokenKey(deviceID, s.origin)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token key: %w", err)
	}

	s.cachedKey = key
	s.cachedKeyID = deviceID
	return key, nil
}

// resolveClientIP намеренно ничего не возвращает: внешний IP-lookup
// отключен, чтобы агент не зависел от стороннего сервиса. Поле
// IPAddress в SecureTokenData оставлено для совместимости вперед.
func (s *Store) resolveClientIP(ctx context.Context) string {
	return ""
}

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/riskianand4/fieldkeeper/internal/client/api"
	"github.com/riskianand4/fieldkeeper/internal/client/auth"
	"github.com/riskianand4/fieldkeeper/internal/client/storage"
	"github.com/riskianand4/fieldkeeper/internal/models"
)

// Константы жизненного цикла сессии
const (
	// SessionDuration - допустимое окно неактивности
	SessionDuration = 8 * time.Hour
	// RefreshThreshold - за сколько до истечения окна пытаться
	// фоново обновить токен
	RefreshThreshold = 1 * time.Hour
	// checkInterval - период фоновой проверки валидности
	checkInterval = 2 * time.Minute
	// activityWriteInterval - троттлинг записи таймстампа активности:
	// непрерывный поток взаимодействий не должен бить по хранилищу
	activityWriteInterval = 60 * time.Second
)

// ReasonInactivity - причина истечения по неактивности
const ReasonInactivity = "Session expired due to inactivity"

// ExpiredEvent несет причину, по которой сессия признана непригодной.
// Аналог browser-события session-expired: приложение-обертка по нему
// уводит пользователя на логин.
type ExpiredEvent struct {
	Reason string
}

// ExpiryHandler вызывается из фонового тика при инвалидации сессии
type ExpiryHandler func(ExpiredEvent)

// ValidationResult - исход одной проверки валидности
type ValidationResult struct {
	IsValid       bool
	Reason        string        // заполнен при IsValid == false
	ShouldRefresh bool          // сессия в пределах refresh-порога
	TimeRemaining time.Duration // остаток окна неактивности
}

// Manager владеет фоновой проверкой сессии: решает, когда обновлять
// токен, когда гасить сессию, и сигнализирует об истечении наружу.
// Сам он навигацию/UI не трогает.
type Manager struct {
	store     *auth.Store
	apiClient api.ClientAPI
	storage   storage.SessionStorage
	logger    *slog.Logger
	onExpired ExpiryHandler
	version   string
	nowFn     func() time.Time

	mu                sync.Mutex
	stopCh            chan struct{}
	lastActivityWrite int64 // epoch-ms последней записи активности

	// single-flight: новый тик пропускается (не ставится в очередь),
	// пока предыдущий не завершился
	busy atomic.Bool
}

// Option настраивает Manager
type Option func(*Manager)

// WithExpiryHandler регистрирует обработчик истечения сессии
func WithExpiryHandler(handler ExpiryHandler) Option {
	return func(m *Manager) { m.onExpired = handler }
}

// WithVersion задает версию агента для строки UserAgent в SessionInfo
func WithVersion(version string) Option {
	return func(m *Manager) { m.version = version }
}

// NewManager создает Manager. Зависимости передаются явно:
// никаких пакетных синглтонов, время жизни контролирует composition root.
func NewManager(store *auth.Store, apiClient api.ClientAPI, st storage.SessionStorage, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:     store,
		apiClient: apiClient,
		storage:   st,
		logger:    logger,
		version:   "dev",
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartMonitoring запускает фоновый цикл проверки. Уже работающий цикл
// останавливается и заменяется новым. Таймстамп активности пишется
// сразу, не дожидаясь первого взаимодействия.
func (m *Manager) StartMonitoring(ctx context.Context) {
	m.mu.Lock()
	if m.stopCh != nil {
		close(m.stopCh)
	}
	stopCh := make(chan struct{})
	m.stopCh = stopCh
	m.mu.Unlock()

	m.writeActivity(ctx, m.nowFn())

	go m.monitorLoop(ctx, stopCh)

	m.logger.Info("session monitoring started", "interval", checkInterval)
}

// StopMonitoring останавливает фоновый цикл. Симметричен StartMonitoring:
// после возврата новые тики не планируются; уже выполняющийся тик
// довершается, но его результат ничего больше не запускает.
func (m *Manager) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	m.stopCh = nil

	m.logger.Info("session monitoring stopped")
}

func (m *Manager) monitorLoop(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick - один проход фоновой проверки. Любая ошибка гасится здесь же:
// вылетевшая из тика паника или ошибка не должна убить цикл.
func (m *Manager) tick(ctx context.Context) {
	if !m.busy.CompareAndSwap(false, true) {
		m.logger.Debug("session check skipped: previous check still running")
		return
	}
	defer m.busy.Store(false)

	result := m.ValidateSession(ctx)

	if !result.IsValid {
		m.logger.Info("session no longer valid", "reason", result.Reason)
		m.InvalidateSession(ctx)
		m.emitExpired(result.Reason)
		return
	}

	if result.ShouldRefresh {
		if ok := m.RefreshSession(ctx); !ok {
			// Неудачный refresh сам по себе сессию не гасит:
			// решение примет следующая проверка по неактивности
			m.logger.Warn("background token refresh failed")
		}
	}
}

// ValidateSession решает, пригодна ли сессия, и надо ли ее освежить
func (m *Manager) ValidateSession(ctx context.Context) *ValidationResult {
	token := m.store.GetToken(ctx)
	if token == nil || !token.IsValid {
		return &ValidationResult{IsValid: false, Reason: "No valid credential found"}
	}

	lastActivity, ok := m.readEpochMillis(ctx, storage.KeyLastActivity)
	if !ok {
		// Мониторинг мог еще не стартовать - берем время логина
		lastActivity, ok = m.readEpochMillis(ctx, storage.KeyLastLogin)
		if !ok {
			return &ValidationResult{IsValid: false, Reason: "No activity record found"}
		}
	}

	sinceActivity := time.Duration(models.EpochMillis(m.nowFn())-lastActivity) * time.Millisecond
	if sinceActivity > SessionDuration {
		return &ValidationResult{IsValid: false, Reason: ReasonInactivity}
	}

	return &ValidationResult{
		IsValid:       true,
		ShouldRefresh: sinceActivity > SessionDuration-RefreshThreshold,
		TimeRemaining: SessionDuration - sinceActivity,
	}
}

// RecordActivity отмечает взаимодействие пользователя. Вызывается
// приложением-оберткой на каждое значимое действие; запись в хранилище
// троттлится до одного раза в activityWriteInterval.
func (m *Manager) RecordActivity(ctx context.Context) {
	now := m.nowFn()
	nowMs := models.EpochMillis(now)

	m.mu.Lock()
	if nowMs-m.lastActivityWrite < activityWriteInterval.Milliseconds() {
		m.mu.Unlock()
		return
	}
	m.lastActivityWrite = nowMs
	m.mu.Unlock()

	m.writeActivity(ctx, now)
}

func (m *Manager) writeActivity(ctx context.Context, t time.Time) {
	value := strconv.FormatInt(models.EpochMillis(t), 10)
	if err := m.storage.Put(ctx, storage.KeyLastActivity, []byte(value)); err != nil {
		m.logger.Warn("failed to persist activity timestamp", "error", err)
	}
}

// RefreshSession пытается тихо обновить credential через бэкенд.
// Неудача логируется и возвращает false, но сессию не инвалидирует.
func (m *Manager) RefreshSession(ctx context.Context) bool {
	resp, err := m.apiClient.RefreshToken(ctx)
	if err != nil {
		m.logger.Warn("token refresh request failed", "error", err)
		return false
	}
	if resp == nil || !resp.Success || resp.Data == nil || resp.Data.Token == "" {
		m.logger.Warn("token refresh response contained no token")
		return false
	}

	newToken := resp.Data.Token

	// Профиль из ответа опционален - переиспользуем сохраненный
	user := resp.Data.User
	if user == nil {
		user = m.store.GetUser(ctx)
	}

	// Перепривязываем новый токен к устройству. Сбой записи не отменяет
	// сам refresh: свежий токен уже есть в памяти
	if ok := m.store.StoreToken(ctx, newToken, user); !ok {
		m.logger.Warn("failed to persist refreshed token")
	}

	m.apiClient.SetToken(newToken)
	m.writeActivity(ctx, m.nowFn())

	if expiry, err := peekTokenExpiry(newToken); err == nil {
		m.logger.Debug("session refreshed", "token_expires_at", expiry)
	} else {
		m.logger.Debug("session refreshed")
	}

	return true
}

// ForceRefresh - явный запрос обновления вне каденции таймера
// (например, кнопка "повторить" в UI)
func (m *Manager) ForceRefresh(ctx context.Context) bool {
	return m.RefreshSession(ctx)
}

// InvalidateSession сносит локальную сессию: хранилище, токен исходящего
// слоя, фоновый цикл. Ошибки логируются и не распространяются.
func (m *Manager) InvalidateSession(ctx context.Context) {
	m.store.Clear(ctx)
	m.apiClient.SetToken("")
	m.StopMonitoring()
}

// GetSessionInfo возвращает best-effort снимок сессии.
// nil, если обязательные персистированные поля отсутствуют.
func (m *Manager) GetSessionInfo(ctx context.Context) *models.SessionInfo {
	fpJSON, err := m.storage.Get(ctx, storage.KeyDeviceFingerprint)
	if err != nil {
		return nil
	}
	var fp models.DeviceFingerprint
	if err := json.Unmarshal(fpJSON, &fp); err != nil {
		m.logger.Warn("failed to unmarshal stored fingerprint", "error", err)
		return nil
	}

	lastLogin, ok := m.readEpochMillis(ctx, storage.KeyLastLogin)
	if !ok {
		return nil
	}

	lastActivity, ok := m.readEpochMillis(ctx, storage.KeyLastActivity)
	if !ok {
		lastActivity = lastLogin
	}

	sinceActivity := time.Duration(models.EpochMillis(m.nowFn())-lastActivity) * time.Millisecond

	return &models.SessionInfo{
		ID:           fp.ShortID(),
		DeviceID:     fp.ID,
		UserAgent:    fmt.Sprintf("fieldkeeper-agent/%s (%s; %s)", m.version, runtime.GOOS, runtime.GOARCH),
		CreatedAt:    lastLogin,
		LastActivity: lastActivity,
		IsActive:     sinceActivity < SessionDuration,
	}
}

func (m *Manager) emitExpired(reason string) {
	if m.onExpired == nil {
		return
	}
	m.onExpired(ExpiredEvent{Reason: reason})
}

func (m *Manager) readEpochMillis(ctx context.Context, key string) (int64, bool) {
	data, err := m.storage.Get(ctx, key)
	if err != nil {
		return 0, false
	}
	value, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		m.logger.Warn("failed to parse stored timestamp", "key", key, "error", err)
		return 0, false
	}
	return value, true
}

// peekTokenExpiry достает exp из JWT без проверки подписи - только для
// логирования. Непрозрачные (не-JWT) токены дают ошибку, это нормально.
func peekTokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiration claim")
	}
	return exp.Time, nil
}

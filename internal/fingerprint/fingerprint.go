package fingerprint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/riskianand4/fieldkeeper/internal/crypto"
	"github.com/riskianand4/fieldkeeper/internal/models"
)

// Probe описывает одну пробу сигнала устройства.
// Collect обязан сам гасить свои ошибки и возвращать sentinel-строку,
// но Manager дополнительно страхует: ошибка или пустое значение
// заменяются на Sentinel, генерация отпечатка продолжается.
type Probe struct {
	Name     string
	Critical bool   // участвует ли сигнал в ValidateDevice
	Sentinel string // значение-заглушка при сбое пробы
	Collect  func(ctx context.Context) (string, error)
}

// Manager генерирует отпечаток устройства и кеширует его в памяти.
// Кеш живет все время жизни Manager (без истечения).
type Manager struct {
	mu     sync.Mutex
	cached *models.DeviceFingerprint
	probes []Probe
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewManager создает Manager со стандартным набором проб.
func NewManager(logger *slog.Logger) *Manager {
	return NewManagerWithProbes(logger, DefaultProbes())
}

// NewManagerWithProbes создает Manager с заданным набором проб.
// Используется в тестах и на платформах с нестандартными сигналами.
func NewManagerWithProbes(logger *slog.Logger, probes []Probe) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		probes: probes,
		logger: logger,
		nowFn:  time.Now,
	}
}

// Generate безусловно пересчитывает все компоненты и возвращает новый
// отпечаток, перезаписывая кеш. Сбой отдельной пробы деградирует до
// sentinel-значения; до вычисления дайджеста ошибки не доходят.
// Ошибка дайджеста - единственный фатальный исход: без идентичности
// устройства вызывающий не может продолжать.
func (m *Manager) Generate(ctx context.Context) (*models.DeviceFingerprint, error) {
	components := make(map[string]string, len(m.probes))

	for _, probe := range m.probes {
		value, err := probe.Collect(ctx)
		if err != nil || value == "" {
			// Проба не смогла снять сигнал - подставляем заглушку,
			// отпечаток остается пригодным
			m.logger.Warn("fingerprint probe degraded",
				"probe", probe.Name,
				"error", err)
			value = probe.Sentinel
		}
		components[probe.Name] = value
	}

	// json.Marshal сортирует ключи map - сериализация детерминирована
	serialized, err := json.Marshal(components)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize fingerprint components: %w", err)
	}

	id, err := crypto.FingerprintID(serialized)
	if err != nil {
		return nil, fmt.Errorf("failed to compute fingerprint id: %w", err)
	}

	fp := &models.DeviceFingerprint{
		ID:         id,
		Components: components,
		CreatedAt:  models.EpochMillis(m.nowFn()),
	}

	m.mu.Lock()
	m.cached = fp
	m.mu.Unlock()

	return fp, nil
}

// Get возвращает кешированный отпечаток, генерируя его при первом вызове.
func (m *Manager) Get(ctx context.Context) (*models.DeviceFingerprint, error) {
	m.mu.Lock()
	cached := m.cached
	m.mu.Unlock()

	if cached != nil {
		return cached, nil
	}
	return m.Generate(ctx)
}

// ValidateDevice сравнивает текущий отпечаток с ранее сохраненным по
// критическому подмножеству сигналов. Возвращает true, если совпало
// не менее 75% критических компонентов (ceil: 3 из 4).
// Это эвристика похожести, а не криптографическая аутентификация:
// дрейф отпечатка от обновлений системы - штатная ситуация.
func (m *Manager) ValidateDevice(ctx context.Context, stored *models.DeviceFingerprint) (bool, error) {
	if stored == nil || stored.Components == nil {
		return false, nil
	}

	current, err := m.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current fingerprint: %w", err)
	}

	var total, matches int
	for _, probe := range m.probes {
		if !probe.Critical {
			continue
		}
		total++
		if current.Components[probe.Name] == stored.Components[probe.Name] {
			matches++
		}
	}

	if total == 0 {
		return false, nil
	}

	// ceil(total * 0.75)
	required := (total*3 + 3) / 4

	if matches < required {
		m.logger.Warn("device fingerprint mismatch",
			"matches", matches,
			"required", required,
			"total", total)
		return false, nil
	}

	return true, nil
}

package models

import "time"

// Имена сигналов устройства. Порядок в Components не фиксирован:
// json.Marshal сериализует ключи map в отсортированном виде, что дает
// детерминированный дайджест.
const (
	ComponentHostname   = "hostname"
	ComponentTimezone   = "timezone"
	ComponentLanguage   = "language"
	ComponentPlatform   = "platform"
	ComponentMachineID  = "machineid"
	ComponentHardware   = "hardware"
	ComponentSerial     = "serial"
	ComponentInterfaces = "interfaces"
)

// DeviceFingerprint представляет best-effort идентичность устройства,
// собранную из нескольких ненадежных сигналов. ID детерминированно
// вычисляется из Components, но повторная генерация не обязана совпасть:
// система терпима к дрейфу отпечатка.
type DeviceFingerprint struct {
	ID         string            `json:"id"`         // hex, усеченный SHA-256 дайджест Components (32 символа)
	Components map[string]string `json:"components"` // имя сигнала -> значение или sentinel при сбое пробы
	CreatedAt  int64             `json:"createdAt"`  // epoch-ms время генерации
}

// ShortID возвращает первые 8 символов ID для отображения.
func (f *DeviceFingerprint) ShortID() string {
	if len(f.ID) < 8 {
		return f.ID
	}
	return f.ID[:8]
}

// SecureTokenData - полезная нагрузка, которая шифруется и сохраняется
// в хранилище. После записи Token, DeviceID и CreatedAt неизменяемы,
// мутирует только LastUsed (при каждом успешном чтении).
type SecureTokenData struct {
	Token     string             `json:"token"`               // opaque credential от внешнего auth-коллаборатора
	DeviceID  string             `json:"deviceId"`            // DeviceFingerprint.ID на момент записи
	IPAddress string             `json:"ipAddress,omitempty"` // намеренно отключено, оставлено для совместимости
	CreatedAt int64              `json:"createdAt"`           // epoch-ms
	LastUsed  int64              `json:"lastUsed"`            // epoch-ms, обновляется при каждом чтении
	Fingerprint *DeviceFingerprint `json:"fingerprint"`       // полный отпечаток на момент записи
}

// SessionInfo - производное read-only представление сессии.
// Не персистится отдельно, восстанавливается из других полей хранилища.
type SessionInfo struct {
	ID           string `json:"id"`           // первые 8 hex-символов отпечатка
	DeviceID     string `json:"deviceId"`     // полный ID отпечатка
	UserAgent    string `json:"userAgent"`    // строка агента (версия + платформа)
	CreatedAt    int64  `json:"createdAt"`    // время последнего логина, epoch-ms
	LastActivity int64  `json:"lastActivity"` // epoch-ms
	IsActive     bool   `json:"isActive"`     // now - LastActivity < длительность сессии
}

// EpochMillis возвращает t в миллисекундах epoch - формат таймстампов
// во всех персистируемых структурах.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

package api

import "github.com/riskianand4/fieldkeeper/internal/models"

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Username string `json:"username"` // логин пользователя
	Password string `json:"password"` // пароль
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	Token string       `json:"token"` // bearer token
	User  *models.User `json:"user"`  // профиль пользователя
}

// RefreshData - полезная нагрузка успешного обновления токена
type RefreshData struct {
	Token string       `json:"token,omitempty"` // новый bearer token
	User  *models.User `json:"user,omitempty"`  // обновленный профиль (опционально)
}

// RefreshResponse представляет ответ на запрос обновления токена
type RefreshResponse struct {
	Success bool         `json:"success"`        // флаг успеха
	Data    *RefreshData `json:"data,omitempty"` // новые credentials
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

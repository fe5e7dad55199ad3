package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern определяет допустимый формат логина техника.
// Только латинские буквы (a-z, A-Z), цифры (0-9), точка и нижнее
// подчеркивание. Длина: 3-32 символа.
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]{3,32}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
)

// ValidateUsername проверяет, что username соответствует требованиям
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), dots (.) and underscores (_)")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю.
// Политику сложности решает бэкенд, агент отсекает только пустое.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}

package models

// User представляет пользователя диспетчерского бэкенда.
// Сохраняется в открытом виде рядом с зашифрованным токеном:
// данные нужны UI-слою сразу, без round-trip расшифровки.
type User struct {
	ID       string `json:"id"`                 // идентификатор пользователя
	Username string `json:"username"`           // логин
	Name     string `json:"name,omitempty"`     // отображаемое имя
	Role     string `json:"role,omitempty"`     // роль (admin, technician, dispatcher)
	Email    string `json:"email,omitempty"`    // email
	Region   string `json:"region,omitempty"`   // регион обслуживания
}

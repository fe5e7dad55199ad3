package cli

import (
	"context"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	// Пытаемся уведомить бэкенд (best effort): недоступный сервер
	// не должен блокировать локальный logout
	if result := c.store.GetToken(ctx); result != nil {
		c.apiClient.SetToken(result.Token)
		if err := c.apiClient.Logout(ctx); err != nil {
			c.io.Printf("Warning: failed to logout on server: %v\n", err)
		}
	}

	// Всегда сносим локальную сессию
	c.sessions.InvalidateSession(ctx)

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}

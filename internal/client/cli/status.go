package cli

import (
	"context"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Session Status ===")
	c.io.Println("")

	result := c.store.GetToken(ctx)
	if result == nil {
		c.io.Println("Status: Not authenticated")
		c.io.Println("")
		c.io.Println("Run 'fieldkeeper login' to authenticate.")
		return nil
	}

	validation := c.sessions.ValidateSession(ctx)
	if !validation.IsValid {
		c.io.Println("Status: Session expired")
		c.io.Printf("Reason: %s\n", validation.Reason)
		c.io.Println("")
		c.io.Println("Run 'fieldkeeper login' to authenticate again.")
		return nil
	}

	c.io.Println("Status: Authenticated")

	if user := c.store.GetUser(ctx); user != nil {
		c.io.Printf("User: %s (%s)\n", user.Username, user.Role)
	}

	if info := c.sessions.GetSessionInfo(ctx); info != nil {
		c.io.Printf("Session: %s\n", info.ID)
		c.io.Printf("Device: %s\n", info.DeviceID)
		c.io.Printf("Last login: %s\n", time.UnixMilli(info.CreatedAt).Format(time.RFC3339))
		c.io.Printf("Last activity: %s\n", time.UnixMilli(info.LastActivity).Format(time.RFC3339))
	}

	c.io.Printf("Inactivity window remaining: %s\n", validation.TimeRemaining.Round(time.Second))
	if validation.ShouldRefresh {
		c.io.Println("⚠️  Session is close to expiry; a background refresh is due.")
	}
	if c.store.IsRecentLogin(ctx, 0) {
		c.io.Println("✓ Logged in within the last minute")
	}

	return nil
}

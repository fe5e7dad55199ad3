package cli

import (
	"context"
	"fmt"

	"github.com/riskianand4/fieldkeeper/internal/validation"
	pkgapi "github.com/riskianand4/fieldkeeper/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println("")

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return fmt.Errorf("invalid username: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	c.io.Println("")
	c.io.Println("Authenticating...")

	resp, err := c.apiClient.Login(ctx, pkgapi.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("login response contained no token")
	}

	// Токен уходит в исходящий слой и в device-bound хранилище
	c.apiClient.SetToken(resp.Token)

	if ok := c.store.StoreToken(ctx, resp.Token, resp.User); !ok {
		return fmt.Errorf("failed to store credential")
	}

	c.io.Println("")
	c.io.Println("✓ Login successful!")
	if resp.User != nil {
		c.io.Printf("User: %s (%s)\n", resp.User.Username, resp.User.Role)
	}
	c.io.Println("Your session has been bound to this device.")

	return nil
}

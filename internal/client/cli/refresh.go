package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRefresh(ctx context.Context) error {
	c.io.Println("=== Force Refresh ===")

	result := c.store.GetToken(ctx)
	if result == nil {
		return fmt.Errorf("not authenticated. Please run 'fieldkeeper login' first")
	}
	c.apiClient.SetToken(result.Token)

	if ok := c.sessions.ForceRefresh(ctx); !ok {
		return fmt.Errorf("token refresh failed")
	}

	c.io.Println("✓ Token refreshed and re-bound to this device.")
	return nil
}

package cli

import (
	"context"
	"fmt"
)

// runMonitor держит фоновый цикл проверки сессии до сигнала завершения
// или истечения сессии - агентский аналог редиректа на логин.
func (c *Cli) runMonitor(ctx context.Context) error {
	result := c.store.GetToken(ctx)
	if result == nil {
		return fmt.Errorf("not authenticated. Please run 'fieldkeeper login' first")
	}
	c.apiClient.SetToken(result.Token)

	c.io.Println("Session monitoring started. Press Ctrl+C to stop.")

	c.sessions.StartMonitoring(ctx)
	defer c.sessions.StopMonitoring()

	select {
	case <-ctx.Done():
		c.io.Println("Monitoring stopped.")
		return nil
	case event := <-c.expired:
		c.io.Printf("Session expired: %s\n", event.Reason)
		c.io.Println("Run 'fieldkeeper login' to authenticate again.")
		return nil
	}
}

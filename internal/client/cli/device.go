package cli

import (
	"context"
	"fmt"
	"sort"
	"time"
)

func (c *Cli) runDevice(ctx context.Context) error {
	c.io.Println("=== Device Fingerprint ===")
	c.io.Println("")

	fp, err := c.devices.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate fingerprint: %w", err)
	}

	c.io.Printf("ID: %s\n", fp.ID)
	c.io.Printf("Short ID: %s\n", fp.ShortID())
	c.io.Printf("Generated: %s\n", time.UnixMilli(fp.CreatedAt).Format(time.RFC3339))
	c.io.Println("")
	c.io.Println("Components:")

	names := make([]string, 0, len(fp.Components))
	for name := range fp.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c.io.Printf("  %-12s %s\n", name, fp.Components[name])
	}

	return nil
}

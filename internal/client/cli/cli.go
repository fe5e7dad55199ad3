package cli

import (
	"context"
	"fmt"

	"github.com/riskianand4/fieldkeeper/internal/client/api"
	"github.com/riskianand4/fieldkeeper/internal/client/auth"
	"github.com/riskianand4/fieldkeeper/internal/client/iocli"
	"github.com/riskianand4/fieldkeeper/internal/client/session"
	"github.com/riskianand4/fieldkeeper/internal/fingerprint"
)

// Cli связывает команды агента с сервисами. Все зависимости
// инжектируются из composition root.
type Cli struct {
	io        iocli.IO
	apiClient api.ClientAPI
	store     *auth.Store
	sessions  *session.Manager
	devices   *fingerprint.Manager
	expired   <-chan session.ExpiredEvent
}

// New создает Cli
func New(
	io iocli.IO,
	apiClient api.ClientAPI,
	store *auth.Store,
	sessions *session.Manager,
	devices *fingerprint.Manager,
	expired <-chan session.ExpiredEvent,
) *Cli {
	return &Cli{
		io:        io,
		apiClient: apiClient,
		store:     store,
		sessions:  sessions,
		devices:   devices,
		expired:   expired,
	}
}

// Run выполняет команду агента
func (c *Cli) Run(ctx context.Context, command string) error {
	switch command {
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "device":
		return c.runDevice(ctx)
	case "refresh":
		return c.runRefresh(ctx)
	case "monitor":
		return c.runMonitor(ctx)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage печатает справку по командам
func PrintUsage(io iocli.IO) {
	io.Println("Usage: fieldkeeper [flags] <command>")
	io.Println("")
	io.Println("Commands:")
	io.Println("  login    Authenticate and store a device-bound credential")
	io.Println("  logout   Invalidate the local session")
	io.Println("  status   Show session status")
	io.Println("  device   Show the device fingerprint")
	io.Println("  refresh  Force a token refresh")
	io.Println("  monitor  Run the background session monitor until interrupted")
	io.Println("")
	io.Println("Flags:")
	io.Println("  -server  Backend URL (default http://localhost:3000)")
	io.Println("  -db      Path to the local session database")
	io.Println("  -storage Storage backend: bolt or sqlite (default bolt)")
	io.Println("  -version Show version information")
}

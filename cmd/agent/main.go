package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/riskianand4/fieldkeeper/internal/client/api"
	"github.com/riskianand4/fieldkeeper/internal/client/auth"
	"github.com/riskianand4/fieldkeeper/internal/client/cli"
	"github.com/riskianand4/fieldkeeper/internal/client/iocli"
	"github.com/riskianand4/fieldkeeper/internal/client/session"
	"github.com/riskianand4/fieldkeeper/internal/client/storage"
	"github.com/riskianand4/fieldkeeper/internal/client/storage/boltdb"
	"github.com/riskianand4/fieldkeeper/internal/client/storage/sqlite"
	"github.com/riskianand4/fieldkeeper/internal/fingerprint"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

type closableStorage interface {
	storage.SessionStorage
	Close() error
}

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:3000", "Backend URL")
	dbPath := flag.String("db", "fieldkeeper.db", "Path to local session database")
	storageDriver := flag.String("storage", "bolt", "Storage backend: bolt or sqlite")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	io := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(io)
		os.Exit(1)
	}
	command := args[0]

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Контекст с отменой по сигналу: нужен команде monitor
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Открываем хранилище сессии
	sessionStorage, err := openStorage(ctx, *storageDriver, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := sessionStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	// Composition root: менеджеры создаются один раз и инжектируются
	// явно - никаких пакетных синглтонов
	apiClient := api.NewClient(*serverURL)
	devices := fingerprint.NewManager(logger)
	store := auth.NewStore(sessionStorage, devices, apiClient.BaseURL(), logger)

	expired := make(chan session.ExpiredEvent, 1)
	sessions := session.NewManager(store, apiClient, sessionStorage, logger,
		session.WithVersion(Version),
		session.WithExpiryHandler(func(event session.ExpiredEvent) {
			select {
			case expired <- event:
			default:
			}
		}),
	)

	c := cli.New(io, apiClient, store, sessions, devices, expired)

	if err := c.Run(ctx, command); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openStorage(ctx context.Context, driver, dbPath string) (closableStorage, error) {
	switch driver {
	case "bolt":
		return boltdb.New(ctx, dbPath)
	case "sqlite":
		return sqlite.New(ctx, dbPath)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s (expected bolt or sqlite)", driver)
	}
}

func printVersion() {
	fmt.Printf("FieldKeeper Agent\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

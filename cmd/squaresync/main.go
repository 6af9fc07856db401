// Squaresync mirrors a cinema's local catalog — bookings, showtimes,
// categories, membership types, inventory, and tax rates — into a Square
// point-of-sale catalog.
//
// Usage:
//
//	squaresync sync [--kind <kind>] [--config <path>]   # single sync pass then exit
//	squaresync daemon [--config <path>]                 # polling loop + admin API
//	squaresync ensure-category --name <name>            # create and sync a category
//	squaresync status                                   # show config & database state
//	squaresync version                                  # print version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BrandonGoding/squaresync/internal/admin"
	"github.com/BrandonGoding/squaresync/internal/config"
	"github.com/BrandonGoding/squaresync/internal/pricing"
	"github.com/BrandonGoding/squaresync/internal/square"
	"github.com/BrandonGoding/squaresync/internal/store"
	syncp "github.com/BrandonGoding/squaresync/internal/sync"
	"github.com/BrandonGoding/squaresync/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// A local .env can carry SQUARE_ACCESS_TOKEN during development.
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	switch cmd := os.Args[1]; cmd {
	case "sync":
		return runSync(os.Args[2:])
	case "daemon":
		return runDaemon(os.Args[2:])
	case "ensure-category":
		return runEnsureCategory(os.Args[2:])
	case "status":
		return runStatus()
	case "version":
		fmt.Println("squaresync", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q, run 'squaresync' for usage", cmd)
	}
}

func printUsage() error {
	fmt.Fprintln(os.Stderr, "squaresync — mirror the cinema catalog into Square")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  squaresync sync [--kind <kind>] [--config ...]  Single sync pass then exit")
	fmt.Fprintln(os.Stderr, "  squaresync daemon [--config ...]                Polling loop + admin API")
	fmt.Fprintln(os.Stderr, "  squaresync ensure-category --name <name>        Create and sync a category")
	fmt.Fprintln(os.Stderr, "  squaresync status                               Show config & database state")
	fmt.Fprintln(os.Stderr, "  squaresync version                              Print version")
	os.Exit(1)
	return nil // unreachable
}

// commonFlags attaches the flags every engine-backed subcommand shares.
func commonFlags(fs *flag.FlagSet) (cfgPath *string, verbose *bool) {
	defaultCfg, _ := config.DefaultPath()
	cfgPath = fs.String("config", defaultCfg, "path to config.yaml")
	verbose = fs.Bool("verbose", false, "enable debug logging")
	return cfgPath, verbose
}

// --- Subcommands -------------------------------------------------------------

func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	kind := fs.String("kind", "", "sync only this entity kind (tax, category, item, membership, booking)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withEngine(*cfgPath, *verbose, func(ctx context.Context, engine *syncp.Engine, _ *config.Config, logger *slog.Logger) error {
		var kinds []string
		if *kind != "" {
			kinds = append(kinds, *kind)
		}

		stats, err := engine.RunOnce(ctx, kinds...)
		if errors.Is(err, syncp.ErrUnknownKind) {
			return err
		}
		logger.Info("sync complete",
			"created", stats.Created,
			"updated", stats.Updated,
			"skipped", stats.Skipped,
			"errors", stats.Errors,
		)
		// Per-entity failures are already logged and counted; the pass
		// itself ran, so the command exits clean.
		if err != nil {
			logger.Warn("sync pass finished with errors", "error", err)
		}
		return nil
	})
}

func runDaemon(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withEngine(*cfgPath, *verbose, func(ctx context.Context, engine *syncp.Engine, cfg *config.Config, logger *slog.Logger) error {
		if cfg.AdminListen != "" {
			h := admin.NewHandler(engine, version, logger)
			go func() {
				if err := admin.Serve(ctx, cfg.AdminListen, h); err != nil {
					logger.Error("admin server stopped", "error", err)
				}
			}()
		}

		logger.Info("daemon starting", "sync_interval", cfg.SyncInterval)
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("sync engine: %w", err)
		}
		logger.Info("shutdown complete")
		return nil
	})
}

func runEnsureCategory(args []string) error {
	fs := flag.NewFlagSet("ensure-category", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	name := fs.String("name", "", "category name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	return withEngine(*cfgPath, *verbose, func(ctx context.Context, engine *syncp.Engine, _ *config.Config, logger *slog.Logger) error {
		id, err := engine.EnsureCategory(ctx, *name)
		if err != nil {
			return err
		}
		fmt.Printf("category %q → %s\n", *name, id)
		return nil
	})
}

func runStatus() error {
	cfgPath, _ := config.DefaultPath()

	fmt.Println("Squaresync Status")
	fmt.Println("─────────────────")

	dbPath := ""
	if _, err := os.Stat(cfgPath); err == nil {
		if cfg, loadErr := config.Load(cfgPath); loadErr == nil {
			fmt.Printf("  Config:       %s ✓\n", cfgPath)
			fmt.Printf("  Environment:  %s\n", cfg.Environment)
			fmt.Printf("  Currency:     %s\n", cfg.Currency)
			fmt.Printf("  Interval:     %s\n", cfg.SyncInterval)
			if cfg.AdminListen != "" {
				fmt.Printf("  Admin API:    %s\n", cfg.AdminListen)
			}
			dbPath = cfg.DBPath
		} else {
			fmt.Printf("  Config:       %s (invalid: %v)\n", cfgPath, loadErr)
		}
	} else {
		fmt.Printf("  Config:       not found (%s)\n", cfgPath)
	}

	if dbPath == "" {
		dbPath, _ = store.DefaultDBPath()
	}
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("  Database:     %s (%s)\n", dbPath, humanSize(info.Size()))
	} else {
		fmt.Printf("  Database:     not found (%s)\n", dbPath)
	}

	return nil
}

// --- Engine construction (shared by the engine-backed subcommands) -----------

// withEngine loads the config, opens the database, wires the client, sources,
// and engine, and hands control to fn.
func withEngine(cfgPath string, verbose bool, fn func(context.Context, *syncp.Engine, *config.Config, *slog.Logger) error) error {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w", cfgPath, err)
	}
	logger.Info("config loaded",
		"environment", cfg.Environment,
		"currency", cfg.Currency,
		"sync_interval", cfg.SyncInterval,
	)

	if cfg.Telemetry != nil {
		telCfg := telemetry.Config{
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
			ServiceName:  cfg.Telemetry.ServiceName,
			Headers:      cfg.Telemetry.Headers,
		}
		shutdownTel, err := telemetry.Setup(context.Background(), telCfg)
		if err != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		} else {
			logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolving database path: %w", err)
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database at %q: %w", dbPath, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("closing database", "error", closeErr)
		}
	}()
	logger.Info("database opened", "path", dbPath)

	client := square.NewClient(square.BaseURL(cfg.Environment), cfg.AccessToken, logger,
		square.WithTimeout(cfg.RequestTimeout))
	reconciler := syncp.NewReconciler(client, logger)
	resolver := pricing.NewResolver(st)

	// Taxes and categories sync first so items can reference them.
	sources := []syncp.Source{
		syncp.NewTaxSource(st),
		syncp.NewCategorySource(st),
		syncp.NewItemSource(st, cfg.Currency),
		syncp.NewMembershipSource(st, cfg.MembershipCategory),
		syncp.NewBookingSource(st, resolver, logger),
	}
	engine := syncp.NewEngine(reconciler, st, sources, cfg.SyncInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx, engine, cfg, logger)
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/lborres/rota"
	fiberadapter "github.com/lborres/rota/adapters/fiber"
	fileadapter "github.com/lborres/rota/adapters/file"
	"github.com/lborres/rota/adapters/login"
	pgxadapter "github.com/lborres/rota/adapters/pgx"
	"github.com/lborres/rota/pkg/config"
	"github.com/lborres/rota/pkg/crypto"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 0 && args[0] == "hash-key" {
		return hashKey(args[1:])
	}

	var configPath string
	flagSet := pflag.NewFlagSet("rotad", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the rotad YAML config (default: $"+config.EnvVar+")")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	loginClient, err := login.New(login.Config{
		URL:        cfg.Login.URL,
		TokenField: cfg.Login.TokenField,
		Headers:    cfg.Login.Headers,
		Timeout:    cfg.Login.Timeout,
	})
	if err != nil {
		return err
	}

	app := fiber.New()
	app.Use(recoverer.New())
	app.Use(logger.New(logger.Config{
		// Authorization headers and bodies carry credentials and are never logged
		Format:     "${time}|${status}|${latency}|${ip}|${method}|${path}|${error}\n",
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))

	r, err := rota.New(ctx, rota.Config{
		Storage: storage,
		Login:   loginClient,
		HTTP:    fiberadapter.New(app),
		QueueConfig: &rota.QueueConfig{
			LoginFailureCooldown: cfg.Queue.LoginFailureCooldown,
			RejectionCooldown:    cfg.Queue.RejectionCooldown,
		},
		TokenConfig:  &rota.TokenConfig{LoginTimeout: cfg.Login.Timeout},
		AdminKeyHash: cfg.Server.AdminKeyHash,
		Logger:       log,
		BasePath:     cfg.Server.BasePath,
	})
	if err != nil {
		return fmt.Errorf("could not create rota instance: %w", err)
	}

	log.Info("rotad starting",
		"listen", cfg.Server.Listen,
		"base_path", r.BasePath,
		"storage", cfg.Storage.Driver,
		"accounts", r.Status().Total,
	)

	go func() {
		<-ctx.Done()
		if err := r.Persist(context.Background()); err != nil {
			log.Error("final save failed", "error", err)
		}
		_ = app.Shutdown()
	}()

	return app.Listen(cfg.Server.Listen, fiber.ListenConfig{DisableStartupMessage: true})
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (rota.ConfigStorage, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		adapter := pgxadapter.New(pool)
		if err := adapter.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return adapter, pool.Close, nil
	default:
		return fileadapter.New(cfg.Path), func() {}, nil
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, options))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, options))
}

// hashKey prints a new random admin key, or hashes the one given, along
// with the argon2id hash to put in server.admin_key_hash.
func hashKey(args []string) error {
	var key string
	flagSet := pflag.NewFlagSet("hash-key", pflag.ContinueOnError)
	flagSet.StringVar(&key, "key", "", "admin key to hash (default: generate one)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if key == "" {
		generated, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		key = generated
	}

	hash, err := crypto.NewArgon2().Hash(key)
	if err != nil {
		return err
	}

	fmt.Printf("admin key:      %s\nadmin_key_hash: %s\n", key, hash)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `rotad serves the account rotation admin API.

Usage:
  rotad [--config path]
  rotad hash-key [--key value]

Flags:
%s`, flagSet.FlagUsages())
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/email"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/sms"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/cmd"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/log"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/tracing"
)

const (
	defaultPort         = 9090
	defaultPollInterval = 1 * time.Second
)

func main() {
	command := &cli.Command{
		Name:                  "forge-engine",
		Usage:                 "Run the AppForge automation engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Storage backend URL (memory:// or postgres://)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "ledger-url",
				Usage:   "Optional redis:// URL for the execution ledger",
				Sources: cli.EnvVars("LEDGER_URL"),
			},
			&cli.DurationFlag{
				Name:    "schedule-interval",
				Usage:   "How often the scheduler polls for due workflows",
				Value:   defaultPollInterval,
				Sources: cli.EnvVars("SCHEDULE_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces via OTLP (OTEL_EXPORTER_OTLP_* env)",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "smtp-host",
				Usage:   "SMTP host for the email action",
				Sources: cli.EnvVars("SMTP_HOST"),
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Usage:   "SMTP port for the email action",
				Value:   587,
				Sources: cli.EnvVars("SMTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP username",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Usage:   "Default From address for the email action",
				Sources: cli.EnvVars("SMTP_FROM"),
			},
			&cli.StringFlag{
				Name:    "sms-gateway-url",
				Usage:   "HTTP gateway URL for the sms action",
				Sources: cli.EnvVars("SMS_GATEWAY_URL"),
			},
			&cli.StringFlag{
				Name:    "sms-account-id",
				Usage:   "SMS gateway account id",
				Sources: cli.EnvVars("SMS_ACCOUNT_ID"),
			},
			&cli.StringFlag{
				Name:    "sms-auth-token",
				Usage:   "SMS gateway auth token",
				Sources: cli.EnvVars("SMS_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "sms-from",
				Usage:   "Default sender number for the sms action",
				Sources: cli.EnvVars("SMS_FROM"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("engine")
	logger.InfoContext(ctx, "Initializing AppForge automation engine")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if command.Bool("tracing") {
		provider, err := tracing.Init(ctx, "forge-engine")
		if err != nil {
			return err
		}

		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shut down tracer provider", "error", err)
			}
		}()
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	if ledgerURL := command.String("ledger-url"); ledgerURL != "" {
		store, err = cmd.WithRedisLedger(ctx, logger, store, ledgerURL)
		if err != nil {
			return err
		}
	}

	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	reg := cmd.NewRegistry(logger, eventBus, store.RecordStore(), cmd.ActionConfig{
		SMTP: email.SMTPConfig{
			Host:     command.String("smtp-host"),
			Port:     command.Int("smtp-port"),
			Username: command.String("smtp-username"),
			Password: command.String("smtp-password"),
			From:     command.String("smtp-from"),
		},
		SMS: sms.GatewayConfig{
			URL:       command.String("sms-gateway-url"),
			AccountID: command.String("sms-account-id"),
			AuthToken: command.String("sms-auth-token"),
			From:      command.String("sms-from"),
		},
	})

	engine := NewEngine(logger, store, reg, eventBus, command.Duration("schedule-interval"))

	return engine.Start(ctx, command.Int("port"))
}

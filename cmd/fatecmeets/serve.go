// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fatecmeets/fatecmeets/internal/auth"
	"github.com/fatecmeets/fatecmeets/internal/auth/postgres"
	"github.com/fatecmeets/fatecmeets/internal/config"
	"github.com/fatecmeets/fatecmeets/internal/logging"
	"github.com/fatecmeets/fatecmeets/internal/mail"
	"github.com/fatecmeets/fatecmeets/internal/observability"
	"github.com/fatecmeets/fatecmeets/internal/store"
	"github.com/fatecmeets/fatecmeets/pkg/errutil"
)

// services bundles the wired auth services for the running server.
type services struct {
	registration *auth.RegistrationService
	challenges   *auth.ChallengeService
	tokens       *auth.TokenService
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth server",
		Long: `Start the auth server: connects to PostgreSQL, wires the
registration, login challenge and token services, and serves metrics
and health endpoints until interrupted.`,
		RunE: runServe,
	}

	cmd.Flags().String("config", defaultConfigFile, "config file path")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("metrics.addr", "", "metrics/health HTTP address")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().String("mail.host", "", "SMTP host (empty logs codes instead of sending)")
	cmd.Flags().Int("mail.port", 0, "SMTP port")
	cmd.Flags().String("mail.from", "", "sender address for outbound mail")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags(), cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}

	logging.SetDefault("fatecmeets", version, cfg.Log.Format)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	slog.Info("starting fatecmeets server", "metrics_addr", cfg.Metrics.Addr)

	pool, err := store.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	mailer, err := buildMailer(cfg)
	if err != nil {
		return err
	}

	svcs, err := buildServices(pool, mailer)
	if err != nil {
		return err
	}

	obsServer := observability.NewServer(cfg.Metrics.Addr, func() bool {
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		defer pingCancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("fatecmeets server started")
	slog.Info("server ready",
		"registration", svcs.registration != nil,
		"challenges", svcs.challenges != nil,
		"tokens", svcs.tokens != nil,
	)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err, ok := <-obsErrCh:
		if ok && err != nil {
			errutil.LogError(slog.Default(), "observability server failed", err)
			cancel()
		}
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// buildMailer selects SMTP delivery when a host is configured, otherwise
// codes are logged for local development.
func buildMailer(cfg *config.Config) (auth.CodeMailer, error) {
	if cfg.Mail.Host == "" {
		slog.Warn("no SMTP host configured, one-time codes will be logged")
		return mail.NewLogMailer(func(format string, args ...any) {
			slog.Info(fmt.Sprintf(format, args...))
		}), nil
	}
	return mail.NewSMTPMailer(mail.Options{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		From:     cfg.Mail.From,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
	})
}

// buildServices wires the repositories and services onto the pool.
func buildServices(db postgres.TxDB, mailer auth.CodeMailer) (*services, error) {
	transactor := postgres.NewTransactor(db)
	accounts := postgres.NewAccountRepository(db)
	challenges := postgres.NewChallengeRepository(db)
	tokens := postgres.NewTokenRepository(db)
	profiles := postgres.NewProfileRepository(db)
	nicknames := postgres.NewNicknameRepository(db)
	hasher := auth.NewArgon2idHasher()

	tokenSvc, err := auth.NewTokenService(tokens)
	if err != nil {
		return nil, err
	}
	registrationSvc, err := auth.NewRegistrationService(transactor, accounts, profiles, nicknames, hasher, mailer)
	if err != nil {
		return nil, err
	}
	challengeSvc, err := auth.NewChallengeService(accounts, challenges, tokenSvc, hasher, mailer)
	if err != nil {
		return nil, err
	}

	return &services{
		registration: registrationSvc,
		challenges:   challengeSvc,
		tokens:       tokenSvc,
	}, nil
}

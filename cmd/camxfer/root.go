package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/camxfer/internal/collection"
	"github.com/JaimeStill/camxfer/internal/config"
	"github.com/JaimeStill/camxfer/internal/infrastructure"
	"github.com/JaimeStill/camxfer/internal/repair"
	"github.com/JaimeStill/camxfer/internal/verify"
)

type options struct {
	config   string
	user     string
	password string
}

func rootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "camxfer",
		Short:        "Migrate camera-trap collections and reconcile their ledgers",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "Path to the configuration file (default "+config.BaseConfigFile+")")
	cmd.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "Destination store account name")
	cmd.PersistentFlags().StringVarP(&opts.password, "password", "p", "", "Destination store account key")

	cmd.AddCommand(
		transferCommand(opts),
		repairCommand(opts),
		recoverCommand(opts),
		verifyCommand(opts),
		runsCommand(opts),
	)
	return cmd
}

// session is the per-command runtime: configuration, started
// infrastructure, and the collection service built on it.
type session struct {
	cfg     *config.Config
	infra   *infrastructure.Infrastructure
	service *collection.Service
}

func open(cmd *cobra.Command, opts *options) (*session, error) {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyCredentials(opts.user, opts.password); err != nil {
		return nil, err
	}

	infra, err := infrastructure.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, infra: infra}
	if err := infra.Start(); err != nil {
		s.close()
		return nil, fmt.Errorf("startup failed: %w", err)
	}

	s.service = collection.New(infra.Storage, infra.Source, &cfg.Storage, &cfg.Transfer, infra.Logger).
		WithJournal(infra.Journal).
		WithVerifier(verify.New(infra.Storage, verify.ExifTool{Path: cfg.Verify.Tool}, &cfg.Verify, infra.Logger))

	infra.Logger.Info("camxfer ready",
		"env", cfg.Env(),
		"command", cmd.Name(),
		"source", cfg.Source.Kind,
		"matching", cfg.Transfer.Matching,
		"journal", cfg.Database.Enabled)
	return s, nil
}

func (s *session) close() {
	if err := s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration()); err != nil {
		s.infra.Logger.Error("shutdown failed", "error", err)
	}
}

func (s *session) logger() *slog.Logger {
	return s.infra.Logger
}

// rules loads the rule file at p, falling back to the historical defaults.
func rules(p string) ([]repair.Rule, error) {
	if p == "" {
		return repair.DefaultRules(), nil
	}
	return repair.LoadRules(p)
}

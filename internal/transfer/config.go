package transfer

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/camxfer/internal/ledger"
)

// DefaultAuditLog is the audit log file name used when none is configured.
const DefaultAuditLog = "upload_log.csv"

// Config holds transfer engine options.
type Config struct {
	Matching       string `toml:"matching"`
	CorrectSpecies bool   `toml:"correct_species"`
	Archives       bool   `toml:"archives"`
	AuditLog       string `toml:"audit_log"`
	ScratchDir     string `toml:"scratch_dir"`
	RulesFile      string `toml:"rules_file"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Matching       string
	CorrectSpecies string
	Archives       string
	AuditLog       string
	ScratchDir     string
	RulesFile      string
}

// MatchMode returns the parsed ledger matching mode.
func (c *Config) MatchMode() ledger.MatchMode {
	m, _ := ledger.ParseMatchMode(c.Matching)
	return m
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Matching != "" {
		c.Matching = overlay.Matching
	}
	if overlay.CorrectSpecies {
		c.CorrectSpecies = true
	}
	if overlay.Archives {
		c.Archives = true
	}
	if overlay.AuditLog != "" {
		c.AuditLog = overlay.AuditLog
	}
	if overlay.ScratchDir != "" {
		c.ScratchDir = overlay.ScratchDir
	}
	if overlay.RulesFile != "" {
		c.RulesFile = overlay.RulesFile
	}
}

func (c *Config) loadDefaults() {
	if c.Matching == "" {
		c.Matching = "legacy"
	}
	if c.AuditLog == "" {
		c.AuditLog = DefaultAuditLog
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Matching != "" {
		if v := os.Getenv(env.Matching); v != "" {
			c.Matching = v
		}
	}
	if env.CorrectSpecies != "" {
		if v := os.Getenv(env.CorrectSpecies); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.CorrectSpecies = b
			}
		}
	}
	if env.Archives != "" {
		if v := os.Getenv(env.Archives); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Archives = b
			}
		}
	}
	if env.AuditLog != "" {
		if v := os.Getenv(env.AuditLog); v != "" {
			c.AuditLog = v
		}
	}
	if env.ScratchDir != "" {
		if v := os.Getenv(env.ScratchDir); v != "" {
			c.ScratchDir = v
		}
	}
	if env.RulesFile != "" {
		if v := os.Getenv(env.RulesFile); v != "" {
			c.RulesFile = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := ledger.ParseMatchMode(c.Matching); err != nil {
		return fmt.Errorf("invalid matching: %w", err)
	}
	if c.ScratchDir != "" {
		info, err := os.Stat(c.ScratchDir)
		if err != nil {
			return fmt.Errorf("invalid scratch_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("invalid scratch_dir: %s is not a directory", c.ScratchDir)
		}
	}
	return nil
}

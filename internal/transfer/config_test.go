package transfer_test

import (
	"testing"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/internal/transfer"
)

func TestConfigDefaults(t *testing.T) {
	cfg := transfer.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if cfg.MatchMode() != ledger.MatchLegacy {
		t.Errorf("matching: got %v, want legacy", cfg.MatchMode())
	}
	if cfg.AuditLog != transfer.DefaultAuditLog {
		t.Errorf("audit_log: got %s, want %s", cfg.AuditLog, transfer.DefaultAuditLog)
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("TEST_MATCHING", "exact")
	t.Setenv("TEST_CORRECT_SPECIES", "true")

	cfg := transfer.Config{}
	env := &transfer.Env{Matching: "TEST_MATCHING", CorrectSpecies: "TEST_CORRECT_SPECIES"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if cfg.MatchMode() != ledger.MatchExact {
		t.Errorf("matching: got %v, want exact", cfg.MatchMode())
	}
	if !cfg.CorrectSpecies {
		t.Error("correct_species: got false, want true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  transfer.Config
	}{
		{name: "unknown matching", cfg: transfer.Config{Matching: "fuzzy"}},
		{name: "missing scratch dir", cfg: transfer.Config{ScratchDir: "/nonexistent/camxfer-scratch"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

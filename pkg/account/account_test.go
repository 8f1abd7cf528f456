package account

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestLoadDefaults(t *testing.T) {
	dataRoot := t.TempDir()
	cfg, err := Load(7, dataRoot, quietLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EnvPrefix != "ACCOUNT_7" {
		t.Fatalf("expected default env prefix ACCOUNT_7, got %q", cfg.EnvPrefix)
	}
	if cfg.DisplayName != "account-7" {
		t.Fatalf("expected default display name, got %q", cfg.DisplayName)
	}
	if cfg.StartDate != nil {
		t.Fatalf("expected nil start date without ACCOUNT_7_START_DATE set")
	}

	for _, dir := range []string{cfg.QueueDir, cfg.FeedbackDir, cfg.PersonaDir, cfg.OutputDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected %s to be created: %v", dir, err)
		}
	}
}

func TestLoadHonoursEnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNT_3_DISPLAY_NAME", "kitayama-main")
	t.Setenv("ACCOUNT_3_START_DATE", "2026-01-01")
	t.Setenv("ACCOUNT_3_TARGET_USERNAME", "kitayama_ai")

	cfg, err := Load(3, t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DisplayName != "kitayama-main" {
		t.Fatalf("expected overridden display name, got %q", cfg.DisplayName)
	}
	if cfg.StartDate == nil || cfg.StartDate.Format("2006-01-02") != "2026-01-01" {
		t.Fatalf("expected parsed start date 2026-01-01, got %v", cfg.StartDate)
	}
	if cfg.TargetUsername != "kitayama_ai" {
		t.Fatalf("expected target username override, got %q", cfg.TargetUsername)
	}
}

func TestLoadInvalidStartDate(t *testing.T) {
	t.Setenv("ACCOUNT_9_START_DATE", "not-a-date")
	if _, err := Load(9, t.TempDir(), quietLogger()); err == nil {
		t.Fatalf("expected an error for a malformed START_DATE")
	}
}

func TestLoadPersonaPaths(t *testing.T) {
	dataRoot := t.TempDir()
	cfg, err := Load(1, dataRoot, quietLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantPath := filepath.Join(dataRoot, "persona", "account_1_persona.json")
	if cfg.PersonaPath != wantPath {
		t.Fatalf("expected persona path %q, got %q", wantPath, cfg.PersonaPath)
	}
}

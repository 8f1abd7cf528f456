// Package account loads the per-target-account configuration the
// dispatcher needs to address one of several accounts from a single
// process invocation. All knobs come from ACCOUNT_<N>-prefixed
// environment variables.
package account

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is one target account's identity, storage paths, and warm-up
// anchor.
type Config struct {
	ID          int
	EnvPrefix   string
	DisplayName string

	// StartDate anchors the mix planner's warm-up ramp. Nil means no caps
	// apply.
	StartDate *time.Time

	DataDir     string
	QueueDir    string
	FeedbackDir string
	PersonaDir  string
	OutputDir   string

	PersonaPath       string
	PersonaPromptPath string

	TargetUsername string // account whose past posts seed the Persona Analyzer

	Logger *logrus.Logger
}

// Load reads account N's configuration from the environment. envPrefix is
// derived as ACCOUNT_<N> unless overridden by ACCOUNT_<N>_ENV_PREFIX.
func Load(id int, dataRoot string, logger *logrus.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("account: load .env: %w", err)
		}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if dataRoot == "" {
		dataRoot = "data"
	}

	idStr := strconv.Itoa(id)
	envPrefix := getEnvOrDefault(keyFor(idStr, "ENV_PREFIX"), "ACCOUNT_"+idStr)
	displayName := getEnvOrDefault(keyFor(idStr, "DISPLAY_NAME"), "account-"+idStr)
	targetUsername := os.Getenv(keyFor(idStr, "TARGET_USERNAME"))

	var startDate *time.Time
	if v := os.Getenv(keyFor(idStr, "START_DATE")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("account %d: invalid START_DATE %q: %w", id, v, err)
		}
		startDate = &t
	}

	queueDir := filepath.Join(dataRoot, "queue", "account_"+idStr)
	feedbackDir := filepath.Join(dataRoot, "feedback", "account_"+idStr)
	personaDir := filepath.Join(dataRoot, "persona")
	outputDir := filepath.Join(dataRoot, "output")

	cfg := &Config{
		ID:                id,
		EnvPrefix:         envPrefix,
		DisplayName:       displayName,
		StartDate:         startDate,
		DataDir:           dataRoot,
		QueueDir:          queueDir,
		FeedbackDir:       feedbackDir,
		PersonaDir:        personaDir,
		OutputDir:         outputDir,
		PersonaPath:       filepath.Join(personaDir, fmt.Sprintf("account_%d_persona.json", id)),
		PersonaPromptPath: filepath.Join(personaDir, fmt.Sprintf("account_%d_persona_prompt.md", id)),
		TargetUsername:    targetUsername,
		Logger:            logger,
	}

	for _, dir := range []string{queueDir, feedbackDir, personaDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("account %d: mkdir %s: %w", id, dir, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"account_id":   id,
		"env_prefix":   envPrefix,
		"display_name": displayName,
	}).Debug("account: configuration loaded")

	return cfg, nil
}

func keyFor(idStr, suffix string) string {
	return "ACCOUNT_" + idStr + "_" + suffix
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

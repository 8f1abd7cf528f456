package db

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/db/models"
)

// SetupDatabase initializes the metrics warehouse connection and runs
// migrations. Callers should only invoke this when the DB_* variables are
// configured; the warehouse is optional and the weekly report falls back
// to single-cycle output without it.
func SetupDatabase(logger *logrus.Logger) (*gorm.DB, error) {
	logger.Debug("Starting database setup")

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	// Run migrations
	if err := RunMigrations(logger, projectRoot); err != nil {
		return nil, err
	}

	// Construct DSN
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	logger.Debug("Establishing GORM database connection")

	// Connect to database
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormLogrusLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate the Metrics Warehouse schema.
	if err := db.AutoMigrate(&models.PostMetric{}, &models.PDCACycle{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}

	logger.Info("Database setup completed successfully")
	return db, nil
}

// DatabaseConfigured reports whether enough DB_* variables are present to
// attempt SetupDatabase. Callers gate SetupDatabase on this instead of
// treating a missing DB as a configuration error.
func DatabaseConfigured() bool {
	return os.Getenv("DB_HOST") != "" && os.Getenv("DB_NAME") != ""
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourusername/facturio/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTRefreshSecret string
	UploadDir        string
	OCRAPIURL        string
	OCRAPIKey        string
	OCRModel         string
	OCRTimeout       time.Duration
	SolrURL          string
	SolrTimeout      time.Duration
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	return &Config{
		Port:             os.Getenv("PORT"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        getEnvOrDefault("JWT_SECRET", "dev_secret_key_change_in_production"),
		JWTRefreshSecret: getEnvOrDefault("JWT_REFRESH_SECRET", "dev_refresh_secret_change_in_production"),
		UploadDir:        getEnvOrDefault("UPLOAD_DIR", "./uploads"),
		OCRAPIURL:        getEnvOrDefault("OCR_API_URL", "https://api.anthropic.com/v1/messages"),
		OCRAPIKey:        os.Getenv("OCR_API_KEY"),
		OCRModel:         getEnvOrDefault("OCR_MODEL", "claude-sonnet-4-5"),
		OCRTimeout:       getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
		SolrURL:          getEnvOrDefault("SOLR_URL", "http://localhost:8983/solr/invoices"),
		SolrTimeout:      getEnvAsDuration("SOLR_TIMEOUT", 10*time.Second),
	}, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Invoice{}, &models.LineItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

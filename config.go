package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is read once from the environment at startup.
type Config struct {
	DataFile       string
	Port           string
	CORSOrigins    []string
	CloudinaryURL  string
	BackupTimeout  time.Duration
	BackupSchedule string
	BackupDir      string
	DevMode        bool
	MySQLDSN       string
	TiDBCA         string
	RateLimitRPS   float64
	RateLimitBurst int
	LogLevel       string
	LogFormat      string
}

// loadEnvFile merges a .env file into the environment when it exists.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env (%s): %w", path, err)
	}
	return nil
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		DataFile:       getenv("DATA_FILE", "/app/data/shopping_list.json"),
		Port:           getenv("PORT", "8000"),
		CloudinaryURL:  os.Getenv("CLOUDINARY_URL"),
		BackupSchedule: strings.TrimSpace(os.Getenv("BACKUP_SCHEDULE")),
		BackupDir:      getenv("BACKUP_DIR", "./data/backups"),
		MySQLDSN:       os.Getenv("MYSQL_DSN"),
		TiDBCA:         os.Getenv("TIDB_CA"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
	}

	if v := os.Getenv("DEV_MODE"); v == "1" || strings.ToLower(v) == "true" {
		cfg.DevMode = true
	}

	for _, o := range strings.Split(getenv("CORS_ORIGIN", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	timeout, err := time.ParseDuration(getenv("BACKUP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKUP_TIMEOUT: %w", err)
	}
	cfg.BackupTimeout = timeout

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64)
		if err != nil || cfg.RateLimitRPS < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q", v)
		}
	}
	cfg.RateLimitBurst, err = strconv.Atoi(getenv("RATE_LIMIT_BURST", "10"))
	if err != nil || cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST")
	}

	if cfg.DataFile == "" {
		return nil, errors.New("DATA_FILE must not be empty")
	}
	return cfg, nil
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(cfg *Config) (*logrus.Logger, error) {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(lvl)
	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}
	return log, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

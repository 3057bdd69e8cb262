// Package config loads pipeline settings from a .env file and the
// environment. A .env beside the executable wins; LOOTBOT_ENV can point at
// an alternate file; plain environment variables override either.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Donobuz/BDO-Loot-Bot-sub001/screenshot"
)

const EnvPathVar = "LOOTBOT_ENV"

type Config struct {
	Region            screenshot.Region
	IntervalMs        int
	Location          string
	CatalogFile       string
	TesseractLang     string
	SessionLogDir     string
	EnableFileLogging bool
	OCRTimeoutSec     int
	QueueDepth        int

	// Dedup threshold overrides, milliseconds. Zero keeps the defaults.
	DedupWindowMs int
	SameRowTTLMs  int
	ShiftTTLMs    int
	BurstWindowMs int
}

func Load() (*Config, error) {
	if path := resolveEnvPath(); path != "" {
		_ = godotenv.Load(path)
	}

	cfg := &Config{
		Region: screenshot.Region{
			X:      envInt("REGION_X", 0),
			Y:      envInt("REGION_Y", 0),
			Width:  envInt("REGION_WIDTH", 400),
			Height: envInt("REGION_HEIGHT", 300),
		},
		IntervalMs:        envInt("CAPTURE_INTERVAL_MS", 500),
		Location:          os.Getenv("LOCATION"),
		CatalogFile:       envDefault("CATALOG_FILE", "catalog.yaml"),
		TesseractLang:     envDefault("TESSERACT_LANG", "eng"),
		SessionLogDir:     envDefault("SESSION_LOG_DIR", "logs"),
		EnableFileLogging: strings.EqualFold(os.Getenv("ENABLE_FILE_LOGGING"), "true"),
		OCRTimeoutSec:     envInt("OCR_TIMEOUT_SEC", 5),
		QueueDepth:        envInt("QUEUE_DEPTH", 8),
		DedupWindowMs:     envInt("DEDUP_WINDOW_MS", 0),
		SameRowTTLMs:      envInt("DEDUP_SAME_ROW_MS", 0),
		ShiftTTLMs:        envInt("DEDUP_SHIFT_MS", 0),
		BurstWindowMs:     envInt("DEDUP_BURST_MS", 0),
	}
	return cfg, nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if alt := os.Getenv(EnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return ""
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IntervalMs != 500 {
		t.Errorf("IntervalMs = %d, want 500", cfg.IntervalMs)
	}
	if cfg.Region.Width != 400 || cfg.Region.Height != 300 {
		t.Errorf("unexpected default region: %+v", cfg.Region)
	}
	if cfg.TesseractLang != "eng" || cfg.CatalogFile != "catalog.yaml" {
		t.Errorf("unexpected defaults: lang=%q catalog=%q", cfg.TesseractLang, cfg.CatalogFile)
	}
	if cfg.OCRTimeoutSec != 5 || cfg.QueueDepth != 8 {
		t.Errorf("unexpected defaults: timeout=%d depth=%d", cfg.OCRTimeoutSec, cfg.QueueDepth)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CAPTURE_INTERVAL_MS", "250")
	t.Setenv("REGION_WIDTH", "640")
	t.Setenv("LOCATION", "Polly Forest")
	t.Setenv("ENABLE_FILE_LOGGING", "TRUE")
	t.Setenv("DEDUP_BURST_MS", "150")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IntervalMs != 250 || cfg.Region.Width != 640 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.Location != "Polly Forest" {
		t.Errorf("Location = %q", cfg.Location)
	}
	if !cfg.EnableFileLogging {
		t.Error("ENABLE_FILE_LOGGING=TRUE should enable file logging")
	}
	if cfg.BurstWindowMs != 150 {
		t.Errorf("BurstWindowMs = %d, want 150", cfg.BurstWindowMs)
	}
}

func TestMalformedIntFallsBack(t *testing.T) {
	t.Setenv("CAPTURE_INTERVAL_MS", "fast")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IntervalMs != 500 {
		t.Errorf("IntervalMs = %d, want default 500", cfg.IntervalMs)
	}
}

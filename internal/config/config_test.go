package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"INVENTAR_HOST", "INVENTAR_PORT", "INVENTAR_CACHE_DIR",
		"INVENTAR_DB", "INVENTAR_STORE", "INVENTAR_LOG",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Store != "sqlite" {
		t.Errorf("expected default store sqlite, got %q", cfg.Store)
	}
	if cfg.CacheDir != "cache" {
		t.Errorf("expected default cache dir, got %q", cfg.CacheDir)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("INVENTAR_PORT", "9000")
	t.Setenv("INVENTAR_STORE", "json")
	t.Setenv("INVENTAR_DB", "items.json")

	cfg := Load()
	if cfg.Port != "9000" || cfg.Store != "json" || cfg.DBPath != "items.json" {
		t.Errorf("environment not honored: %+v", cfg)
	}
}

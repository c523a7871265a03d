package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_FIRESTORE_PROJECT_ID": "demo-project",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout %s", cfg.Server.ReadTimeout)
	}
	if cfg.Catalog.Currency != "USD" {
		t.Fatalf("expected default currency USD, got %s", cfg.Catalog.Currency)
	}
	if cfg.Cart.Quantity != 1 {
		t.Fatalf("expected default cart quantity 1, got %d", cfg.Cart.Quantity)
	}
	if cfg.Selection.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected session TTL %s", cfg.Selection.SessionTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_SERVER_PORT":              "9090",
			"API_SERVER_READ_TIMEOUT":      "5s",
			"API_FIRESTORE_PROJECT_ID":     "demo-project",
			"API_FIRESTORE_EMULATOR_HOST":  "localhost:8900",
			"API_CATALOG_CURRENCY":         "eur",
			"API_CART_ENDPOINT":            "https://shop.example.com/cart/add.js",
			"API_CART_TIMEOUT":             "3s",
			"API_SELECTION_SESSION_TTL":    "10m",
			"API_SELECTION_SWEEP_INTERVAL": "1m",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("unexpected read timeout %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.EmulatorHost != "localhost:8900" {
		t.Fatalf("unexpected emulator host %s", cfg.Firestore.EmulatorHost)
	}
	if cfg.Catalog.Currency != "EUR" {
		t.Fatalf("expected currency EUR, got %s", cfg.Catalog.Currency)
	}
	if cfg.Cart.Endpoint != "https://shop.example.com/cart/add.js" {
		t.Fatalf("unexpected cart endpoint %s", cfg.Cart.Endpoint)
	}
	if cfg.Selection.SessionTTL != 10*time.Minute {
		t.Fatalf("unexpected session TTL %s", cfg.Selection.SessionTTL)
	}
	if cfg.Selection.SweepInterval != time.Minute {
		t.Fatalf("unexpected sweep interval %s", cfg.Selection.SweepInterval)
	}
}

func TestLoadMissingProject(t *testing.T) {
	_, err := Load(WithEnvFile(""), WithEnvMap(map[string]string{}))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validationErr.Fields()
	if len(fields) != 1 || fields[0] != "Firestore.ProjectID" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadInvalidCurrency(t *testing.T) {
	_, err := Load(
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_FIRESTORE_PROJECT_ID": "demo-project",
			"API_CATALOG_CURRENCY":     "DOLLARS",
		}),
	)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "# local overrides\nAPI_FIRESTORE_PROJECT_ID=file-project\nAPI_SERVER_PORT=\"7070\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithEnvFile(path), WithEnvMap(map[string]string{}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firestore.ProjectID != "file-project" {
		t.Fatalf("expected project from env file, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected quoted port stripped to 7070, got %s", cfg.Server.Port)
	}
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(filepath.Join(t.TempDir(), "absent.env")),
		WithEnvMap(map[string]string{
			"API_FIRESTORE_PROJECT_ID": "demo-project",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firestore.ProjectID != "demo-project" {
		t.Fatalf("unexpected project %s", cfg.Firestore.ProjectID)
	}
}

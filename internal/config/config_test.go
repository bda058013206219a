package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidateRejectsMissingCredentials(t *testing.T) {
	cfg := defaults()

	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for missing API credentials")
	}
}

func TestValidateRejectsBadTriggers(t *testing.T) {
	cfg := defaults()
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	cfg.ProfileA.BuyTrigger = 1.2

	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for buy_trigger >= 1")
	}
}

func TestValidateAcceptsDefaultsWithCredentials(t *testing.T) {
	cfg := defaults()
	cfg.APIKey = "key"
	cfg.APISecret = "secret"

	if err := validate(cfg); err != nil {
		t.Fatalf("expected config to be valid, got %v", err)
	}
}

func TestValidateRequiresEmailCredentialsWhenRecipientSet(t *testing.T) {
	cfg := defaults()
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	cfg.Email.To = "ops@example.com"

	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for missing email credentials")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "sentinel.yaml")
	configContents := `
poll_interval: 30s
risk_pct: 0.02
profile_a:
  buy_trigger: 0.99
  sell_trigger: 1.05
  stop_multiplier: 0.25
  symbols_file: a.txt
base_url: https://file.example.com
`
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "env-secret")
	t.Setenv("APCA_BASE_URL", "https://env.example.com")

	resetFlags := resetFlagSet(t)
	defer resetFlags()

	os.Args = []string{
		"sentinel",
		"--config", configPath,
		"--poll-interval", "15s",
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.PollInterval != 15*time.Second {
		t.Fatalf("expected poll interval from CLI, got %s", cfg.PollInterval)
	}
	if cfg.BaseURL != "https://env.example.com" {
		t.Fatalf("expected base URL from env, got %q", cfg.BaseURL)
	}
	if cfg.RiskPct != 0.02 {
		t.Fatalf("expected risk_pct from file, got %v", cfg.RiskPct)
	}
	if cfg.ProfileA.BuyTrigger != 0.99 {
		t.Fatalf("expected profile A buy trigger from file, got %v", cfg.ProfileA.BuyTrigger)
	}
	if cfg.ProfileB.SellTrigger != 1.03 {
		t.Fatalf("expected profile B defaults untouched, got %v", cfg.ProfileB.SellTrigger)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.APIKey)
	}
}

func TestLoadLegacyCredentialNames(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "")
	t.Setenv("APCA_API_SECRET_KEY", "")
	t.Setenv("APCA_API_KEY", "legacy-key")
	t.Setenv("APCA_API_SECRET", "legacy-secret")

	resetFlags := resetFlagSet(t)
	defer resetFlags()
	os.Args = []string{"sentinel", "--config", filepath.Join(t.TempDir(), "absent.yaml")}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIKey != "legacy-key" || cfg.APISecret != "legacy-secret" {
		t.Fatalf("expected legacy credential names honored, got %q/%q", cfg.APIKey, cfg.APISecret)
	}
}

func TestReadSymbolsSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte("AAPL\n\n  MSFT \nTSLA\n"), 0o600); err != nil {
		t.Fatalf("write symbols: %v", err)
	}

	symbols, err := ReadSymbols(path)
	if err != nil {
		t.Fatalf("read symbols: %v", err)
	}
	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(symbols) != len(want) {
		t.Fatalf("expected %d symbols, got %v", len(want), symbols)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Fatalf("expected %q at %d, got %q", want[i], i, symbols[i])
		}
	}
}

func resetFlagSet(t *testing.T) func() {
	t.Helper()
	originalArgs := os.Args
	originalCommandLine := flag.CommandLine
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	return func() {
		flag.CommandLine = originalCommandLine
		os.Args = originalArgs
	}
}

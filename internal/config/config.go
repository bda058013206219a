package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProfileName identifies one of the two bot profiles sharing the engine.
type ProfileName string

const (
	ProfileA ProfileName = "A"
	ProfileB ProfileName = "B"
)

// Profile holds the trigger ratios for one bot profile. A is tighter and
// faster, B wider and slower; both run through the same engine.
type Profile struct {
	Name           ProfileName `yaml:"-"`
	BuyTrigger     float64     `yaml:"buy_trigger"`
	SellTrigger    float64     `yaml:"sell_trigger"`
	StopMultiplier float64     `yaml:"stop_multiplier"`
	SymbolsFile    string      `yaml:"symbols_file"`
}

type Email struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Password string `yaml:"-"`
	To       string `yaml:"to"`
}

type Retry struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// Config is loaded once at startup and shared by reference; nothing mutates
// it after Load returns.
type Config struct {
	ProfileA Profile `yaml:"profile_a"`
	ProfileB Profile `yaml:"profile_b"`

	ATRPeriod        int     `yaml:"atr_period"`
	RiskPct          float64 `yaml:"risk_pct"`
	ResetHours       int     `yaml:"reset_hours"`
	BaselineDrift    float64 `yaml:"baseline_drift"`
	VolatilityFilter float64 `yaml:"volatility_filter"`
	VolatilityFloor  float64 `yaml:"volatility_floor"`

	PollInterval time.Duration `yaml:"poll_interval"`
	KillSwitch   bool          `yaml:"kill_switch"`

	Timezone    string `yaml:"timezone"`
	LunchStart  string `yaml:"lunch_start"`
	LunchEnd    string `yaml:"lunch_end"`
	MarketClose string `yaml:"market_close"`

	LedgerPath    string `yaml:"ledger_path"`
	WindowPath    string `yaml:"window_path"`
	BaselinePath  string `yaml:"baseline_path"`
	TradeLogPath  string `yaml:"trade_log_path"`
	PositionsPath string `yaml:"positions_path"`

	Email Email `yaml:"email"`
	Retry Retry `yaml:"retry"`

	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ProfileA: Profile{Name: ProfileA, BuyTrigger: 0.995, SellTrigger: 1.09, StopMultiplier: 0.3, SymbolsFile: "botA_symbols.txt"},
		ProfileB: Profile{Name: ProfileB, BuyTrigger: 0.98, SellTrigger: 1.03, StopMultiplier: 0.5, SymbolsFile: "botB_symbols.txt"},

		ATRPeriod:        14,
		RiskPct:          0.015,
		ResetHours:       6,
		BaselineDrift:    0.05,
		VolatilityFilter: 0.02,
		VolatilityFloor:  0.0001,

		PollInterval: 60 * time.Second,

		Timezone:    "America/New_York",
		LunchStart:  "11:30",
		LunchEnd:    "13:00",
		MarketClose: "16:00",

		LedgerPath:    "purchase_dates.json",
		WindowPath:    "window_state.json",
		BaselinePath:  "baselines.json",
		TradeLogPath:  "trade_log.ndjson",
		PositionsPath: "positions.json",

		Email: Email{Host: "smtp.gmail.com", Port: 587},
		Retry: Retry{
			MaxAttempts:      5,
			BaseDelay:        5 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  60 * time.Second,
		},

		BaseURL: "https://paper-api.alpaca.markets",
	}
}

// Load builds the Config with precedence flags > env > config file > defaults.
func Load() (Config, error) {
	loadDotEnvIfPresent(".env")

	var (
		configPath   string
		pollInterval time.Duration
		killSwitch   bool
		symbolsA     string
		symbolsB     string
	)
	flag.StringVar(&configPath, "config", "sentinel.yaml", "path to YAML config file")
	flag.DurationVar(&pollInterval, "poll-interval", 60*time.Second, "delay between polling cycles")
	flag.BoolVar(&killSwitch, "kill-switch", false, "if true, never place orders")
	flag.StringVar(&symbolsA, "symbols-a", "", "symbols file for profile A")
	flag.StringVar(&symbolsB, "symbols-b", "", "symbols file for profile B")
	flag.Parse()

	cfg := defaults()
	if err := applyFile(&cfg, configPath); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll-interval":
			cfg.PollInterval = pollInterval
		case "kill-switch":
			cfg.KillSwitch = killSwitch
		case "symbols-a":
			cfg.ProfileA.SymbolsFile = symbolsA
		case "symbols-b":
			cfg.ProfileB.SymbolsFile = symbolsB
		}
	})

	cfg.ProfileA.Name = ProfileA
	cfg.ProfileB.Name = ProfileB

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadDotEnvIfPresent(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	// APCA_API_KEY_ID is the canonical name, APCA_API_KEY the legacy one.
	cfg.APIKey = firstEnv("APCA_API_KEY_ID", "APCA_API_KEY")
	cfg.APISecret = firstEnv("APCA_API_SECRET_KEY", "APCA_API_SECRET")
	if v := os.Getenv("APCA_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("EMAIL_ADDRESS"); v != "" {
		cfg.Email.From = v
		if cfg.Email.To == "" {
			cfg.Email.To = v
		}
	}
	if v := os.Getenv("EMAIL_PASSWORD"); v != "" {
		cfg.Email.Password = v
	}
	if v := os.Getenv("TO_EMAIL"); v != "" {
		cfg.Email.To = v
	}
	if v := os.Getenv("EMAIL_HOST"); v != "" {
		cfg.Email.Host = v
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func validate(cfg Config) error {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required")
	}
	if cfg.Email.To != "" && (cfg.Email.From == "" || cfg.Email.Password == "") {
		return fmt.Errorf("EMAIL_ADDRESS and EMAIL_PASSWORD are required when a summary recipient is set")
	}
	for _, p := range []Profile{cfg.ProfileA, cfg.ProfileB} {
		if p.BuyTrigger <= 0 || p.BuyTrigger >= 1 {
			return fmt.Errorf("profile %s: buy_trigger must be in (0, 1)", p.Name)
		}
		if p.SellTrigger <= 1 {
			return fmt.Errorf("profile %s: sell_trigger must be > 1", p.Name)
		}
		if p.StopMultiplier <= 0 {
			return fmt.Errorf("profile %s: stop_multiplier must be > 0", p.Name)
		}
		if p.SymbolsFile == "" {
			return fmt.Errorf("profile %s: symbols file is required", p.Name)
		}
	}
	if cfg.ATRPeriod < 2 {
		return fmt.Errorf("atr_period must be >= 2")
	}
	if cfg.RiskPct <= 0 || cfg.RiskPct > 1 {
		return fmt.Errorf("risk_pct must be in (0, 1]")
	}
	if cfg.ResetHours <= 0 {
		return fmt.Errorf("reset_hours must be > 0")
	}
	if cfg.BaselineDrift <= 0 {
		return fmt.Errorf("baseline_drift must be > 0")
	}
	if cfg.VolatilityFilter <= 0 {
		return fmt.Errorf("volatility_filter must be > 0")
	}
	if cfg.VolatilityFloor <= 0 {
		return fmt.Errorf("volatility_floor must be > 0")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be > 0")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max_attempts must be > 0")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

// Profiles returns both bot profiles in evaluation order.
func (c Config) Profiles() []Profile {
	return []Profile{c.ProfileA, c.ProfileB}
}

// ReadSymbols reads a symbols file: one ticker per line, blank lines skipped.
func ReadSymbols(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer file.Close()

	var symbols []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			symbols = append(symbols, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	return symbols, nil
}

// Package config loads the engine's runtime configuration from environment
// variables, with risk limits broken out into a separate YAML file so they
// can be tuned without a redeploy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// RiskLimits are the tunable gates RiskEngine and PositionSizer enforce.
// Loaded from a YAML file so an operator can tighten them without a redeploy.
type RiskLimits struct {
	MinHealthFactor          decimal.Decimal `yaml:"min_health_factor"`
	EmergencyHealthFactor    decimal.Decimal `yaml:"emergency_health_factor"`
	CriticalHealthFactor     decimal.Decimal `yaml:"critical_health_factor"`
	MarginFractionThreshold  decimal.Decimal `yaml:"margin_fraction_threshold"`
	LiquidationProximityPct  decimal.Decimal `yaml:"liquidation_proximity_pct"`
	LiquidationProximitySecs int             `yaml:"liquidation_proximity_seconds"`
	MaxPriceDeviation        decimal.Decimal `yaml:"max_price_deviation"`
	DeltaDriftWarning        decimal.Decimal `yaml:"delta_drift_warning"`
	DeltaDriftCritical       decimal.Decimal `yaml:"delta_drift_critical"`
	MaxFundingVolatility     decimal.Decimal `yaml:"max_funding_volatility"`
	DefaultDeploymentPct     decimal.Decimal `yaml:"default_deployment_pct"`
	MaxDeploymentPct         decimal.Decimal `yaml:"max_deployment_pct"`
	MinLeverage              decimal.Decimal `yaml:"min_leverage"`
	MaxLeverage              decimal.Decimal `yaml:"max_leverage"`
	DefaultLeverage          decimal.Decimal `yaml:"default_leverage"`
	MinPositionUSD           decimal.Decimal `yaml:"min_position_usd"`
	MaxAcceptableDeviation   decimal.Decimal `yaml:"max_acceptable_deviation"`
	StopLossPct              decimal.Decimal `yaml:"stop_loss_pct"`
	TakeProfitPct            decimal.Decimal `yaml:"take_profit_pct"`
	MinExitCarryAPY          decimal.Decimal `yaml:"min_exit_carry_apy"`
	CircuitBreakerCooldown   time.Duration   `yaml:"circuit_breaker_cooldown"`
	MaxSingleLegExposureSecs int             `yaml:"max_single_leg_exposure_seconds"`
}

// DefaultRiskLimits mirrors the constants the original risk engine hardcoded.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MinHealthFactor:          decimal.NewFromFloat(0.20),
		EmergencyHealthFactor:    decimal.NewFromFloat(0.10),
		CriticalHealthFactor:     decimal.NewFromFloat(0.05),
		MarginFractionThreshold:  decimal.NewFromFloat(0.10),
		LiquidationProximityPct:  decimal.NewFromFloat(0.20),
		LiquidationProximitySecs: 20,
		MaxPriceDeviation:        decimal.NewFromFloat(0.02),
		DeltaDriftWarning:        decimal.NewFromFloat(0.005),
		DeltaDriftCritical:       decimal.NewFromFloat(0.02),
		MaxFundingVolatility:     decimal.NewFromFloat(0.5),
		DefaultDeploymentPct:     decimal.NewFromFloat(0.10),
		MaxDeploymentPct:         decimal.NewFromFloat(0.50),
		MinLeverage:              decimal.NewFromInt(1),
		MaxLeverage:              decimal.NewFromFloat(4.0),
		DefaultLeverage:          decimal.NewFromFloat(3.0),
		MinPositionUSD:           decimal.NewFromInt(1000),
		MaxAcceptableDeviation:   decimal.NewFromFloat(0.005),
		StopLossPct:              decimal.NewFromFloat(-0.02),
		TakeProfitPct:            decimal.NewFromFloat(0.15),
		MinExitCarryAPY:          decimal.NewFromFloat(0.03),
		CircuitBreakerCooldown:   5 * time.Minute,
		MaxSingleLegExposureSecs: 120,
	}
}

// LoadRiskLimits reads risk limits from a YAML file, falling back to
// DefaultRiskLimits for any field the file omits implicitly (zero decimal).
func LoadRiskLimits(path string) (RiskLimits, error) {
	limits := DefaultRiskLimits()
	if path == "" {
		return limits, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return limits, nil
	}
	if err != nil {
		return limits, fmt.Errorf("read risk limits file: %w", err)
	}
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return limits, fmt.Errorf("parse risk limits file %s: %w", path, err)
	}
	return limits, nil
}

// Config is the engine's full runtime configuration.
type Config struct {
	Debug  bool
	DryRun bool

	// Chain RPC endpoints
	SolanaRPCURL     string
	ArbitrumRPCURL   string
	HyperliquidAPIURL string

	// Wallet credentials
	SolanaWalletPrivateKey string
	EVMWalletPrivateKey    string

	// Persistence
	DatabaseDSN string

	// Kill switch
	KillSwitchPath         string
	KillSwitchPollInterval time.Duration

	// Scheduling
	ScanInterval    time.Duration
	MonitorInterval time.Duration

	// Deployed capital assumption for scans that haven't sized yet
	DeployedCapitalUSD decimal.Decimal

	// Notification
	TelegramToken  string
	TelegramChatID int64

	// Feature gates
	EnableAutoExit bool

	// AdminAPIKey gates manual pause/resume actions against the pause
	// controller; empty in DRY_RUN deployments where no admin surface runs.
	AdminAPIKey string

	Risk RiskLimits
}

// Load reads the engine configuration from the environment, plus an
// optional YAML risk-limits file pointed to by RISK_LIMITS_PATH.
func Load() (*Config, error) {
	risk, err := LoadRiskLimits(getEnv("RISK_LIMITS_PATH", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Debug:  getEnvBool("DEBUG", false),
		DryRun: getEnvBool("DRY_RUN", true),

		SolanaRPCURL:      getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		ArbitrumRPCURL:    getEnv("ARBITRUM_RPC_URL", "https://arb1.arbitrum.io/rpc"),
		HyperliquidAPIURL: getEnv("HYPERLIQUID_API_URL", "https://api.hyperliquid.xyz"),

		SolanaWalletPrivateKey: os.Getenv("SOLANA_WALLET_PRIVATE_KEY"),
		EVMWalletPrivateKey:    os.Getenv("EVM_WALLET_PRIVATE_KEY"),

		DatabaseDSN: getEnv("DATABASE_DSN", "data/basisbot.db"),

		KillSwitchPath:         getEnv("KILL_SWITCH_PATH", "/data/emergency.stop"),
		KillSwitchPollInterval: getEnvDuration("KILL_SWITCH_POLL_INTERVAL", 5*time.Second),

		ScanInterval:    getEnvDuration("SCAN_INTERVAL", 5*time.Minute),
		MonitorInterval: getEnvDuration("MONITOR_INTERVAL", 30*time.Second),

		DeployedCapitalUSD: getEnvDecimal("DEPLOYED_CAPITAL_USD", decimal.NewFromInt(50000)),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		EnableAutoExit: getEnvBool("ENABLE_AUTO_EXIT", false),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		Risk: risk,
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if !cfg.DryRun {
		if cfg.SolanaWalletPrivateKey == "" {
			return nil, fmt.Errorf("SOLANA_WALLET_PRIVATE_KEY is required when DRY_RUN=false")
		}
		if cfg.EVMWalletPrivateKey == "" {
			return nil, fmt.Errorf("EVM_WALLET_PRIVATE_KEY is required when DRY_RUN=false")
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

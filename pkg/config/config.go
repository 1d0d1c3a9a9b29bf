package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// maxTokenDecimals bounds token precision so scaled amounts stay within uint256.
const maxTokenDecimals = 36

// Config represents the bridge agent configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Database     DatabaseConfig     `yaml:"database"`
	Wallet       WalletConfig       `yaml:"wallet"`
	Confirmation ConfirmationConfig `yaml:"confirmation"`
	Fee          FeeConfig          `yaml:"fee"`
	Approval     ApprovalConfig     `yaml:"approval"`
	Auth         AuthConfig         `yaml:"auth"`
	CORS         CORSConfig         `yaml:"cors"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Chains       []ChainConfig      `yaml:"chains" validate:"required,min=2,dive"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"127.0.0.1"`
	Port            int           `yaml:"port" default:"8090" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// MonitoringConfig contains metrics settings
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// DatabaseConfig contains settings for the optional receipt journal
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"bridge_agent"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// WalletConfig contains the key-backed wallet settings
type WalletConfig struct {
	// PrivateKeyEnv names the environment variable holding the hex private key.
	PrivateKeyEnv       string        `yaml:"private_key_env" default:"BRIDGE_WALLET_PRIVATE_KEY"`
	DefaultChainID      uint64        `yaml:"default_chain_id"`
	GasLimit            uint64        `yaml:"gas_limit" default:"300000"`
	MaxGasPrice         string        `yaml:"max_gas_price"`
	ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval" default:"2s"`
	AutoConnect         bool          `yaml:"auto_connect" default:"true"`
}

// ConfirmationConfig contains the confirmation backend settings
type ConfirmationConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	PollInterval   time.Duration `yaml:"poll_interval" default:"10s"`
	MaxAttempts    int           `yaml:"max_attempts" default:"60" validate:"min=1"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"15s"`
}

// FeeConfig contains the displayed fee schedule
type FeeConfig struct {
	Rate      string `yaml:"rate" default:"0.03"`
	LPShare   string `yaml:"lp_share" default:"0.70"`
	Precision int32  `yaml:"precision" default:"6" validate:"min=0,max=18"`
}

// ApprovalConfig contains the allowance ceiling granted to bridge contracts
type ApprovalConfig struct {
	// Ceiling is expressed in whole tokens and scaled by the token decimals.
	Ceiling string `yaml:"ceiling" default:"100000000"`
}

// AuthConfig contains bearer-token settings for state-changing endpoints
type AuthConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
	// SecretEnv names the environment variable holding the HMAC secret.
	SecretEnv string `yaml:"secret_env" default:"BRIDGE_AGENT_JWT_SECRET"`
	JWKSURL   string `yaml:"jwks_url" validate:"omitempty,url"`
	Issuer    string `yaml:"issuer"`
}

// CORSConfig contains the browser origins allowed to call the agent
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig contains per-IP request limits
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" default:"120" validate:"min=0"`
}

// ChainConfig describes one supported chain in the registry
type ChainConfig struct {
	ID               int           `yaml:"id"`
	Name             string        `yaml:"name" validate:"required"`
	Network          string        `yaml:"network"`
	ChainID          uint64        `yaml:"chain_id" validate:"required"`
	RPCURL           string        `yaml:"rpc_url" validate:"required,url"`
	BlockExplorerURL string        `yaml:"block_explorer_url"`
	IconURL          string        `yaml:"icon_url"`
	BridgeContract   string        `yaml:"bridge_contract" validate:"required,eth_addr"`
	PoolContract     string        `yaml:"pool_contract" validate:"omitempty,eth_addr"`
	Tokens           []TokenConfig `yaml:"tokens" validate:"dive"`
}

// TokenConfig describes one token supported on a chain
type TokenConfig struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol" validate:"required"`
	Address  string `yaml:"address" validate:"required,eth_addr"`
	Decimals uint8  `yaml:"decimals"`
	IconURL  string `yaml:"icon_url"`
}

// Load loads configuration from a YAML file, applies defaults and validates it
func Load(configPath string) (*Config, error) {
	body, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(body)
}

// Parse decodes a YAML document into a validated Config
func Parse(body []byte) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return err
	}

	seen := make(map[uint64]struct{}, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		if _, ok := seen[chain.ChainID]; ok {
			return fmt.Errorf("duplicate chain_id %d", chain.ChainID)
		}
		seen[chain.ChainID] = struct{}{}
		for _, token := range chain.Tokens {
			if token.Decimals > maxTokenDecimals {
				return fmt.Errorf("chain %d token %s: decimals %d exceeds %d",
					chain.ChainID, token.Symbol, token.Decimals, maxTokenDecimals)
			}
		}
	}
	if cfg.Wallet.DefaultChainID != 0 {
		if _, ok := seen[cfg.Wallet.DefaultChainID]; !ok {
			return fmt.Errorf("wallet.default_chain_id %d is not a configured chain", cfg.Wallet.DefaultChainID)
		}
	}

	rate, err := decimal.NewFromString(cfg.Fee.Rate)
	if err != nil {
		return fmt.Errorf("fee.rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("fee.rate must be in [0, 1)")
	}
	share, err := decimal.NewFromString(cfg.Fee.LPShare)
	if err != nil {
		return fmt.Errorf("fee.lp_share: %w", err)
	}
	if share.IsNegative() || share.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("fee.lp_share must be in [0, 1]")
	}

	ceiling, err := decimal.NewFromString(cfg.Approval.Ceiling)
	if err != nil {
		return fmt.Errorf("approval.ceiling: %w", err)
	}
	if !ceiling.IsPositive() {
		return errors.New("approval.ceiling must be positive")
	}

	if cfg.Database.Enabled && cfg.Database.Host == "" {
		return errors.New("database.host is required when database.enabled")
	}
	return nil
}

// PrivateKey returns the wallet key from the configured environment variable
func (c *WalletConfig) PrivateKey() (string, error) {
	if c.PrivateKeyEnv == "" {
		return "", errors.New("wallet.private_key_env is empty")
	}
	key := strings.TrimPrefix(strings.TrimSpace(os.Getenv(c.PrivateKeyEnv)), "0x")
	if key == "" {
		return "", fmt.Errorf("wallet private key not set: env=%s", c.PrivateKeyEnv)
	}
	return key, nil
}

// Secret returns the HMAC secret from the configured environment variable.
// It is empty when the variable is unset.
func (c *AuthConfig) Secret() []byte {
	if c.SecretEnv == "" {
		return nil
	}
	secret := strings.TrimSpace(os.Getenv(c.SecretEnv))
	if secret == "" {
		return nil
	}
	return []byte(secret)
}

// Address returns the listen address of the HTTP server
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Address returns the host:port of the database server
func (c *DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

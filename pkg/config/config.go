package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Session       SessionConfig       `yaml:"session"`
	Verification  VerificationConfig  `yaml:"verification"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Solana        SolanaConfig        `yaml:"solana"`
	Monero        MoneroConfig        `yaml:"monero"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Security      SecurityConfig      `yaml:"security"`
	JWT           JWTConfig           `yaml:"jwt"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	MintAddresses map[string]string   `yaml:"mint_addresses"` // token_symbol -> mint_address
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// ClaimTTL bounds how long a session may sit in processing before the
	// sweep returns it to pending. Must exceed the adapter timeout.
	ClaimTTL time.Duration `yaml:"claim_ttl"`
}

type VerificationConfig struct {
	// ToleranceFraction absorbs price-feed and precision drift: a payment of
	// at least expected * (1 - tolerance_fraction) is accepted.
	ToleranceFraction float64       `yaml:"tolerance_fraction"`
	MinConfirmations  int64         `yaml:"min_confirmations"`
	AdapterTimeout    time.Duration `yaml:"adapter_timeout"`
}

type NotificationsConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	BackoffBase     time.Duration `yaml:"backoff_base"`
	BackoffCap      time.Duration `yaml:"backoff_cap"`
	WebhookWorkers  int           `yaml:"webhook_workers"`
	EmailWorkers    int           `yaml:"email_workers"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
	BatchSize       int           `yaml:"batch_size"`
	DoneRetention   time.Duration `yaml:"done_retention"`

	// StaleAfter is how long an in_flight job may go without an outcome
	// before the recovery sweep requeues it. Zero means five delivery
	// timeouts.
	StaleAfter time.Duration `yaml:"stale_after"`
}

type SolanaConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type MoneroConfig struct {
	WalletRPCURL string        `yaml:"wallet_rpc_url"`
	AccountIndex uint32        `yaml:"account_index"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type SecurityConfig struct {
	APIKey               string `yaml:"api_key"`
	InboundWebhookSecret string `yaml:"inbound_webhook_secret"`
}

type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type WebSocketConfig struct {
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`
	CheckOrigin     bool `yaml:"check_origin"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var config Config
	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

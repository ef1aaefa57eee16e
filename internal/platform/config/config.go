// Package config loads process configuration from the environment. Values can
// be supplied through .env files for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// SepoliaChainID is the network the deployed contract lives on.
const SepoliaChainID uint64 = 11155111

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `env:"CIVIC_ADDR" envDefault:":8080"`
	MetricsPath       string        `env:"METRICS_PATH" envDefault:"/metrics"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"3m"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"2m"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Ledger selects and configures the chain backend.
type Ledger struct {
	Backend         string `env:"LEDGER_BACKEND" envDefault:"memory"` // memory or eth
	RPCURL          string `env:"LEDGER_RPC_URL"`
	ContractAddress string `env:"LEDGER_CONTRACT_ADDRESS"`
	ExpectedChainID uint64 `env:"LEDGER_CHAIN_ID" envDefault:"11155111"`
	// PrivateKey is the hex-encoded wallet key. Empty means no wallet is connected.
	PrivateKey string `env:"WALLET_PRIVATE_KEY"`
	// AdminAddress owns the in-memory contract.
	AdminAddress string `env:"LEDGER_ADMIN_ADDRESS"`
	// WalletAddress is the identity used with the memory backend.
	WalletAddress string `env:"WALLET_ADDRESS"`
}

// Validate checks backend-specific requirements.
func (l *Ledger) Validate() error {
	switch l.Backend {
	case "memory":
		return nil
	case "eth":
		if l.RPCURL == "" {
			return errors.New("LEDGER_RPC_URL is required when LEDGER_BACKEND is 'eth'")
		}
		if l.ContractAddress == "" {
			return errors.New("LEDGER_CONTRACT_ADDRESS is required when LEDGER_BACKEND is 'eth'")
		}
		return nil
	default:
		return fmt.Errorf("LEDGER_BACKEND must be 'memory' or 'eth', got '%s'", l.Backend)
	}
}

// Enrichment configures the off-chain store, both the engine's view of it and
// the store this process serves.
type Enrichment struct {
	// Client is "inprocess" to call the local store directly or "http" to use BaseURL.
	Client      string `env:"ENRICHMENT_CLIENT" envDefault:"inprocess"`
	BaseURL     string `env:"ENRICHMENT_BASE_URL" envDefault:"http://127.0.0.1:5000"`
	Store       string `env:"ENRICHMENT_STORE" envDefault:"memory"` // memory or postgres
	DatabaseURL string `env:"ENRICHMENT_DATABASE_URL"`
	UploadDir   string `env:"ENRICHMENT_UPLOAD_DIR" envDefault:"uploads"`
}

func (e *Enrichment) Validate() error {
	if e.Client != "inprocess" && e.Client != "http" {
		return fmt.Errorf("ENRICHMENT_CLIENT must be 'inprocess' or 'http', got '%s'", e.Client)
	}
	if e.Store != "memory" && e.Store != "postgres" {
		return fmt.Errorf("ENRICHMENT_STORE must be 'memory' or 'postgres', got '%s'", e.Store)
	}
	if e.Store == "postgres" && e.DatabaseURL == "" {
		return errors.New("ENRICHMENT_DATABASE_URL is required when ENRICHMENT_STORE is 'postgres'")
	}
	return nil
}

// RedisConfig carries connection settings for the view store.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type View struct {
	Backend string `env:"VIEW_BACKEND" envDefault:"memory"` // memory or redis
	Key     string `env:"VIEW_REDIS_KEY" envDefault:"civicledger:view"`
	Redis   RedisConfig
}

func (v *View) Validate() error {
	if v.Backend != "memory" && v.Backend != "redis" {
		return fmt.Errorf("VIEW_BACKEND must be 'memory' or 'redis', got '%s'", v.Backend)
	}
	if v.Backend == "redis" && v.Redis.URL == "" {
		return errors.New("REDIS_URL is required when VIEW_BACKEND is 'redis'")
	}
	return nil
}

type Audit struct {
	Backend      string   `env:"AUDIT_BACKEND" envDefault:"memory"` // memory, kafka or postgres
	KafkaBrokers []string `env:"AUDIT_KAFKA_BROKERS" envSeparator:","`
	Topic        string   `env:"AUDIT_KAFKA_TOPIC" envDefault:"civicledger.audit"`
	DatabaseURL  string   `env:"AUDIT_DATABASE_URL"`
	BufferSize   int      `env:"AUDIT_BUFFER_SIZE" envDefault:"256"`
}

func (a *Audit) Validate() error {
	switch a.Backend {
	case "memory":
		return nil
	case "kafka":
		if len(a.KafkaBrokers) == 0 {
			return errors.New("AUDIT_KAFKA_BROKERS is required when AUDIT_BACKEND is 'kafka'")
		}
		return nil
	case "postgres":
		if a.DatabaseURL == "" {
			return errors.New("AUDIT_DATABASE_URL is required when AUDIT_BACKEND is 'postgres'")
		}
		return nil
	default:
		return fmt.Errorf("AUDIT_BACKEND must be 'memory', 'kafka' or 'postgres', got '%s'", a.Backend)
	}
}

// Sync controls full reconciliation against the ledger.
type Sync struct {
	// Interval between background syncs; zero disables the worker.
	Interval    time.Duration `env:"SYNC_INTERVAL" envDefault:"0s"`
	Concurrency int           `env:"SYNC_CONCURRENCY" envDefault:"4"`
	OnStartup   bool          `env:"SYNC_ON_STARTUP" envDefault:"true"`
}

// Role carries operator role flags.
type Role struct {
	// AutoRegisterDepartment registers the wallet as a department at startup when it is not one yet.
	AutoRegisterDepartment bool `env:"AUTO_REGISTER_DEPARTMENT" envDefault:"false"`
}

type Config struct {
	Server     Server
	Log        Log
	Ledger     Ledger
	Enrichment Enrichment
	View       View
	Audit      Audit
	Sync       Sync
	Role       Role
}

// Validate checks every section.
func (c *Config) Validate() error {
	return errors.Join(
		c.Ledger.Validate(),
		c.Enrichment.Validate(),
		c.View.Validate(),
		c.Audit.Validate(),
	)
}

// LoadEnv loads the .env files that exist, ignoring missing ones.
func LoadEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// FromEnv parses and validates the configuration.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Ledger.Backend = strings.ToLower(cfg.Ledger.Backend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

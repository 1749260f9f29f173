// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for mortgage-simulator.
type Configuration struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging,omitempty"`
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Financing   FinancingConfig   `mapstructure:"financing" yaml:"financing"`
	Persistence PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`
	Document    DocumentConfig    `mapstructure:"document" yaml:"document"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	RateLimit   RateLimitConfig   `mapstructure:"rateLimit" yaml:"rateLimit"`
}

// ServerConfig holds HTTP listener options.
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	MaxBodySize     string        `mapstructure:"maxBodySize" yaml:"maxBodySize"` // e.g. 2M, 512K
	ReadTimeout     time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// StorageConfig selects and configures the proposal record store.
type StorageConfig struct {
	Driver string       `mapstructure:"driver" yaml:"driver"` // sqlite, redis
	SQLite SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis" yaml:"redis"`
}

// SQLiteConfig configures the embedded SQLite store.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Address   string `mapstructure:"address" yaml:"address"`
	Password  string `mapstructure:"password" yaml:"password,omitempty"`
	DB        int    `mapstructure:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"keyPrefix" yaml:"keyPrefix,omitempty"`
}

// FinancingConfig holds the defaults offered to borrowers.
type FinancingConfig struct {
	AnnualInterestRate    float64 `mapstructure:"annualInterestRate" yaml:"annualInterestRate"`
	DownPaymentPercentage float64 `mapstructure:"downPaymentPercentage" yaml:"downPaymentPercentage"`
	LoanTermYears         int     `mapstructure:"loanTermYears" yaml:"loanTermYears"`
	LoanTermOptions       []int   `mapstructure:"loanTermOptions" yaml:"loanTermOptions"`
}

// PersistenceConfig controls retries when saving accepted proposals.
type PersistenceConfig struct {
	MaxAttempts int           `mapstructure:"maxAttempts" yaml:"maxAttempts"`
	BaseDelay   time.Duration `mapstructure:"baseDelay" yaml:"baseDelay"`
}

// DocumentConfig controls proposal document rendering.
type DocumentConfig struct {
	Locale            string `mapstructure:"locale" yaml:"locale"`
	MaxSignatureBytes int    `mapstructure:"maxSignatureBytes" yaml:"maxSignatureBytes"`
}

// AuthConfig configures admin bearer tokens. An empty secret disables the
// admin API.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret" yaml:"jwtSecret,omitempty"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
	TokenTTL  time.Duration `mapstructure:"tokenTTL" yaml:"tokenTTL"`
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	ClientTTL         time.Duration `mapstructure:"clientTTL" yaml:"clientTTL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", "2M")
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")

	v.SetDefault("storage.driver", constants.StorageDriverSQLite)
	v.SetDefault("storage.sqlite.path", constants.DefaultSQLitePath)
	v.SetDefault("storage.redis.address", constants.DefaultRedisAddress)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.keyPrefix", "")

	v.SetDefault("financing.annualInterestRate", constants.DefaultAnnualInterestRate)
	v.SetDefault("financing.downPaymentPercentage", constants.DefaultDownPaymentPercentage)
	v.SetDefault("financing.loanTermYears", constants.DefaultLoanTermYears)
	v.SetDefault("financing.loanTermOptions", constants.LoanTermOptions)

	v.SetDefault("persistence.maxAttempts", constants.DefaultPersistAttempts)
	v.SetDefault("persistence.baseDelay", constants.DefaultPersistBaseDelaySeconds*time.Second)

	v.SetDefault("document.locale", constants.DefaultLocale)
	v.SetDefault("document.maxSignatureBytes", 512*1024)

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.issuer", "mortgage-simulator")
	v.SetDefault("auth.tokenTTL", 12*time.Hour)

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerSecond", constants.DefaultRateLimitPerSecond)
	v.SetDefault("rateLimit.burst", constants.DefaultRateLimitBurst)
	v.SetDefault("rateLimit.clientTTL", 10*time.Minute)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there on top of the built-in defaults. Environment variables
// prefixed with MORTGAGE_ override both, e.g. MORTGAGE_STORAGE_DRIVER. A
// missing file is not an error; defaults and the environment are used.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file, %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}

	return &configuration, nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Configuration) Validate() error {
	switch c.Storage.Driver {
	case constants.StorageDriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required for the sqlite driver")
		}
	case constants.StorageDriverRedis:
		if c.Storage.Redis.Address == "" {
			return errors.New("storage.redis.address is required for the redis driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q, expected %s or %s",
			c.Storage.Driver, constants.StorageDriverSQLite, constants.StorageDriverRedis)
	}

	if c.Financing.AnnualInterestRate < 0 {
		return fmt.Errorf("financing.annualInterestRate must not be negative, got %v", c.Financing.AnnualInterestRate)
	}
	if c.Financing.DownPaymentPercentage < constants.MinimumDownPaymentPercentage || c.Financing.DownPaymentPercentage > 100 {
		return fmt.Errorf("financing.downPaymentPercentage must be between %.0f and 100, got %v",
			constants.MinimumDownPaymentPercentage, c.Financing.DownPaymentPercentage)
	}
	if c.Financing.LoanTermYears <= 0 || c.Financing.LoanTermYears > constants.MaxLoanTermYears {
		return fmt.Errorf("financing.loanTermYears must be between 1 and %d, got %d",
			constants.MaxLoanTermYears, c.Financing.LoanTermYears)
	}
	for _, term := range c.Financing.LoanTermOptions {
		if term <= 0 || term > constants.MaxLoanTermYears {
			return fmt.Errorf("financing.loanTermOptions must be between 1 and %d, got %d",
				constants.MaxLoanTermYears, term)
		}
	}

	if c.Persistence.MaxAttempts < 1 {
		return fmt.Errorf("persistence.maxAttempts must be at least 1, got %d", c.Persistence.MaxAttempts)
	}
	if c.Persistence.BaseDelay < 0 {
		return fmt.Errorf("persistence.baseDelay must not be negative, got %s", c.Persistence.BaseDelay)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rateLimit.requestsPerSecond and rateLimit.burst must be positive when rate limiting is enabled")
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"

	"rentmarket/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Worker     WorkerConfig     `yaml:"worker"`
	Exports    ExportConfig     `yaml:"exports"`
	Products   []models.Product `yaml:"products"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type PricingConfig struct {
	// LateFeeMultiplier scales the average daily rate used as the
	// fallback late-fee base.
	LateFeeMultiplier float64 `yaml:"late_fee_multiplier"`
	MaxRentalDays     int     `yaml:"max_rental_days"`
}

type WorkerConfig struct {
	OverdueScanEnabled  bool `yaml:"overdue_scan_enabled"`
	ScanIntervalSeconds int  `yaml:"scan_interval_seconds"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment wins over the file either way
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// expand ${VAR} references before parsing
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis.address is required when redis is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.api_keys is required when auth is enabled")
	}
	return ValidateProducts(c.Products)
}

func ValidateProducts(products []models.Product) error {
	ids := make(map[string]bool)
	for _, p := range products {
		if p.ID == "" {
			return fmt.Errorf("product %q has no id", p.Name)
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate product id: %s", p.ID)
		}
		ids[p.ID] = true
		if p.TotalUnits < 1 {
			return fmt.Errorf("product %s needs at least one unit", p.ID)
		}
		if p.DailyRate < 0 || p.WeeklyRate < 0 || p.MonthlyRate < 0 || p.LateFeePerDay < 0 {
			return fmt.Errorf("product %s has a negative rate", p.ID)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		c.Kafka.Topic = "reservation-events"
	}
	if c.Pricing.LateFeeMultiplier == 0 {
		c.Pricing.LateFeeMultiplier = models.DefaultLateFeeMultiplier
	}
	if c.Pricing.MaxRentalDays == 0 {
		c.Pricing.MaxRentalDays = models.DefaultMaxRentalDays
	}
	if c.Worker.ScanIntervalSeconds == 0 {
		c.Worker.ScanIntervalSeconds = models.DefaultScanIntervalSeconds
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

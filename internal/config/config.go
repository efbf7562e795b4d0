package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the ITC compliance service
type Config struct {
	Server        ServerConfig
	Loader        LoaderConfig
	Database      DatabaseConfig
	S3            S3Config
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	Auth          AuthConfig
	Signing       SigningConfig
	Logging       LoggingConfig
	Compliance    ComplianceConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoaderConfig selects where entity snapshots are loaded from
type LoaderConfig struct {
	// Source is one of: file, postgres, s3, mock
	Source string `mapstructure:"source"`
	// Dir is the snapshot directory for the file source
	Dir string `mapstructure:"dir"`
	// MockSeed drives the deterministic generator for the mock source
	MockSeed int64 `mapstructure:"mock_seed"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// S3Config holds object storage configuration for snapshot buckets
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"` // For local testing with MinIO
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ElasticsearchConfig holds the query-audit index configuration
type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// KafkaConfig holds the snapshot-published rebuild trigger configuration
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	SnapshotTopic string   `mapstructure:"snapshot_topic"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
}

// SigningConfig holds the query-audit HMAC settings
type SigningConfig struct {
	AuditHMACSecret string `mapstructure:"audit_hmac_secret"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ComplianceConfig holds the statutory parameters of the compliance engines
type ComplianceConfig struct {
	PaymentWindowDays  int     `mapstructure:"payment_window_days"`
	WarningWindowDays  int     `mapstructure:"warning_window_days"`
	AnnualInterestRate float64 `mapstructure:"annual_interest_rate"`
	DefaultMaxHops     int     `mapstructure:"default_max_hops"`
	MaxHopsLimit       int     `mapstructure:"max_hops_limit"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ITC")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Loader
	v.SetDefault("loader.source", "mock")
	v.SetDefault("loader.dir", "./data")
	v.SetDefault("loader.mock_seed", 42)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "gst_snapshots")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// S3
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "gst-entity-snapshots")
	v.SetDefault("s3.prefix", "latest")
	v.SetDefault("s3.use_ssl", true)

	// Elasticsearch
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "elastic")
	v.SetDefault("elasticsearch.password", "changeme")
	v.SetDefault("elasticsearch.index", "itc-query-audits")

	// Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "itc-compliance-service")
	v.SetDefault("kafka.snapshot_topic", "gst.snapshots.published")

	// Auth
	v.SetDefault("auth.jwt_public_key_path", "")
	v.SetDefault("auth.jwt_issuer", "gst-auth-service")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")

	// Compliance: Section 16(2)(b) window, Rule 37 warning lead time,
	// Section 50 interest rate.
	v.SetDefault("compliance.payment_window_days", 180)
	v.SetDefault("compliance.warning_window_days", 150)
	v.SetDefault("compliance.annual_interest_rate", 0.18)
	v.SetDefault("compliance.default_max_hops", 3)
	v.SetDefault("compliance.max_hops_limit", 6)
}

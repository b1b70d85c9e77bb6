// Package config loads and validates the indexer's configuration from a
// YAML file with DI_* environment-variable overrides. Every subsystem has
// its own typed section.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server       ServerConfig     `yaml:"server"`
	Postgres     PostgresConfig   `yaml:"postgres"`
	Kafka        KafkaConfig      `yaml:"kafka"`
	Redis        RedisConfig      `yaml:"redis"`
	Blob         BlobConfig       `yaml:"blob"`
	Dictionaries DictionaryConfig `yaml:"dictionaries"`
	Indexer      IndexerConfig    `yaml:"indexer"`
	Search       SearchConfig     `yaml:"search"`
	Auth         AuthConfig       `yaml:"auth"`
	Logging      LoggingConfig    `yaml:"logging"`
	Tracing      TracingConfig    `yaml:"tracing"`
	Metrics      MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds broker and topic settings. Events are optional: with
// Enabled false, cache invalidation happens in-process.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexEvents string `yaml:"indexEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// BlobConfig points at the S3-compatible bucket holding original files.
type BlobConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	Region         string        `yaml:"region"`
	Bucket         string        `yaml:"bucket"`
	AccessKey      string        `yaml:"accessKey"`
	SecretKey      string        `yaml:"secretKey"`
	UsePathStyle   bool          `yaml:"usePathStyle"`
	PartSize       int64         `yaml:"partSize"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// DictionaryConfig locates the stop-word list and compiled artifacts. Only
// the stop-word list is mandatory.
type DictionaryConfig struct {
	StopWords string `yaml:"stopWords"`
	Lemmas    string `yaml:"lemmas"`
	Frequency string `yaml:"frequency"`
}

// IndexerConfig controls keyword extraction and upload limits.
type IndexerConfig struct {
	MinTokenLength    int    `yaml:"minTokenLength"`
	TitleWeight       uint64 `yaml:"titleWeight"`
	DescriptionWeight uint64 `yaml:"descriptionWeight"`
	WeightMode        string `yaml:"weightMode"`
	Workers           int    `yaml:"workers"`
	ChunkSize         int    `yaml:"chunkSize"`
	SpellingCacheSize int    `yaml:"spellingCacheSize"`
	MaxUploadSize     int64  `yaml:"maxUploadSize"`
	UploadsPerMinute  int    `yaml:"uploadsPerMinute"`
}

// SearchConfig controls result limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
}

// AuthConfig lists the API keys allowed to modify the index.
type AuthConfig struct {
	APIKeys []string `yaml:"apiKeys"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Dictionaries.StopWords == "" {
		errs = append(errs, errors.New("dictionaries.stopWords is required"))
	}
	if c.Blob.Bucket == "" {
		errs = append(errs, errors.New("blob.bucket is required"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		errs = append(errs, errors.New("search limits must satisfy 0 < defaultLimit <= maxResults"))
	}
	switch c.Indexer.WeightMode {
	case "", "multiply", "bonus":
	default:
		errs = append(errs, fmt.Errorf("indexer.weightMode %q is not multiply or bonus", c.Indexer.WeightMode))
	}
	return errors.Join(errs...)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			RequestTimeout:  45 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docindexer",
			User:            "docindexer",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docindexer",
			Topics: KafkaTopics{
				IndexEvents: "document.index-events",
			},
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Blob: BlobConfig{
			Region:         "us-east-1",
			Bucket:         "documents",
			UsePathStyle:   true,
			PartSize:       8 << 20,
			RequestTimeout: 30 * time.Second,
		},
		Dictionaries: DictionaryConfig{
			StopWords: "data/stopwords.txt",
		},
		Indexer: IndexerConfig{
			MinTokenLength:    2,
			TitleWeight:       2,
			DescriptionWeight: 2,
			WeightMode:        "multiply",
			ChunkSize:         32,
			SpellingCacheSize: 50_000,
			MaxUploadSize:     32 << 20,
			UploadsPerMinute:  60,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxResults:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envList(name string, dst *[]string) {
	if v := os.Getenv(name); v != "" {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
	}
}

// applyEnvOverrides reads DI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	envInt("DI_SERVER_PORT", &cfg.Server.Port)
	envString("DI_POSTGRES_HOST", &cfg.Postgres.Host)
	envInt("DI_POSTGRES_PORT", &cfg.Postgres.Port)
	envString("DI_POSTGRES_DATABASE", &cfg.Postgres.Database)
	envString("DI_POSTGRES_USER", &cfg.Postgres.User)
	envString("DI_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	envString("DI_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	envBool("DI_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	envList("DI_KAFKA_BROKERS", &cfg.Kafka.Brokers)
	envBool("DI_REDIS_ENABLED", &cfg.Redis.Enabled)
	envString("DI_REDIS_ADDR", &cfg.Redis.Addr)
	envString("DI_REDIS_PASSWORD", &cfg.Redis.Password)
	envString("DI_BLOB_ENDPOINT", &cfg.Blob.Endpoint)
	envString("DI_BLOB_REGION", &cfg.Blob.Region)
	envString("DI_BLOB_BUCKET", &cfg.Blob.Bucket)
	envString("DI_BLOB_ACCESS_KEY", &cfg.Blob.AccessKey)
	envString("DI_BLOB_SECRET_KEY", &cfg.Blob.SecretKey)
	envString("DI_STOPWORDS", &cfg.Dictionaries.StopWords)
	envString("DI_LEMMAS", &cfg.Dictionaries.Lemmas)
	envString("DI_FREQUENCY", &cfg.Dictionaries.Frequency)
	envString("DI_INDEXER_WEIGHT_MODE", &cfg.Indexer.WeightMode)
	envList("DI_API_KEYS", &cfg.Auth.APIKeys)
	envString("DI_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("DI_LOGGING_FORMAT", &cfg.Logging.Format)
	envInt("DI_METRICS_PORT", &cfg.Metrics.Port)
}

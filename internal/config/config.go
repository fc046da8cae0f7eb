package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Index       IndexConfig
	Sequence    SequenceConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	SearchCache SearchCacheConfig
	RateLimit   RateLimitConfig
	Auth        AuthConfig
	Kafka       KafkaConfig
	MinIO       MinIOConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	StaticDir    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// IndexConfig selects and configures the full-text index backend.
type IndexConfig struct {
	Backend         string // "bleve" or "elasticsearch"
	Name            string
	BlevePath       string
	URL             string
	Username        string
	Password        string
	InsecureSkipTLS bool
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// SequenceConfig selects the identifier allocator.
type SequenceConfig struct {
	Backend string // "index", "redis" or "mongo"
	Key     string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port for go-redis.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type SearchCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type AuthConfig struct {
	JWTSecret string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

const (
	IndexBackendBleve         = "bleve"
	IndexBackendElasticsearch = "elasticsearch"

	SequenceBackendIndex = "index"
	SequenceBackendRedis = "redis"
	SequenceBackendMongo = "mongo"
)

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("INDEX_BACKEND", IndexBackendBleve)
	v.SetDefault("INDEX_NAME", "debate2025")
	v.SetDefault("BLEVE_PATH", "data/debate2025.bleve")
	v.SetDefault("ELASTICSEARCH_URL", "https://localhost:9200")
	v.SetDefault("ELASTICSEARCH_USERNAME", "elastic")
	v.SetDefault("ELASTICSEARCH_INSECURE_SKIP_VERIFY", true)
	v.SetDefault("INDEX_CONNECT_ATTEMPTS", 5)
	v.SetDefault("INDEX_CONNECT_DELAY_SECONDS", 5)
	v.SetDefault("SEQUENCE_BACKEND", SequenceBackendIndex)
	v.SetDefault("SEQUENCE_KEY", "catalog:sequence:documents")
	v.SetDefault("MONGODB_DATABASE", "catalog")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SEARCH_CACHE_TTL_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("KAFKA_TOPIC", "catalog.documents")
	v.SetDefault("MINIO_BUCKET", "catalog-snapshots")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			StaticDir:    v.GetString("STATIC_DIR"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Index: IndexConfig{
			Backend:         strings.ToLower(v.GetString("INDEX_BACKEND")),
			Name:            v.GetString("INDEX_NAME"),
			BlevePath:       v.GetString("BLEVE_PATH"),
			URL:             v.GetString("ELASTICSEARCH_URL"),
			Username:        v.GetString("ELASTICSEARCH_USERNAME"),
			Password:        v.GetString("ELASTICSEARCH_PASSWORD"),
			InsecureSkipTLS: v.GetBool("ELASTICSEARCH_INSECURE_SKIP_VERIFY"),
			ConnectAttempts: v.GetInt("INDEX_CONNECT_ATTEMPTS"),
			ConnectDelay:    time.Duration(v.GetInt("INDEX_CONNECT_DELAY_SECONDS")) * time.Second,
		},
		Sequence: SequenceConfig{
			Backend: strings.ToLower(v.GetString("SEQUENCE_BACKEND")),
			Key:     v.GetString("SEQUENCE_KEY"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		SearchCache: SearchCacheConfig{
			Enabled: v.GetBool("SEARCH_CACHE_ENABLED"),
			TTL:     time.Duration(v.GetInt("SEARCH_CACHE_TTL_SECONDS")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("AUTH_JWT_SECRET"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Index.Backend {
	case IndexBackendBleve, IndexBackendElasticsearch:
	default:
		return fmt.Errorf("unsupported INDEX_BACKEND %q", c.Index.Backend)
	}
	switch c.Sequence.Backend {
	case SequenceBackendIndex:
	case SequenceBackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("SEQUENCE_BACKEND=redis requires REDIS_HOST")
		}
	case SequenceBackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("SEQUENCE_BACKEND=mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("unsupported SEQUENCE_BACKEND %q", c.Sequence.Backend)
	}
	if c.SearchCache.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("SEARCH_CACHE_ENABLED requires REDIS_HOST")
	}
	if c.Index.ConnectAttempts <= 0 {
		c.Index.ConnectAttempts = 1
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

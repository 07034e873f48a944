package config

import (
	"time"

	pkgconfig "github.com/weiawesome/quill/pkg/config"
	"github.com/weiawesome/quill/pkg/jwt"
	"github.com/weiawesome/quill/pkg/middleware"
	"github.com/weiawesome/quill/pkg/pubsub"
	"github.com/weiawesome/quill/pkg/storage"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Events     pubsub.Config
	Reconciler ReconcilerConfig
	Identity   jwt.Config
	Cache      CacheConfig
	Feed       FeedConfig
	RateLimit  middleware.RateLimitConfig `mapstructure:"rate_limit"`
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig configures the Debezium CDC consumer for the follows table.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type ReconcilerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	TopN     int           `mapstructure:"top_n"`
}

type CacheConfig struct {
	Prefix      string        `mapstructure:"prefix"`
	ProfileTTL  time.Duration `mapstructure:"profile_ttl"`
	TrendingTTL time.Duration `mapstructure:"trending_ttl"`
}

type FeedConfig struct {
	DefaultLimit     int `mapstructure:"default_limit"`
	MaxLimit         int `mapstructure:"max_limit"`
	SuggestionsLimit int `mapstructure:"suggestions_limit"`
	TrendingLimit    int `mapstructure:"trending_limit"`
	AuthorPostsLimit int `mapstructure:"author_posts_limit"`
}

type StorageConfig struct {
	Enabled       bool             `mapstructure:"enabled"`
	S3            storage.S3Config `mapstructure:"s3"`
	PresignExpiry time.Duration    `mapstructure:"presign_expiry"`
	MaxBytes      int64            `mapstructure:"max_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load(pkgconfig.GetEnv("QUILL_CONFIG_DIR", "./config"), "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "quill")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/quill.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "dbserver1.public.follows")
	v.SetDefault("kafka.group_id", "quill-social-graph")
	v.SetDefault("events.driver", "noop")
	v.SetDefault("events.redis.address", "localhost:6379")
	v.SetDefault("events.redis.pool_size", 10)
	v.SetDefault("events.redis.read_timeout", "3s")
	v.SetDefault("events.redis.write_timeout", "3s")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.partitions", 4)
	v.SetDefault("events.kafka.replication_factor", 1)
	v.SetDefault("reconciler.interval", "60s")
	v.SetDefault("reconciler.top_n", 100)
	v.SetDefault("identity.issuer", "")
	v.SetDefault("identity.audience", "")
	v.SetDefault("identity.leeway", "30s")
	v.SetDefault("cache.prefix", "quill")
	v.SetDefault("cache.profile_ttl", "10m")
	v.SetDefault("cache.trending_ttl", "60s")
	v.SetDefault("feed.default_limit", 10)
	v.SetDefault("feed.max_limit", 50)
	v.SetDefault("feed.suggestions_limit", 10)
	v.SetDefault("feed.trending_limit", 5)
	v.SetDefault("feed.author_posts_limit", 20)
	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("rate_limit.idle_ttl", "10m")
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "quill-media")
	v.SetDefault("storage.presign_expiry", "15m")
	v.SetDefault("storage.max_bytes", 5<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":                    "PORT",
		"database.driver":                "DB_DRIVER",
		"database.host":                  "DB_HOST",
		"database.port":                  "DB_PORT",
		"database.user":                  "DB_USER",
		"database.password":              "DB_PASSWORD",
		"database.dbname":                "DB_NAME",
		"database.sslmode":               "DB_SSLMODE",
		"database.file_path":             "DB_FILE_PATH",
		"database.max_idle_conns":        "DB_MAX_IDLE_CONNS",
		"database.max_open_conns":        "DB_MAX_OPEN_CONNS",
		"database.conn_max_lifetime":     "DB_CONN_MAX_LIFETIME",
		"redis.address":                  "REDIS_ADDRESS",
		"redis.password":                 "REDIS_PASSWORD",
		"redis.db":                       "REDIS_DB",
		"kafka.brokers":                  "KAFKA_BROKERS",
		"kafka.topic":                    "KAFKA_TOPIC",
		"kafka.group_id":                 "KAFKA_GROUP_ID",
		"events.driver":                  "EVENTS_DRIVER",
		"events.redis.address":           "EVENTS_REDIS_ADDRESS",
		"events.kafka.brokers":           "EVENTS_KAFKA_BROKERS",
		"reconciler.interval":            "RECONCILER_INTERVAL",
		"reconciler.top_n":               "RECONCILER_TOP_N",
		"identity.issuer":                "IDENTITY_ISSUER",
		"identity.audience":              "IDENTITY_AUDIENCE",
		"identity.hmac_secret":           "IDENTITY_HMAC_SECRET",
		"identity.public_key_file":       "IDENTITY_PUBLIC_KEY_FILE",
		"rate_limit.requests_per_second": "VIEW_RATE_LIMIT_RPS",
		"rate_limit.burst":               "VIEW_RATE_LIMIT_BURST",
		"storage.enabled":                "STORAGE_ENABLED",
		"storage.s3.endpoint":            "S3_ENDPOINT",
		"storage.s3.bucket":              "S3_BUCKET",
		"storage.s3.access_key_id":       "S3_ACCESS_KEY_ID",
		"storage.s3.secret_access_key":   "S3_SECRET_ACCESS_KEY",
		"storage.s3.public_url":          "S3_PUBLIC_URL",
		"storage.s3.use_path_style":      "S3_USE_PATH_STYLE",
		"log.level":                      "LOG_LEVEL",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

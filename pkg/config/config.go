package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultFile is the properties file read when no explicit path is given.
const DefaultFile = "application.properties"

type Config struct {
	Env  string
	Port int

	Records  RecordsConfig
	Storage  StorageConfig
	Log      LogConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Database DatabaseConfig
	CORS     CORSConfig

	// Warnings collects values that were rejected in favour of defaults.
	Warnings []string
}

// RecordsConfig holds the enrollment limits enforced by the records engine.
type RecordsConfig struct {
	MaxCreditsPerSemester int
	MaxCourseEnrollment   int
}

// StorageConfig locates the data and backup roots.
type StorageConfig struct {
	DataDir   string
	BackupDir string
}

type LogConfig struct {
	Level  string
	Format string
}

// RedisConfig configures the optional statistics/transcript cache.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig tunes cached report payloads.
type CacheConfig struct {
	TTL time.Duration
}

// DatabaseConfig configures the optional PostgreSQL roster mirror.
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int

	// SyncRetries and SyncRetryDelay govern queued mirror syncs.
	SyncRetries    int
	SyncRetryDelay time.Duration
}

// CORSConfig lists browser origins allowed to call the API. Empty allows any.
type CORSConfig struct {
	AllowedOrigins []string
}

// Default returns the configuration used when no source overrides anything.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return build(v)
}

// Load reads the properties file at path (DefaultFile when empty), then .env,
// then the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return build(v), nil
}

func build(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("env")
	cfg.Port = cfg.positiveInt(v, "server.port", 8080)

	cfg.Records = RecordsConfig{
		MaxCreditsPerSemester: cfg.positiveInt(v, "max.credits.per.semester", 24),
		MaxCourseEnrollment:   cfg.positiveInt(v, "max.course.enrollment", 50),
	}

	cfg.Storage = StorageConfig{
		DataDir:   v.GetString("data.directory"),
		BackupDir: v.GetString("backup.directory"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("redis.enabled"),
		Host:     v.GetString("redis.host"),
		Port:     v.GetInt("redis.port"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}

	cfg.Cache = CacheConfig{
		TTL: parseDuration(v.GetString("cache.ttl"), 5*time.Minute),
	}

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("database.enabled"),
		Host:         v.GetString("database.host"),
		Port:         v.GetInt("database.port"),
		User:         v.GetString("database.user"),
		Password:     v.GetString("database.password"),
		Name:         v.GetString("database.name"),
		SSLMode:      v.GetString("database.sslmode"),
		MaxOpenConns: v.GetInt("database.max.open.conns"),
		MaxIdleConns: v.GetInt("database.max.idle.conns"),

		SyncRetries:    v.GetInt("database.sync.retries"),
		SyncRetryDelay: parseDuration(v.GetString("database.sync.retry.delay"), 2*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitList(v.GetString("cors.allowed.origins"))}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("server.port", 8080)

	v.SetDefault("max.credits.per.semester", 24)
	v.SetDefault("max.course.enrollment", 50)
	v.SetDefault("data.directory", "data")
	v.SetDefault("backup.directory", "backups")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "ccrm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max.open.conns", 10)
	v.SetDefault("database.max.idle.conns", 5)
	v.SetDefault("database.sync.retries", 3)
	v.SetDefault("database.sync.retry.delay", "2s")

	v.SetDefault("cors.allowed.origins", "")
}

// positiveInt parses key as a positive integer, recording a warning and
// returning fallback when the value is malformed or not positive.
func (c *Config) positiveInt(v *viper.Viper, key string, fallback int) int {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using default %d", key, raw, fallback))
		return fallback
	}
	return n
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage and cache backends selectable at boot.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// DevelopmentAPIKeys is used in development when API_KEYS is not set at all.
const DevelopmentAPIKeys = "doctor1=secret-token-123"

type Config struct {
	Env             string
	Port            int
	ShutdownTimeout time.Duration

	Storage StorageConfig
	Cache   CacheConfig
	Auth    AuthConfig
	Crypto  CryptoConfig
	Search  SearchConfig
	CORS    CORSConfig
	Log     LogConfig
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver   string
	Database DatabaseConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

// CacheConfig selects the profile cache backend and its window.
type CacheConfig struct {
	Driver     string
	ProfileTTL time.Duration
	Redis      RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds the issued bearer credentials.
type AuthConfig struct {
	// APIKeys maps key owner to token.
	APIKeys   map[string]string
	JWTSecret string
}

// CryptoConfig configures field encryption. An empty key means a fresh
// key is generated at process start.
type CryptoConfig struct {
	FieldKey string
}

// SearchConfig sizes the worker pool client search is offloaded to.
type SearchConfig struct {
	Workers   int
	QueueSize int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	// API_KEYS= must be able to switch static keys off.
	v.AllowEmptyEnv(true)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.ShutdownTimeout = parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second)

	cfg.Storage = StorageConfig{
		Driver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		},
	}

	cfg.Cache = CacheConfig{
		Driver:     strings.ToLower(v.GetString("CACHE_DRIVER")),
		ProfileTTL: parseDuration(v.GetString("PROFILE_CACHE_TTL"), 60*time.Second),
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}

	rawKeys := v.GetString("API_KEYS")
	if !v.IsSet("API_KEYS") && cfg.Env == EnvDevelopment {
		rawKeys = DevelopmentAPIKeys
	}
	keys, err := parseAPIKeys(rawKeys)
	if err != nil {
		return nil, err
	}
	cfg.Auth = AuthConfig{
		APIKeys:   keys,
		JWTSecret: v.GetString("JWT_SECRET"),
	}

	cfg.Crypto = CryptoConfig{FieldKey: v.GetString("FIELD_ENCRYPTION_KEY")}

	cfg.Search = SearchConfig{
		Workers:   v.GetInt("SEARCH_WORKERS"),
		QueueSize: v.GetInt("SEARCH_QUEUE_SIZE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	if cfg.Env == EnvProduction && len(cfg.Auth.APIKeys) == 0 && cfg.Auth.JWTSecret == "" {
		return nil, errors.New("no credentials configured: set API_KEYS or JWT_SECRET")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5001)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("STORAGE_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "health_system")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("CACHE_DRIVER", DriverRedis)
	v.SetDefault("PROFILE_CACHE_TTL", "60s")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("FIELD_ENCRYPTION_KEY", "")

	v.SetDefault("SEARCH_WORKERS", 4)
	v.SetDefault("SEARCH_QUEUE_SIZE", 32)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// parseAPIKeys reads "owner=token,owner=token" pairs.
func parseAPIKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, pair := range splitAndTrim(raw) {
		owner, token, ok := strings.Cut(pair, "=")
		owner = strings.TrimSpace(owner)
		token = strings.TrimSpace(token)
		if !ok || owner == "" || token == "" {
			return nil, errors.New("API_KEYS entries must look like owner=token")
		}
		keys[owner] = token
	}
	return keys, nil
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the portal, CLI and dev auth stub.
type Config struct {
	App      AppConfig
	API      APIConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Realtime RealtimeConfig
	Routes   RoutesConfig
	AuthStub AuthStubConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// APIConfig points at the backend REST API.
type APIConfig struct {
	BaseURL           string
	LoginPath         string
	NotificationsPath string
	TimeoutSeconds    int
}

// StorageConfig selects the token store driver.
type StorageConfig struct {
	Driver string
	Key    string
	File   string
	Prefix string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// RealtimeConfig configures the notification broker channel.
type RealtimeConfig struct {
	Enabled            bool
	URL                string
	TopicTemplate      string
	ConnectTimeoutSecs int
	CacheSize          int
}

// RoutesConfig names the navigation targets of the session core.
type RoutesConfig struct {
	Login        string
	Landing      string
	Unauthorized string
}

// AuthStubConfig configures the development stand-in for the login endpoint.
type AuthStubConfig struct {
	Host                  string
	Port                  string
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	InstitutionID         int64
	SeedPassword          string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	institutionID, err := strconv.ParseInt(getEnv("AUTHSTUB_INSTITUTION_ID", "1"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTHSTUB_INSTITUTION_ID: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "academia-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		API: APIConfig{
			BaseURL:           strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
			LoginPath:         getEnv("API_LOGIN_PATH", "/auth/login"),
			NotificationsPath: getEnv("API_NOTIFICATIONS_PATH", "/notifications"),
			TimeoutSeconds:    getEnvAsInt("API_TIMEOUT_SECONDS", 15),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", "file")),
			Key:    getEnv("STORAGE_KEY", "authToken"),
			File:   getEnv("STORAGE_FILE", defaultStorageFile()),
			Prefix: getEnv("STORAGE_PREFIX", "academia:"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Realtime: RealtimeConfig{
			Enabled:            getEnvAsBool("REALTIME_ENABLED", true),
			URL:                getEnv("REALTIME_URL", "ws://localhost:8080/ws"),
			TopicTemplate:      getEnv("REALTIME_TOPIC", "/topic/notifications/{userId}"),
			ConnectTimeoutSecs: getEnvAsInt("REALTIME_CONNECT_TIMEOUT_SECONDS", 10),
			CacheSize:          getEnvAsInt("REALTIME_CACHE_SIZE", 128),
		},
		Routes: RoutesConfig{
			Login:        getEnv("ROUTE_LOGIN", "/login"),
			Landing:      getEnv("ROUTE_LANDING", "/dashboard"),
			Unauthorized: getEnv("ROUTE_UNAUTHORIZED", "/unauthorized"),
		},
		AuthStub: AuthStubConfig{
			Host:                  getEnv("AUTHSTUB_HOST", "127.0.0.1"),
			Port:                  getEnv("AUTHSTUB_PORT", "8080"),
			JWTSecret:             getEnv("AUTHSTUB_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTHSTUB_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTHSTUB_BCRYPT_COST", 10),
			InstitutionID:         institutionID,
			SeedPassword:          getEnv("AUTHSTUB_SEED_PASSWORD", "academia"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the session core cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "file", "redis":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("STORAGE_KEY must not be empty")
	}
	for name, route := range map[string]string{
		"ROUTE_LOGIN":        c.Routes.Login,
		"ROUTE_LANDING":      c.Routes.Landing,
		"ROUTE_UNAUTHORIZED": c.Routes.Unauthorized,
	} {
		if !strings.HasPrefix(route, "/") {
			return fmt.Errorf("%s must be an absolute path, got %q", name, route)
		}
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LoginURL is the absolute credential exchange endpoint.
func (a APIConfig) LoginURL() string {
	return a.BaseURL + "/" + strings.TrimLeft(a.LoginPath, "/")
}

func (a APIConfig) NotificationsURL() string {
	return a.BaseURL + "/" + strings.TrimLeft(a.NotificationsPath, "/")
}

func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (r RealtimeConfig) ConnectTimeout() time.Duration {
	if r.ConnectTimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.ConnectTimeoutSecs) * time.Second
}

// Addr returns the dev auth stub bind address.
func (a AuthStubConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

func (a AuthStubConfig) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func defaultStorageFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".academia-storage.json"
	}
	return dir + string(os.PathSeparator) + "academia" + string(os.PathSeparator) + "storage.json"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

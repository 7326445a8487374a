package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"starmap-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Frontend   FrontendConfig
	Logging    LoggingConfig
	RateLimit  RateLimitConfig
	Remote     RemoteConfig
	Catalog    CatalogConfig
	CrossMatch CrossMatchConfig
	Astrometry AstrometryConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

// RemoteConfig configures the SIMBAD and VizieR lookups.
type RemoteConfig struct {
	SimbadURL         string
	VizierURL         string
	VizierSource      string
	ProviderName      string
	CatalogTag        string
	UserAgent         string
	IdentifierTimeout time.Duration
	ConeTimeout       time.Duration
	RequestsPerSecond float64
	BurstSize         int
}

type CatalogConfig struct {
	Path      string
	CacheSize int
	CacheTTL  time.Duration
}

type CrossMatchConfig struct {
	// Source is "postgres", "file" or "none".
	Source              string
	Path                string
	SearchRadiusArcsec  float64
	BatchConcurrency    int
	MaxObjectsPerSearch int
}

type AstrometryConfig struct {
	Directory        string
	MaxCachedQueries int
	LogLevel         string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := Load()
	if err != nil {
		return err
	}

	GlobalConfig = config
	return nil
}

// Load reads the configuration from the environment without touching
// GlobalConfig.
func Load() (*Config, error) {
	config := &Config{
		Server:     loadServerConfig(),
		Database:   loadDatabaseConfig(),
		Redis:      loadRedisConfig(),
		Auth:       loadAuthConfig(),
		Frontend:   loadFrontendConfig(),
		Logging:    loadLoggingConfig(),
		RateLimit:  loadRateLimitConfig(),
		Remote:     loadRemoteConfig(),
		Catalog:    loadCatalogConfig(),
		CrossMatch: loadCrossMatchConfig(),
		Astrometry: loadAstrometryConfig(),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  utils.GetEnvSeconds("SERVER_READ_TIMEOUT_SECONDS", 15*time.Second),
		WriteTimeout: utils.GetEnvSeconds("SERVER_WRITE_TIMEOUT_SECONDS", 120*time.Second),
		IdleTimeout:  utils.GetEnvSeconds("SERVER_IDLE_TIMEOUT_SECONDS", 60*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         utils.GetEnvBool("DB_ENABLED", true),
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "starmap"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    utils.GetEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    utils.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(utils.GetEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  utils.GetEnvBool("REDIS_ENABLED", false),
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       utils.GetEnvInt("REDIS_DB", 0),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(utils.GetEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
	}
}

func loadFrontendConfig() FrontendConfig {
	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: utils.GetEnvBool("CORS_DEBUG", false),
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "info"),
		JSONFormat: environment == "production",
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           utils.GetEnvBool("RATE_LIMIT_ENABLED", true),
		RequestsPerSecond: utils.GetEnvFloat("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		BurstSize:         utils.GetEnvInt("RATE_LIMIT_BURST_SIZE", 20),
		TrustProxy:        utils.GetEnvBool("RATE_LIMIT_TRUST_PROXY", false),
	}
}

func loadRemoteConfig() RemoteConfig {
	return RemoteConfig{
		SimbadURL:         utils.GetEnv("SIMBAD_TAP_URL", "https://simbad.cds.unistra.fr/simbad/sim-tap/sync"),
		VizierURL:         utils.GetEnv("VIZIER_URL", "https://vizier.cds.unistra.fr/viz-bin/votable"),
		VizierSource:      utils.GetEnv("VIZIER_SOURCE", "I/131A/sao"),
		ProviderName:      utils.GetEnv("XMATCH_PROVIDER_NAME", "Gaia DR3"),
		CatalogTag:        utils.GetEnv("XMATCH_CATALOG_TAG", "SAO "),
		UserAgent:         utils.GetEnv("REMOTE_USER_AGENT", "starmap-server"),
		IdentifierTimeout: utils.GetEnvSeconds("REMOTE_IDENTIFIER_TIMEOUT_SECONDS", 30*time.Second),
		ConeTimeout:       utils.GetEnvSeconds("REMOTE_CONE_TIMEOUT_SECONDS", 30*time.Second),
		RequestsPerSecond: utils.GetEnvFloat("REMOTE_REQUESTS_PER_SECOND", 5),
		BurstSize:         utils.GetEnvInt("REMOTE_BURST_SIZE", 5),
	}
}

func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Path:      utils.GetEnv("CATALOG_PATH", ""),
		CacheSize: utils.GetEnvInt("CATALOG_CACHE_SIZE", 4096),
		CacheTTL:  time.Duration(utils.GetEnvInt("CATALOG_CACHE_TTL_MINUTES", 60)) * time.Minute,
	}
}

func loadCrossMatchConfig() CrossMatchConfig {
	return CrossMatchConfig{
		Source:              utils.GetEnv("XMATCH_SOURCE", "postgres"),
		Path:                utils.GetEnv("XMATCH_PATH", ""),
		SearchRadiusArcsec:  utils.GetEnvFloat("XMATCH_SEARCH_RADIUS_ARCSEC", 5),
		BatchConcurrency:    utils.GetEnvInt("XMATCH_BATCH_CONCURRENCY", 8),
		MaxObjectsPerSearch: utils.GetEnvInt("XMATCH_MAX_OBJECTS_PER_REQUEST", 1000),
	}
}

func loadAstrometryConfig() AstrometryConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return AstrometryConfig{
		Directory:        utils.GetEnv("ASTROMETRY_DIR", filepath.Join(home, ".catalog", "gaia_mag18_v2_multifile")),
		MaxCachedQueries: utils.GetEnvInt("ASTROMETRY_MAX_CACHED_QUERIES", 256),
		LogLevel:         utils.GetEnv("ASTROMETRY_LOG_LEVEL", "info"),
	}
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	switch c.CrossMatch.Source {
	case "postgres":
		if !c.Database.Enabled {
			return fmt.Errorf("XMATCH_SOURCE=postgres requires DB_ENABLED=true")
		}
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required")
		}
	case "file":
		if c.CrossMatch.Path == "" {
			return fmt.Errorf("XMATCH_SOURCE=file requires XMATCH_PATH")
		}
	case "none":
	default:
		return fmt.Errorf("XMATCH_SOURCE must be one of postgres, file, none (got %q)", c.CrossMatch.Source)
	}

	if c.CrossMatch.SearchRadiusArcsec <= 0 {
		return fmt.Errorf("XMATCH_SEARCH_RADIUS_ARCSEC must be positive")
	}

	if c.CrossMatch.BatchConcurrency < 1 {
		return fmt.Errorf("XMATCH_BATCH_CONCURRENCY must be at least 1")
	}

	return nil
}

// AdminEnabled reports whether admin endpoints can verify tokens.
func (c *Config) AdminEnabled() bool {
	return c.Auth.JWTSecret != ""
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from the config file, a .env file or the environment.
type AppConfig struct {
	AppPort        string
	JWTSecret      string
	JWTTTL         time.Duration
	AllowedOrigins []string
	// Requests per minute per client IP on auth and write routes
	RateLimitPerMinute int
	// Admins may edit or delete any user's content
	AdminEmails []string
	// Sign up throttling per client IP; zero disables the check
	RegisterMaxPerIPPerDay int
	RegisterCooldown       time.Duration
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string // mysql or postgres
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis; caching and token revocation fall back to in-process behaviour when RedisHost is empty
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	CacheTTL      time.Duration
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Image storage
	StorageBackend  string // local or s3
	UploadDir       string
	UploadBaseURL   string
	MaxUploadMB     int
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	// Basic auth for /metrics; the endpoint is open when empty
	MetricsUser     string
	MetricsPassword string
}

// fileConfig mirrors the grouped layout of config.yaml.
type fileConfig struct {
	App struct {
		Port               string   `yaml:"port"`
		JWTSecret          string   `yaml:"jwt_secret"`
		JWTTTLMinutes      int      `yaml:"jwt_ttl_minutes"`
		AllowedOrigins     []string `yaml:"allowed_origins"`
		RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
		AdminEmails        []string `yaml:"admin_emails"`
		RegisterMaxPerDay  int      `yaml:"register_max_per_ip_per_day"`
		RegisterCooldown   int      `yaml:"register_cooldown_seconds"`
	} `yaml:"app"`
	Gin struct {
		Mode    string `yaml:"mode"`
		LogPath string `yaml:"log_path"`
	} `yaml:"gin"`
	Database struct {
		Driver   string `yaml:"driver"`
		URI      string `yaml:"uri"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`
	Redis struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		DB              int    `yaml:"db"`
		Password        string `yaml:"password"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`
	Log struct {
		Level      string `yaml:"level"`
		Path       string `yaml:"path"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Storage struct {
		Backend     string `yaml:"backend"`
		UploadDir   string `yaml:"upload_dir"`
		BaseURL     string `yaml:"base_url"`
		MaxUploadMB int    `yaml:"max_upload_mb"`
		S3          struct {
			Bucket        string `yaml:"bucket"`
			Region        string `yaml:"region"`
			Endpoint      string `yaml:"endpoint"`
			AccessKey     string `yaml:"access_key"`
			SecretKey     string `yaml:"secret_key"`
			PublicBaseURL string `yaml:"public_base_url"`
			UsePathStyle  bool   `yaml:"use_path_style"`
		} `yaml:"s3"`
	} `yaml:"storage"`
	Metrics struct {
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"metrics"`
}

// DefaultPath is where Load looks for the YAML file when no path is given.
var DefaultPath = filepath.Join("config", "config.yaml")

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load(path string) AppConfig {
	if loaded {
		return cfg
	}
	c, err := Read(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in the config file or environment variables")
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it from DefaultPath if necessary.
func Get() AppConfig {
	if !loaded {
		return Load(DefaultPath)
	}
	return cfg
}

// Read builds a configuration without caching it.
// Precedence: .env (optional) -> YAML file (optional) -> defaults -> environment variable overrides.
func Read(path string) (AppConfig, error) {
	var c AppConfig

	// .env only seeds variables that are not already set in the process.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf("read .env: %w", err)
	}

	if path != "" {
		if err := loadYAMLConfig(path, &c); err != nil {
			return c, err
		}
	}

	applyDefaults(&c)

	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	return c, nil
}

// loadYAMLConfig reads the grouped YAML file into out. A missing file is not an error.
func loadYAMLConfig(path string, out *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	out.AppPort = fc.App.Port
	out.JWTSecret = fc.App.JWTSecret
	if fc.App.JWTTTLMinutes > 0 {
		out.JWTTTL = time.Duration(fc.App.JWTTTLMinutes) * time.Minute
	}
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AdminEmails = fc.App.AdminEmails
	out.RegisterMaxPerIPPerDay = fc.App.RegisterMaxPerDay
	out.RegisterCooldown = time.Duration(fc.App.RegisterCooldown) * time.Second

	out.GinMode = fc.Gin.Mode
	out.GinPath = fc.Gin.LogPath

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.URI
	out.DBHost = fc.Database.Host
	out.DBPort = fc.Database.Port
	out.DBUser = fc.Database.User
	out.DBPassword = fc.Database.Password
	out.DBName = fc.Database.Name

	out.RedisHost = fc.Redis.Host
	out.RedisPort = fc.Redis.Port
	out.RedisDB = fc.Redis.DB
	out.RedisPassword = fc.Redis.Password
	if fc.Redis.CacheTTLSeconds > 0 {
		out.CacheTTL = time.Duration(fc.Redis.CacheTTLSeconds) * time.Second
	}

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.StorageBackend = fc.Storage.Backend
	out.UploadDir = fc.Storage.UploadDir
	out.UploadBaseURL = fc.Storage.BaseURL
	out.MaxUploadMB = fc.Storage.MaxUploadMB
	out.S3Bucket = fc.Storage.S3.Bucket
	out.S3Region = fc.Storage.S3.Region
	out.S3Endpoint = fc.Storage.S3.Endpoint
	out.S3AccessKey = fc.Storage.S3.AccessKey
	out.S3SecretKey = fc.Storage.S3.SecretKey
	out.S3PublicBaseURL = fc.Storage.S3.PublicBaseURL
	out.S3UsePathStyle = fc.Storage.S3.UsePathStyle

	out.MetricsUser = fc.Metrics.User
	out.MetricsPassword = fc.Metrics.Password
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.JWTTTL == 0 {
		c.JWTTTL = 24 * time.Hour
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "postgres" {
			c.DBPort = "5432"
		} else {
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "daily_challenge"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.StorageBackend == "" {
		c.StorageBackend = "local"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.UploadBaseURL == "" {
		c.UploadBaseURL = "/uploads"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 10
	}
	if c.S3Region == "" {
		c.S3Region = "ap-northeast-2"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var errList []error
	setInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errList = append(errList, fmt.Errorf("invalid integer for %s: %q", key, v))
				return
			}
			*dst = i
		}
	}
	setString := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("JWT_SECRET", &c.JWTSecret)
	if v := getEnv("JWT_TTL_MINUTES", ""); v != "" {
		var minutes int
		setInt("JWT_TTL_MINUTES", &minutes)
		if minutes > 0 {
			c.JWTTTL = time.Duration(minutes) * time.Minute
		}
	}
	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)
	setInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.AdminEmails = readListEnv("ADMIN_EMAILS", c.AdminEmails)
	setInt("REGISTER_MAX_PER_IP_PER_DAY", &c.RegisterMaxPerIPPerDay)
	if v := getEnv("REGISTER_COOLDOWN_SEC", ""); v != "" {
		var secs int
		setInt("REGISTER_COOLDOWN_SEC", &secs)
		c.RegisterCooldown = time.Duration(secs) * time.Second
	}

	setString("DB_DRIVER", &c.DBDriver)
	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		var secs int
		setInt("CACHE_TTL_SECONDS", &secs)
		if secs > 0 {
			c.CacheTTL = time.Duration(secs) * time.Second
		}
	}

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &c.LogCompress)

	setString("STORAGE_BACKEND", &c.StorageBackend)
	setString("UPLOAD_DIR", &c.UploadDir)
	setString("UPLOAD_BASE_URL", &c.UploadBaseURL)
	setInt("MAX_UPLOAD_MB", &c.MaxUploadMB)
	setString("S3_BUCKET", &c.S3Bucket)
	setString("S3_REGION", &c.S3Region)
	setString("S3_ENDPOINT", &c.S3Endpoint)
	setString("S3_ACCESS_KEY", &c.S3AccessKey)
	setString("S3_SECRET_KEY", &c.S3SecretKey)
	setString("S3_PUBLIC_BASE_URL", &c.S3PublicBaseURL)
	setBool("S3_USE_PATH_STYLE", &c.S3UsePathStyle)

	setString("METRICS_USER", &c.MetricsUser)
	setString("METRICS_PASSWORD", &c.MetricsPassword)

	return errors.Join(errList...)
}

// IsAdminEmail reports whether email is configured as an administrator.
func (c AppConfig) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.AdminEmails {
		if strings.ToLower(strings.TrimSpace(a)) == email && email != "" {
			return true
		}
	}
	return false
}

// RedisAddr returns host:port, or "" when Redis is disabled.
func (c AppConfig) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

const sampleYAML = `
app:
  port: "9090"
  jwt_secret: from-file
  jwt_ttl_minutes: 30
  admin_emails: [Admin@Example.com]
  register_max_per_ip_per_day: 3
database:
  driver: postgres
  host: db
  name: challenges
redis:
  host: cache
  cache_ttl_seconds: 5
storage:
  backend: s3
  s3:
    bucket: imgs
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadYAMLAndDefaults(t *testing.T) {
	cfg, err := Read(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "challenges", cfg.DBName)
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.Equal(t, "s3", cfg.StorageBackend)
	assert.Equal(t, "imgs", cfg.S3Bucket)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsAdminEmail("admin@example.com"))
	assert.False(t, cfg.IsAdminEmail(""))
}

func TestReadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Read(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, "", cfg.RedisAddr())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REGISTER_COOLDOWN_SEC", "20")

	cfg, err := Read(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 5, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 20*time.Second, cfg.RegisterCooldown)
	assert.Equal(t, 3, cfg.RegisterMaxPerIPPerDay, "file value kept")
}

func TestInvalidIntegerEnv(t *testing.T) {
	t.Setenv("REDIS_PORT", "six")

	_, err := Read("")
	assert.ErrorContains(t, err, "REDIS_PORT")
}

func TestInvalidYAML(t *testing.T) {
	_, err := Read(writeConfig(t, "app: [unclosed"))
	assert.Error(t, err)
}

func TestDialector(t *testing.T) {
	d, err := Dialector(AppConfig{DBDriver: "postgres", DatabaseURI: "postgres://x"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Dialector(AppConfig{DBDriver: "mysql"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	_, err = Dialector(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestToGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, toGormLogLevel("debug"))
	assert.Equal(t, logger.Warn, toGormLogLevel(""))
	assert.Equal(t, logger.Silent, toGormLogLevel("silent"))
}

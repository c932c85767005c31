package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	// 显式指定的文件不存在时应报错
	require.Error(t, err)

	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "IM-Social", cfg.AppName)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 10*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, 8, cfg.Refresh.MaxConcurrency)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "im-relation-events", cfg.Kafka.RelationEventsTopic)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.APIServer.CORS.AllowedOrigins)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
APP_NAME: social-test
DATABASE:
  TYPE: sqlite
  SQLITE_PATH: /tmp/social.db
REFRESH:
  INTERVAL: 3s
KAFKA:
  ENABLED: true
  BROKERS:
    - broker-1:9092
    - broker-2:9092
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "social-test", cfg.AppName)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "/tmp/social.db", cfg.Database.SQLitePath)
	assert.Equal(t, 3*time.Second, cfg.Refresh.Interval)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	// 未覆盖的键保留默认值
	assert.Equal(t, 40, cfg.RateLimit.Burst)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REFRESH_INTERVAL", "5s")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("AUTH_JWT_SECRET_KEY", "from-env")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecretKey)
}

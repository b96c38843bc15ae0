package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: packet-roster
  version: 1.2.0
  env: production
server:
  port: 9090
database:
  host: db
  port: 3306
  user: packet
  password: secret
  name: packet
  parse_time: true
redis:
  host: redis
  port: 6379
packet_api:
  base_url: https://packet.csh.rit.edu
  timeout: 5s
  auth:
    token_url: https://sso.csh.rit.edu/realms/csh/protocol/openid-connect/token
    client_id: packet
logging:
  level: debug
  format: console
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.PacketAPI.Timeout)
	assert.Equal(t, "/api/v1/packets", cfg.PacketAPI.PacketsEndpoint)
	assert.Equal(t, "/api/v1/freshmen", cfg.PacketAPI.FreshmenEndpoint)
	assert.Equal(t, "/api/v1/sync", cfg.PacketAPI.SyncEndpoint)
	assert.Equal(t, FreshmenPayloadRecords, cfg.PacketAPI.FreshmenPayload)
	assert.Equal(t, "roster:ingestion", cfg.Redis.IngestionQueue)
	assert.Equal(t, ":dlq", cfg.Redis.DLQSuffix)
	assert.Equal(t, 24*time.Hour, cfg.Workers.LDAPSync.Interval)
	assert.True(t, cfg.IsProduction())
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("PACKET_API_TOKEN", "env-token")
	t.Setenv("PACKET_API_CLIENT_SECRET", "env-client-secret")
	t.Setenv("DATABASE_PASSWORD", "env-db-pass")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.PacketAPI.Auth.Token)
	assert.Equal(t, "env-client-secret", cfg.PacketAPI.Auth.ClientSecret)
	assert.Equal(t, "env-db-pass", cfg.Database.Password)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestParseRejectsUnknownFreshmenPayload(t *testing.T) {
	_, err := Parse([]byte("packet_api:\n  freshmen_payload: ids\n"))
	require.Error(t, err)
}

func TestParseRequiresClientIDForTokenURL(t *testing.T) {
	_, err := Parse([]byte("packet_api:\n  auth:\n    token_url: https://sso.example/token\n"))
	require.Error(t, err)
}

func TestLoadReadsConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", cfg.App.Version)
	assert.Equal(t, "packet:secret@tcp(db:3306)/packet?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DatabaseDSN())
	assert.Equal(t, "redis:6379", cfg.RedisAddr())
}

func TestParseTimeDefaultsOn(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  host: db\n  port: 3306\n  name: packet\n"))
	require.NoError(t, err)

	require.NotNil(t, cfg.Database.ParseTime)
	assert.True(t, *cfg.Database.ParseTime)
	assert.Contains(t, cfg.DatabaseDSN(), "parseTime=true")
}

func TestParseTimeExplicitFalseIsKept(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  parse_time: false\n"))
	require.NoError(t, err)

	require.NotNil(t, cfg.Database.ParseTime)
	assert.False(t, *cfg.Database.ParseTime)
	assert.Contains(t, cfg.DatabaseDSN(), "parseTime=false")
}

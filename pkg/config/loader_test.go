package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
port: "8080"
mongo:
  host: ${TEST_MONGO_HOST}
  port: 27017
  database: chat
redis:
  addr: localhost:6379
kafka:
  brokers: ["k1:9092", "k2:9092"]
  topic: chat.message.created
  retry_count: 3
  retry_interval: 2
sync:
  window_size: 20
  page_size: 30
  presence_ttl: 10m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_test.yaml"), []byte(yaml), 0o644))
	t.Setenv("TEST_MONGO_HOST", "mongo.internal")

	cfg := LoadConfig[Chat]("chat_test", dir)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongo.internal", cfg.MongoSQL.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int64(20), cfg.Sync.WindowSize)
	assert.Equal(t, 10*time.Minute, cfg.Sync.PresenceTTL)
}

func TestGetRedisSetting(t *testing.T) {
	t.Setenv("REDIS_MASTER_NAME", "")
	t.Setenv("REDIS_SENTINEL1_IP", "10.0.0.1")
	t.Setenv("REDIS_SENTINEL1_PORT", "26379")

	master, addrs := GetRedisSetting()

	assert.Equal(t, "mymaster", master)
	assert.Contains(t, addrs, "10.0.0.1:26379")
}

func TestGetPath_Missing(t *testing.T) {
	_, err := GetPath("definitely-not-here.yaml", 2)
	assert.Error(t, err)
}

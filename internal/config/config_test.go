package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "default", cfg.QueueName)
	assert.Equal(t, 24*time.Hour, cfg.TTLStateInfo)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("QUEUE_NAME", "uploads")
	t.Setenv("QUEUE_LOCK_TIME", "10s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "uploads", cfg.QueueName)
	assert.Equal(t, 10*time.Second, cfg.LockTime)
}

func TestLoadFile_OverlaysYAML(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "queue-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("queue_name: payments\nlock_time: 15s\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := LoadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "payments", cfg.QueueName)
	assert.Equal(t, 15*time.Second, cfg.LockTime)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile("/no/such/file.yaml")
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadServerEnvironment(t *testing.T) {
	t.Setenv("ADDRESS", "0.0.0.0:9090")
	t.Setenv("NODE_ID", "node42")
	t.Setenv("STORE_INTERVAL", "60")
	t.Setenv("POLL_INTERVAL", "5")
	t.Setenv("FILE_STORAGE_PATH", "/tmp/snap.json")
	t.Setenv("DATABASE_DSN", "postgres://db")
	t.Setenv("RESTORE", "false")
	t.Setenv("KEY", "secret")
	t.Setenv("TRUSTED_SUBNET", "10.0.0.0/8")

	cfg := &ServerConfig{Restore: true}
	readServerEnvironment(cfg)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, "node42", cfg.NodeID)
	assert.Equal(t, 60, cfg.StoreInterval)
	assert.Equal(t, 5, cfg.PollInterval)
	assert.Equal(t, "/tmp/snap.json", cfg.FileStoragePath)
	assert.Equal(t, "postgres://db", cfg.DatabaseDsn)
	assert.False(t, cfg.Restore)
	assert.Equal(t, "secret", cfg.Key)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
}

func TestReadServerEnvironment_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("STORE_INTERVAL", "soon")
	t.Setenv("RESTORE", "maybe")

	cfg := &ServerConfig{StoreInterval: 300, Restore: true}
	readServerEnvironment(cfg)

	assert.Equal(t, 300, cfg.StoreInterval)
	assert.True(t, cfg.Restore)
}

func TestLoadServerJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"address": "localhost:9000",
		"node_id": "node7",
		"restore": false,
		"store_interval": "5m",
		"poll_interval": "10",
		"trusted_subnet": "192.168.1.0/24"
	}`), 0644))

	js, err := loadServerJSON(path)
	require.NoError(t, err)
	require.NotNil(t, js.Address)
	assert.Equal(t, "localhost:9000", *js.Address)
	assert.Equal(t, "node7", *js.NodeID)
	assert.False(t, *js.Restore)
	assert.Equal(t, "5m", *js.StoreInterval)
	assert.Nil(t, js.DatabaseDSN)
	assert.Equal(t, "192.168.1.0/24", *js.TrustedSubnet)
}

func TestLoadServerJSON_Missing(t *testing.T) {
	_, err := loadServerJSON(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "300", want: 300},
		{in: "5m", want: 300},
		{in: "1s", want: 1},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseDurationSeconds(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFlagValuesTrackSet(t *testing.T) {
	var s strFlag
	assert.False(t, s.set)
	require.NoError(t, s.Set("x"))
	assert.True(t, s.set)
	assert.Equal(t, "x", s.v)

	var i intFlag
	require.Error(t, i.Set("x"))
	assert.False(t, i.set)
	require.NoError(t, i.Set("7"))
	assert.True(t, i.set)
	assert.Equal(t, 7, i.v)

	var b boolFlag
	require.Error(t, b.Set("maybe"))
	require.NoError(t, b.Set("true"))
	assert.True(t, b.set)
	assert.True(t, b.v)
}

func TestDefaultNodeID(t *testing.T) {
	assert.NotEmpty(t, defaultNodeID())
}

package server

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigAppliesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	require.Equal(t, "10s", cfg.ShutdownTimeout)
	require.Equal(t, "INFO", cfg.Log.Level)
	require.Equal(t, "sqlite", cfg.Metadata.Type)
	require.Equal(t, "mediasync.db", cfg.Metadata.SQLite.Path)
	require.Equal(t, "Personal Catalog", cfg.Sync.AccountName)
	require.Equal(t, "desktop", cfg.Sync.DeviceClass)
	require.Equal(t, "Library", cfg.Sync.RootFolder)
	require.Equal(t, "15m", cfg.Sync.RefreshInterval)
}

func TestLoadServerConfigHonorsOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("metadata.sqlite.path", "/var/lib/mediasync/catalog.db")
	viper.Set("sync.device_name", "Workstation")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	require.Equal(t, "/var/lib/mediasync/catalog.db", cfg.Metadata.SQLite.Path)
	require.Equal(t, "Workstation", cfg.Sync.DeviceName)
}

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	require.Equal(t, 10000, cfg.Team.MaxFrequency)
	require.Equal(t, 256, cfg.Brick.MaxActiveBricks)
	require.Equal(t, 15, cfg.Billing.MaxPendingAuths)
	require.Equal(t, 20, cfg.Billing.MaxInterruptedAuths)
}

func TestLoadServerConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultServerConfig(), cfg)
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "zc", SSLMode: "disable",
		MaxConns: 10,
	}
	dsn := d.DSN()
	require.Contains(t, dsn, "postgres://u:p@db:5432/zc?sslmode=disable")
	require.Contains(t, dsn, "pool_max_conns=10")
}

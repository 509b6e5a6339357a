package database

import (
	"testing"

	"github.com/axellelanca/scanlead/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDialect(t *testing.T) {
	cfg := &config.Config{}

	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = ":memory:"
	d, err := Dialect(cfg)
	require.NoError(t, err)
	require.Equal(t, "sqlite", d.Name())

	cfg.Database.Driver = "postgres"
	_, err = Dialect(cfg)
	require.Error(t, err)

	cfg.Database.DSN = "host=localhost user=scanlead dbname=scanlead sslmode=disable"
	d, err = Dialect(cfg)
	require.NoError(t, err)
	require.Equal(t, "postgres", d.Name())

	cfg.Database.Driver = "oracle"
	_, err = Dialect(cfg)
	require.Error(t, err)
}

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = ":memory:"

	db, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

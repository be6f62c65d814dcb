// Package dbtest opens throwaway sqlite databases with the service schema.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/internal/platform/db"
	"github.com/fatflowers/staypay/pkg/config"
)

// Open returns an in-memory database with every table migrated, including the
// listing read models that production leaves to their owning services.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{Env: config.EnvProd}
	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig(zap.NewNop().Sugar(), cfg))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// one connection keeps every statement on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(db.Migrated...))
	require.NoError(t, gdb.AutoMigrate(&models.Property{}, &models.Profile{}))
	return gdb
}

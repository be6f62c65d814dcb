package db

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fatflowers/staypay/internal/models"
	cfgpkg "github.com/fatflowers/staypay/pkg/config"
	gormzap "github.com/fatflowers/staypay/pkg/gormlog"
)

// Migrated lists the tables this service owns or co-owns with the booking layer.
var Migrated = []interface{}{
	&models.WebhookEvent{},
	&models.Booking{},
	&models.PaymentTransaction{},
	&models.LedgerRepair{},
	&models.Notification{},
}

// GormConfig returns the gorm settings shared by every dialect.
func GormConfig(l *zap.SugaredLogger, cfg *cfgpkg.Config) *gorm.Config {
	level := gormlogger.Warn
	if cfg.Env == cfgpkg.EnvDev {
		level = gormlogger.Info
	}
	slow := time.Duration(cfg.Database.SlowQueryMs) * time.Millisecond
	return &gorm.Config{
		Logger:  gormzap.New(l, gormzap.WithLevel(level), gormzap.WithSlowThreshold(slow)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), GormConfig(l, cfg))
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(Migrated...); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}

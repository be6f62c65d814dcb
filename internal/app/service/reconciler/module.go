package reconciler

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/app/service/ledger"
	"github.com/fatflowers/staypay/internal/app/service/notification"
	"github.com/fatflowers/staypay/pkg/config"
)

func provide(db *gorm.DB, l *ledger.Service, e *notification.Emitter, cfg *config.Config, log *zap.SugaredLogger) *Reconciler {
	return New(db, l, e, log, cfg.DefaultCurrency)
}

var Module = fx.Options(
	fx.Provide(provide),
)

package ledger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
)

func provide(db *gorm.DB, events *webhookevent.Service, log *zap.SugaredLogger) *Service {
	return New(db, events, log)
}

var Module = fx.Options(
	fx.Provide(provide),
)

// WorkerModule runs the background repair sweep. Only long-running processes
// include it.
var WorkerModule = fx.Options(
	fx.Provide(NewSweepWorker),
	fx.Invoke(runSweepWorker),
)

package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/staypay/internal/app/api/server"
	"github.com/fatflowers/staypay/internal/app/service/ledger"
	"github.com/fatflowers/staypay/internal/app/service/notification"
	"github.com/fatflowers/staypay/internal/app/service/reconciler"
	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	webhookhandler "github.com/fatflowers/staypay/internal/app/service/webhook_handler"
	"github.com/fatflowers/staypay/internal/platform/cache"
	"github.com/fatflowers/staypay/internal/platform/db"
	"github.com/fatflowers/staypay/internal/platform/mailer"
	"github.com/fatflowers/staypay/pkg/config"
	"github.com/fatflowers/staypay/pkg/logger"
	"github.com/fatflowers/staypay/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// CoreModule wires the reconciliation pipeline without any listener or
// background worker. The ops CLI runs on it.
var CoreModule = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	metrics.Module,
	cache.Module,
	mailer.Module,
	webhookevent.Module,
	ledger.Module,
	notification.Module,
	reconciler.Module,
	webhookhandler.Module,
)

var Module = fx.Options(
	CoreModule,
	ledger.WorkerModule,
	server.Module,
)

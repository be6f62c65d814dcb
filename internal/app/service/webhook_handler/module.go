package webhook_handler

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/staypay/internal/app/service/reconciler"
	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	"github.com/fatflowers/staypay/internal/platform/cache"
	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/staypay/pkg/config"
	"github.com/fatflowers/staypay/pkg/metrics"
)

func provide(cfg *config.Config, store *webhookevent.Service, r *reconciler.Reconciler, processed cache.ProcessedEvents, m *metrics.Recorder, log *zap.SugaredLogger) *Handler {
	return New(stripe_webhook.NewVerifierFromConfig(cfg), store, r, processed, m, log)
}

var Module = fx.Options(
	fx.Provide(provide),
)

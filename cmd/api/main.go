package main

// @title           StayPay Payment Reconciliation API
// @version         1.0
// @description     Payment provider webhooks, booking payment status and ledger administration.

// @host      localhost:8888
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/staypay/internal/app"
)

func main() {
	os.Exit(run())
}

// run starts the webhook server and the ledger sweep worker and blocks until
// fx receives SIGINT or SIGTERM.
func run() int {
	a := fx.New(app.Module)

	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		// the app logger may not exist yet
		zap.NewExample().Sugar().Errorw("staypay_start_failed", "error", err)
		return 1
	}

	sig := <-a.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		zap.NewExample().Sugar().Errorw("staypay_stop_failed", "signal", sig.String(), "error", err)
		return 1
	}
	return 0
}

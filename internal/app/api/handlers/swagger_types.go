package handlers

import (
	"github.com/fatflowers/staypay/internal/app/service/ledger"
	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	"github.com/fatflowers/staypay/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespPaymentStatus wraps ledger.PaymentStatus in the standard envelope.
type RespPaymentStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.PaymentStatus     `json:"data"`
}

// RespListWebhookEvents wraps webhook_event.ScanResponse in the standard envelope.
type RespListWebhookEvents struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    webhookevent.ScanResponse `json:"data"`
}

type RespReplayEvent struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ReplayEventResponse      `json:"data"`
}

type RespListLedger struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.ScanResponse      `json:"data"`
}

type RespSweepLedger struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.SweepResult       `json:"data"`
}

// RespLedgerStatistic wraps ledger.StatisticResponse in the standard envelope.
type RespLedgerStatistic struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.StatisticResponse `json:"data"`
}

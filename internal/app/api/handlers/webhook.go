package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	wh "github.com/fatflowers/staypay/internal/app/service/webhook_handler"
	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/staypay/pkg/logctx"
)

// maxWebhookBody bounds a delivery body; provider events are a few KB.
const maxWebhookBody = 1 << 20

// WebhookAck is the provider-facing response. The provider only looks at the
// status code; the body is for humans reading delivery logs.
type WebhookAck struct {
	Received         bool   `json:"received,omitempty"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
	EventID          string `json:"event_id,omitempty"`
	EventType        string `json:"event_type,omitempty"`
	ProcessingTimeMs *int64 `json:"processing_time_ms,omitempty"`
	Error            string `json:"error,omitempty"`
	WillRetry        bool   `json:"will_retry,omitempty"`
}

func toWebhookAck(res *wh.Result) *WebhookAck {
	ack := &WebhookAck{EventID: res.EventID, EventType: res.EventType}
	switch {
	case res.StatusCode == http.StatusBadRequest:
		return &WebhookAck{Error: res.Err.Error()}
	case res.AlreadyProcessed:
		return &WebhookAck{Received: true, AlreadyProcessed: true, EventType: res.EventType}
	case res.WillRetry:
		ack.Error = "processing failed"
		if res.Err != nil {
			ack.Error = res.Err.Error()
		}
		ack.WillRetry = true
	default:
		ack.Received = true
		// set even when zero: sub-millisecond deliveries still report it
		ack.ProcessingTimeMs = lo.ToPtr(res.ProcessingTime.Milliseconds())
	}
	return ack
}

// @Summary      Payment provider webhook
// @Description  Receives signed payment events. 400 means the signature was rejected and nothing was stored; 500 asks the provider to redeliver.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "t=<unix>,v1=<hex hmac-sha256>"
// @Param        payload body object true "Provider event envelope"
// @Success      200  {object}  handlers.WebhookAck
// @Failure      400  {object}  handlers.WebhookAck
// @Failure      500  {object}  handlers.WebhookAck
// @Router       /webhooks/payments [post]
func ApiPaymentWebhook(h *wh.Handler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			logctx.FromGin(c, log).Warnw("webhook_body_read_failed", "err", err)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, &WebhookAck{Error: "payload too large"})
				return
			}
			c.JSON(http.StatusBadRequest, &WebhookAck{Error: "unreadable body"})
			return
		}

		res := h.Handle(c.Request.Context(), payload, c.GetHeader(stripe_webhook.SignatureHeader))
		c.JSON(res.StatusCode, toWebhookAck(res))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, h *wh.Handler, log *zap.SugaredLogger) {
	r.POST("/payments", ApiPaymentWebhook(h, log))
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/staypay/internal/app/service/ledger"
	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	wh "github.com/fatflowers/staypay/internal/app/service/webhook_handler"
	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/staypay/pkg/metrics"
	"github.com/fatflowers/staypay/pkg/response"
	"github.com/fatflowers/staypay/pkg/types"
)

// @Summary      List Webhook Events (Admin)
// @Description  Retrieves a paginated and filterable list of received provider events.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body types.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespListWebhookEvents
// @Router       /api/v1/admin/webhook_events/list [post]
func ApiListWebhookEvents(svc *webhookevent.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.Scan(c.Request.Context(), &req)
		if errors.Is(err, types.ErrFilterFieldNotAllowed) {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type ReplayEventRequest struct {
	EventID string `json:"event_id" binding:"required"`
}

type ReplayEventResponse struct {
	EventID          string `json:"event_id"`
	EventType        string `json:"event_type"`
	Kind             string `json:"kind"`
	Outcome          string `json:"outcome"`
	AlreadyProcessed bool   `json:"already_processed"`
	// Processed is false when the replay hit a transient failure again.
	Processed bool   `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// @Summary      Replay Webhook Event (Admin)
// @Description  Re-runs a stored event that has not been processed, using its stored payload.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handlers.ReplayEventRequest true "Event to replay"
// @Success      200  {object}  handlers.RespReplayEvent
// @Router       /api/v1/admin/webhook_events/replay [post]
func ApiReplayWebhookEvent(h *wh.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReplayEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := h.Replay(c.Request.Context(), req.EventID)
		switch {
		case errors.Is(err, wh.ErrEventNotFound):
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			return
		case errors.Is(err, stripe_webhook.ErrMalformedEvent):
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		case err != nil:
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		out := &ReplayEventResponse{
			EventID:          res.EventID,
			EventType:        res.EventType,
			Kind:             res.Kind.String(),
			Outcome:          string(res.Outcome),
			AlreadyProcessed: res.AlreadyProcessed,
			Processed:        res.StatusCode == http.StatusOK,
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

// @Summary      List Ledger Rows (Admin)
// @Description  Retrieves a paginated and filterable list of payment ledger rows.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body types.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespListLedger
// @Router       /api/v1/admin/ledger/list [post]
func ApiListLedger(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.Scan(c.Request.Context(), &req)
		if errors.Is(err, types.ErrFilterFieldNotAllowed) {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type SweepLedgerRequest struct {
	BatchSize int `json:"batch_size"`
}

// @Summary      Sweep Ledger Repairs (Admin)
// @Description  Appends the ledger rows of pending repair markers now instead of waiting for the worker.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handlers.SweepLedgerRequest false "Batch size, defaults to 50"
// @Success      200  {object}  handlers.RespSweepLedger
// @Router       /api/v1/admin/ledger/sweep [post]
func ApiSweepLedger(svc *ledger.Service, m *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SweepLedgerRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
		}
		res, err := svc.Sweep(c.Request.Context(), req.BatchSize)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		m.LedgerRepairs(res.Resolved, res.Failed)
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Ledger Statistics (Admin)
// @Description  Retrieves per-day charge count, gross and refunded totals in minor units.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ledger.StatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespLedgerStatistic
// @Router       /api/v1/admin/ledger/statistics [post]
func ApiGetLedgerStatistic(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetDailyStatistic(c.Request.Context(), &req, time.Now().UTC())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, events *webhookevent.Service, h *wh.Handler, l *ledger.Service, m *metrics.Recorder) {
	r.POST("/webhook_events/list", ApiListWebhookEvents(events))
	r.POST("/webhook_events/replay", ApiReplayWebhookEvent(h))
	r.POST("/ledger/list", ApiListLedger(l))
	r.POST("/ledger/sweep", ApiSweepLedger(l, m))
	r.POST("/ledger/statistics", ApiGetLedgerStatistic(l))
}

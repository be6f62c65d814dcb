package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/staypay/internal/app/service/ledger"
	"github.com/fatflowers/staypay/pkg/response"
)

// @Summary      Booking payment status
// @Description  Payment state, ledger rows and recent provider events of a booking, with retry eligibility.
// @Tags         Payment
// @Produce      json
// @Param        booking_id path string true "Booking ID"
// @Success      200  {object}  handlers.RespPaymentStatus
// @Router       /api/v1/payments/{booking_id}/status [get]
func ApiGetPaymentStatus(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("booking_id")
		if bookingID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing booking_id"))
			return
		}
		st, err := svc.GetPaymentStatus(c.Request.Context(), bookingID, time.Now().UTC())
		if errors.Is(err, ledger.ErrBookingNotFound) {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			return
		}
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(st))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, svc *ledger.Service) {
	r.GET("/:booking_id/status", ApiGetPaymentStatus(svc))
}

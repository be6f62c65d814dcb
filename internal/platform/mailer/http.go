package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/staypay/pkg/config"
	"github.com/fatflowers/staypay/pkg/logctx"
	"github.com/fatflowers/staypay/pkg/types"
)

const sendPath = "/api/email/send"

// BookingEmail is the template data the email sender renders.
type BookingEmail struct {
	BookingID        string `json:"bookingId"`
	GuestName        string `json:"guestName"`
	GuestEmail       string `json:"guestEmail"`
	HostName         string `json:"hostName"`
	HostEmail        string `json:"hostEmail"`
	PropertyTitle    string `json:"propertyTitle"`
	PropertyLocation string `json:"propertyLocation"`
	CheckInDate      string `json:"checkInDate"`
	CheckOutDate     string `json:"checkOutDate"`
	Guests           int    `json:"guests"`
	TotalAmount      string `json:"totalAmount"`
}

type Message struct {
	Type types.EmailType `json:"type"`
	Data BookingEmail    `json:"data"`
}

type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// HTTPMailer posts messages to the email sender service.
type HTTPMailer struct {
	baseURL string
	client  *http.Client
	log     *zap.SugaredLogger
}

func NewHTTPMailer(baseURL string, client *http.Client, log *zap.SugaredLogger) *HTTPMailer {
	return &HTTPMailer{baseURL: strings.TrimRight(baseURL, "/"), client: client, log: log}
}

func (m *HTTPMailer) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tid := logctx.TraceID(ctx); tid != "" {
		req.Header.Set("X-Request-ID", tid)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	logctx.FromCtx(ctx, m.log).Infow("email_sent", "type", msg.Type, "booking_id", msg.Data.BookingID)
	return nil
}

// Disabled drops every message.
type Disabled struct{}

func (Disabled) Send(context.Context, *Message) error { return nil }

func New(cfg *config.Config, log *zap.SugaredLogger) Mailer {
	if cfg.Email.BaseURL == "" {
		log.Infow("email sender disabled")
		return Disabled{}
	}
	timeout := cfg.Email.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return NewHTTPMailer(cfg.Email.BaseURL, &http.Client{Timeout: timeout}, log)
}

var Module = fx.Options(
	fx.Provide(New),
)

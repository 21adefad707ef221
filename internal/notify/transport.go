package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"

	"github.com/aether-community/backend/pkg/queue"
)

// LogTransport logs messages instead of sending them. It is used when no
// email provider is configured so flows are not blocked in development.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport creates a log-only transport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{logger: logger}
}

// Send logs msg and always succeeds.
func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("email not sent: no transport configured",
		zap.String("category", msg.Category),
		zap.String("to", msg.To.Email),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

// SMTPConfig holds SMTP server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPTransport sends mail through an SMTP relay.
type SMTPTransport struct {
	cfg  SMTPConfig
	auth smtp.Auth
}

// NewSMTPTransport creates an SMTP transport. Auth is skipped when no username is set.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPTransport{cfg: cfg, auth: auth}
}

// Send delivers msg. net/smtp has no context support, so the call runs in a
// goroutine and Send returns early when ctx or the configured timeout ends.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	e := &email.Email{
		From:    formatAddress(msg.From),
		To:      []string{formatAddress(msg.To)},
		Subject: msg.Subject,
		Text:    []byte(msg.Text),
		HTML:    []byte(msg.HTML),
		Headers: textproto.MIMEHeader{},
	}
	if msg.Category != "" {
		e.Headers.Set("X-Aether-Category", msg.Category)
	}
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Send(addr, t.auth) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func formatAddress(a Address) string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%q <%s>", a.Name, a.Email)
}

// APITransport posts messages to a JSON email API (Mailtrap-style send endpoint).
type APITransport struct {
	url    string
	apiKey string
	client *http.Client
}

// NewAPITransport creates an HTTP API transport.
func NewAPITransport(url, apiKey string, timeout time.Duration) *APITransport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &APITransport{url: url, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

type apiRequest struct {
	From     Address   `json:"from"`
	To       []Address `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html,omitempty"`
	Text     string    `json:"text,omitempty"`
	Category string    `json:"category,omitempty"`
}

// Send posts msg to the API.
func (t *APITransport) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(apiRequest{
		From:     msg.From,
		To:       []Address{msg.To},
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		Text:     msg.Text,
		Category: msg.Category,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status: %d", resp.StatusCode)
	}
	return nil
}

// TransportConfig selects and configures a delivery transport.
type TransportConfig struct {
	SMTP    SMTPConfig
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// TransportFromConfig picks SMTP when a host is set, then the HTTP API, and
// falls back to logging.
func TransportFromConfig(cfg TransportConfig, logger *zap.Logger) Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case cfg.SMTP.Host != "":
		if cfg.SMTP.Timeout <= 0 {
			cfg.SMTP.Timeout = cfg.Timeout
		}
		logger.Info("email via SMTP", zap.String("host", cfg.SMTP.Host))
		return NewSMTPTransport(cfg.SMTP)
	case cfg.APIURL != "":
		logger.Info("email via HTTP API", zap.String("url", cfg.APIURL))
		return NewAPITransport(cfg.APIURL, cfg.APIKey, cfg.Timeout)
	default:
		logger.Warn("no email transport configured; emails are logged only")
		return NewLogTransport(logger)
	}
}

// Enqueuer is the part of the job queue used by QueueTransport.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// QueueTransport hands messages to the background worker.
type QueueTransport struct {
	q Enqueuer
}

// NewQueueTransport creates a transport that enqueues email jobs.
func NewQueueTransport(q Enqueuer) *QueueTransport {
	return &QueueTransport{q: q}
}

// Send enqueues msg. Delivery failures surface in the worker, not here.
func (t *QueueTransport) Send(ctx context.Context, msg Message) error {
	return t.q.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      msg.Category,
		FromEmail:      msg.From.Email,
		FromName:       msg.From.Name,
		RecipientEmail: msg.To.Email,
		RecipientName:  msg.To.Name,
		Subject:        msg.Subject,
		BodyText:       msg.Text,
		BodyHTML:       msg.HTML,
	})
}

// MessageFromPayload rebuilds a message from a queued email job.
func MessageFromPayload(p queue.EmailPayload) Message {
	return Message{
		From:     Address{Email: p.FromEmail, Name: p.FromName},
		To:       Address{Email: p.RecipientEmail, Name: p.RecipientName},
		Subject:  p.Subject,
		Text:     p.BodyText,
		HTML:     p.BodyHTML,
		Category: p.EmailType,
	}
}

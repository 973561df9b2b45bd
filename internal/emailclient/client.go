// internal/emailclient/client.go
//
// Notification gateway for the transactional-email provider.
//
// Context
// -------
// The provider exposes one endpoint we care about:
//
//	POST {base_url}/v3/mail/send
//	Authorization: Bearer <token>
//	Content-Type: application/json
//
// Every call is a single attempt bounded by the http.Client timeout.  A
// non-2xx status, a transport error, or a timeout all come back as
// ErrDelivery.  Retrying is the caller's decision.
//
// Notes
// -----
//   - The bearer token is a secret.String.  It is exposed only while the
//     Authorization header is set and never appears in errors or logs.
//   - Response bodies are drained so keep-alive connections are reused.
package emailclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/newsletter/internal/domain"
	"github.com/yanizio/newsletter/internal/metrics"
	"github.com/yanizio/newsletter/internal/secret"
)

// ErrDelivery covers every way a send can fail.
var ErrDelivery = errors.New("email delivery failed")

// DefaultTimeout bounds a provider call when the config leaves it unset.
const DefaultTimeout = 10 * time.Second

const sendPath = "/v3/mail/send"

// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sender     domain.SubscriberEmail
	authToken  secret.String
	log        *zap.Logger
}

// New builds a Client.  A zero timeout falls back to DefaultTimeout.
func New(baseURL string, sender domain.SubscriberEmail, authToken secret.String,
	timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		sender:     sender,
		authToken:  authToken,
		log:        log,
	}
}

// SendEmail performs one POST to the provider.
func (c *Client) SendEmail(ctx context.Context, recipient domain.SubscriberEmail,
	subject, contentType, content string) error {
	body, err := json.Marshal(sendEmailRequest{
		From: address{Email: c.sender.String()},
		Personalizations: []personalization{{
			To:      []address{{Email: recipient.String()}},
			Subject: subject,
		}},
		Content: []contentPart{{Type: contentType, Value: content}},
	})
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.authToken.Expose())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.EmailDeliverySeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EmailDeliveriesTotal.WithLabelValues("error").Inc()
		c.log.Warn("email provider unreachable",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(redactURLError(err)),
		)
		return fmt.Errorf("%w: %v", ErrDelivery, redactURLError(err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.EmailDeliveriesTotal.WithLabelValues("rejected").Inc()
		c.log.Warn("email provider rejected message",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		return fmt.Errorf("%w: provider responded %d", ErrDelivery, resp.StatusCode)
	}

	metrics.EmailDeliveriesTotal.WithLabelValues("sent").Inc()
	return nil
}

// redactURLError keeps the failure cause but drops the request URL, which
// may carry credentials in misconfigured base URLs.
func redactURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}

//
// Wire format
//

type sendEmailRequest struct {
	From             address           `json:"from"`
	Personalizations []personalization `json:"personalizations"`
	Content          []contentPart     `json:"content"`
}

type personalization struct {
	To      []address `json:"to"`
	Subject string    `json:"subject"`
}

type address struct {
	Email string `json:"email"`
}

type contentPart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

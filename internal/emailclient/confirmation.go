package emailclient

import (
	"context"
	"fmt"
	"html"

	"github.com/yanizio/newsletter/internal/domain"
)

const (
	confirmationSubject     = "Welcome!"
	confirmationContentType = "text/html"
)

// ConfirmationBody renders the HTML body with exactly one embedded link.
func ConfirmationBody(link string) string {
	return fmt.Sprintf(
		`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`,
		html.EscapeString(link),
	)
}

// SendConfirmationEmail sends the double opt-in message to recipient.
func (c *Client) SendConfirmationEmail(ctx context.Context, recipient domain.SubscriberEmail, link string) error {
	return c.SendEmail(ctx, recipient, confirmationSubject, confirmationContentType, ConfirmationBody(link))
}

// internal/subscription/service.go
//
// Double opt-in workflow.
//
// Context
// -------
// Submit:   validate → insert pending subscriber → issue + store token →
//
//	send confirmation email → accepted
//
// Confirm:  token present → ConfirmByToken → accepted
// Resend:   subscriber exists and is pending → new token → email
//
// Every step that fails stops the run; nothing is rolled back.  A
// subscriber persisted without a token, or with a token but no email, is a
// known partial state that Resend repairs.
//
// Notes
// -----
//   - The email is sent only after subscriber and token are stored, so no
//     link is ever mailed for a row that cannot be confirmed.
//   - The send runs on a context detached from the request so a dropped
//     client does not abort delivery half-way.  The gateway's own timeout
//     still bounds it.
//   - Concurrent confirms of one token each run against the store on
//     their own context.  The store's guarded UPDATE keeps them idempotent.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/newsletter/internal/domain"
	"github.com/yanizio/newsletter/internal/metrics"
	"github.com/yanizio/newsletter/internal/store"
	"github.com/yanizio/newsletter/internal/token"
)

// ConfirmPath is the route the emailed link points at.
const ConfirmPath = "/subscriptions/confirm"

// TokenParam is the query parameter carrying the token in the link.
const TokenParam = "subscription_token"

// maxTokenAttempts bounds re-issuing after a unique-key collision.
const maxTokenAttempts = 3

// Store is the persistence the workflow needs.
type Store interface {
	InsertSubscriber(ctx context.Context, ns domain.NewSubscriber) (uuid.UUID, error)
	StoreToken(ctx context.Context, token string, subscriberID uuid.UUID) error
	ConfirmByToken(ctx context.Context, token string) (store.Confirmation, error)
	SubscriberByID(ctx context.Context, id uuid.UUID) (domain.Subscriber, error)
}

// Notifier delivers the confirmation email.
type Notifier interface {
	SendConfirmationEmail(ctx context.Context, recipient domain.SubscriberEmail, link string) error
}

// Service runs the workflow.  It holds no per-subscriber state.
type Service struct {
	store    Store
	notifier Notifier
	baseURL  string
	log      *zap.Logger
	issue    func() string
}

// Option customises a Service.
type Option func(*Service)

// WithTokenIssuer replaces token.Issue.
func WithTokenIssuer(f func() string) Option {
	return func(s *Service) { s.issue = f }
}

// New builds a Service.  baseURL is the externally visible application URL
// used to build confirmation links.
func New(st Store, n Notifier, baseURL string, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:    st,
		notifier: n,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log,
		issue:    token.Issue,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ConfirmationLink renders the URL mailed to the subscriber.
func (s *Service) ConfirmationLink(tok string) string {
	return s.baseURL + ConfirmPath + "?" + TokenParam + "=" + url.QueryEscape(tok)
}

// Subscribe validates and persists a new subscriber, then mails the link.
// The id is returned whenever the subscriber row exists, including on
// ErrStorage from the token step and on ErrDelivery.
func (s *Service) Subscribe(ctx context.Context, rawName, rawEmail string) (uuid.UUID, error) {
	email, err := domain.ParseSubscriberEmail(rawEmail)
	if err != nil {
		return uuid.Nil, s.reject(err)
	}
	name, err := domain.ParseSubscriberName(rawName)
	if err != nil {
		return uuid.Nil, s.reject(err)
	}

	log := s.log.With(
		zap.String("subscriber_email", email.String()),
		zap.String("subscriber_name", name.String()),
	)

	id, err := s.store.InsertSubscriber(ctx, domain.NewSubscriber{Email: email, Name: name})
	if err != nil {
		metrics.SubscriptionsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("insert subscriber", zap.String("outcome", "failed"), zap.Error(err))
		return uuid.Nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	log = log.With(zap.Stringer("subscriber_id", id))
	log.Info("subscriber persisted", zap.String("outcome", "persisted"))

	if err := s.issueAndSend(ctx, log, id, email); err != nil {
		metrics.SubscriptionsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return id, err
	}

	metrics.SubscriptionsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	log.Info("subscription accepted", zap.String("outcome", "accepted"))
	return id, nil
}

// Confirm marks the subscriber owning tok as confirmed.  Repeating it is
// harmless.
func (s *Service) Confirm(ctx context.Context, tok string) error {
	if tok == "" {
		metrics.ConfirmationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return fmt.Errorf("%w: missing token", ErrInvalidInput)
	}
	if !token.WellFormed(tok) {
		metrics.ConfirmationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		s.log.Info("malformed confirmation token", zap.String("outcome", "rejected"))
		return ErrTokenNotFound
	}

	c, err := s.store.ConfirmByToken(ctx, tok)
	switch {
	case errors.Is(err, store.ErrTokenNotFound):
		metrics.ConfirmationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		s.log.Info("unknown confirmation token", zap.String("outcome", "rejected"))
		return fmt.Errorf("%w: %w", ErrTokenNotFound, err)
	case err != nil:
		metrics.ConfirmationsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.log.Error("confirm subscriber", zap.String("outcome", "failed"), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	metrics.ConfirmationsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	s.log.Info("subscriber confirmed",
		zap.Stringer("subscriber_id", c.SubscriberID),
		zap.Bool("already_confirmed", c.AlreadyConfirmed),
		zap.String("outcome", "accepted"),
	)
	return nil
}

// Resend issues a fresh token for a pending subscriber and mails it.
// Confirmed subscribers are left alone.
func (s *Service) Resend(ctx context.Context, id uuid.UUID) error {
	sub, err := s.store.SubscriberByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrSubscriberNotFound):
		return fmt.Errorf("%w: %s", ErrSubscriberNotFound, id)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	log := s.log.With(
		zap.String("subscriber_email", sub.Email),
		zap.String("subscriber_name", sub.Name),
		zap.Stringer("subscriber_id", id),
	)
	if sub.Confirmed() {
		log.Info("resend skipped", zap.String("outcome", "already_confirmed"))
		return nil
	}

	email, err := domain.ParseSubscriberEmail(sub.Email)
	if err != nil {
		return fmt.Errorf("%w: stored email: %w", ErrInvalidInput, err)
	}
	if err := s.issueAndSend(ctx, log, id, email); err != nil {
		return err
	}
	log.Info("confirmation resent", zap.String("outcome", "accepted"))
	return nil
}

// issueAndSend runs the tokenize and deliver steps shared by Subscribe
// and Resend.
func (s *Service) issueAndSend(ctx context.Context, log *zap.Logger, id uuid.UUID, email domain.SubscriberEmail) error {
	tok, err := s.storeFreshToken(ctx, id)
	if err != nil {
		log.Error("store token", zap.String("outcome", "failed"), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	log.Info("token stored", zap.String("outcome", "tokenized"))

	if err := s.notifier.SendConfirmationEmail(context.WithoutCancel(ctx), email, s.ConfirmationLink(tok)); err != nil {
		log.Error("send confirmation email", zap.String("outcome", "failed"), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	log.Info("confirmation email sent", zap.String("outcome", "delivered"))
	return nil
}

func (s *Service) storeFreshToken(ctx context.Context, id uuid.UUID) (string, error) {
	var err error
	for range maxTokenAttempts {
		tok := s.issue()
		err = s.store.StoreToken(ctx, tok, id)
		if !errors.Is(err, store.ErrTokenCollision) {
			return tok, err
		}
	}
	return "", err
}

func (s *Service) reject(err error) error {
	metrics.SubscriptionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	s.log.Info("subscription rejected", zap.String("outcome", "rejected"), zap.Error(err))
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

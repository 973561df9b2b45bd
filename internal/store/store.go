// internal/store/store.go
//
// Subscription store backed by sqlx.
//
// Context
// -------
// Two relations hold every piece of cross-request state:
//
//	subscriptions        (id PK, email, name, status, subscribed_at)
//	subscription_tokens  (subscription_token PK, subscriber_id FK → subscriptions.id)
//
// Queries are written with "?" placeholders and passed through Rebind, so
// the same statements run on MySQL and Postgres.  The foreign key makes a
// dangling token impossible: a token row can only be inserted once its
// subscriber row is committed.
//
// Notes
// -----
//   - ConfirmByToken runs lookup and status flip in one transaction.  The
//     UPDATE is guarded on the pending status, so a repeat confirm is a
//     no-op that still succeeds.
//   - Driver errors are classified by SQLSTATE / MySQL error number rather
//     than by message text.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/yanizio/newsletter/internal/domain"
)

var (
	ErrTokenNotFound      = errors.New("subscription token not found")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrTokenCollision     = errors.New("subscription token already issued")
)

// Confirmation reports the result of ConfirmByToken.
type Confirmation struct {
	SubscriberID     uuid.UUID
	AlreadyConfirmed bool
}

// SQLStore is safe for concurrent use; all state lives in the database.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQL wraps an open pool.
func NewSQL(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// InsertSubscriber creates a pending subscriber and returns its new id.
func (s *SQLStore) InsertSubscriber(ctx context.Context, ns domain.NewSubscriber) (uuid.UUID, error) {
	const q = `INSERT INTO subscriptions (id, email, name, status, subscribed_at)
	           VALUES (?, ?, ?, ?, ?)`

	id := uuid.New()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(q),
		id.String(), ns.Email.String(), ns.Name.String(),
		string(domain.StatusPendingConfirmation), s.now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert subscriber: %w", err)
	}
	return id, nil
}

// StoreToken binds token to an existing subscriber.
func (s *SQLStore) StoreToken(ctx context.Context, token string, subscriberID uuid.UUID) error {
	const q = `INSERT INTO subscription_tokens (subscription_token, subscriber_id)
	           VALUES (?, ?)`

	_, err := s.db.ExecContext(ctx, s.db.Rebind(q), token, subscriberID.String())
	switch {
	case err == nil:
		return nil
	case isDuplicateKey(err):
		return fmt.Errorf("store token: %w", ErrTokenCollision)
	case isForeignKeyViolation(err):
		return fmt.Errorf("store token for %s: %w", subscriberID, ErrSubscriberNotFound)
	default:
		return fmt.Errorf("store token: %w", err)
	}
}

// ConfirmByToken flips the owning subscriber to confirmed.
func (s *SQLStore) ConfirmByToken(ctx context.Context, token string) (Confirmation, error) {
	const (
		lookup = `SELECT subscriber_id FROM subscription_tokens
		          WHERE subscription_token = ?`
		flip = `UPDATE subscriptions SET status = ?
		        WHERE id = ? AND status = ?`
	)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Confirmation{}, fmt.Errorf("begin confirm: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id uuid.UUID
	if err := tx.GetContext(ctx, &id, tx.Rebind(lookup), token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Confirmation{}, ErrTokenNotFound
		}
		return Confirmation{}, fmt.Errorf("lookup token: %w", err)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(flip),
		string(domain.StatusConfirmed), id.String(), string(domain.StatusPendingConfirmation))
	if err != nil {
		return Confirmation{}, fmt.Errorf("confirm subscriber %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Confirmation{}, fmt.Errorf("confirm subscriber %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return Confirmation{}, fmt.Errorf("commit confirm: %w", err)
	}
	return Confirmation{SubscriberID: id, AlreadyConfirmed: n == 0}, nil
}

// SubscriberByID returns ErrSubscriberNotFound for unknown ids.
func (s *SQLStore) SubscriberByID(ctx context.Context, id uuid.UUID) (domain.Subscriber, error) {
	const q = `SELECT id, email, name, status, subscribed_at
	           FROM subscriptions WHERE id = ?`

	var sub domain.Subscriber
	if err := s.db.GetContext(ctx, &sub, s.db.Rebind(q), id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subscriber{}, ErrSubscriberNotFound
		}
		return domain.Subscriber{}, fmt.Errorf("subscriber %s: %w", id, err)
	}
	return sub, nil
}

// SubscribersByEmail lists every submission made with email, oldest first.
func (s *SQLStore) SubscribersByEmail(ctx context.Context, email string) ([]domain.Subscriber, error) {
	const q = `SELECT id, email, name, status, subscribed_at
	           FROM subscriptions WHERE email = ?
	           ORDER BY subscribed_at`

	subs := make([]domain.Subscriber, 0, 1)
	if err := s.db.SelectContext(ctx, &subs, s.db.Rebind(q), email); err != nil {
		return nil, fmt.Errorf("subscribers by email: %w", err)
	}
	return subs, nil
}

// TokensForSubscriber lists every token issued to id.
func (s *SQLStore) TokensForSubscriber(ctx context.Context, id uuid.UUID) ([]string, error) {
	const q = `SELECT subscription_token FROM subscription_tokens
	           WHERE subscriber_id = ?`

	toks := make([]string, 0, 1)
	if err := s.db.SelectContext(ctx, &toks, s.db.Rebind(q), id.String()); err != nil {
		return nil, fmt.Errorf("tokens for %s: %w", id, err)
	}
	return toks, nil
}

// Ping reports database reachability for health checks.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

//
// Driver error classification
//

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && string(pgErr.Code) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoReferencedRow
	}
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && string(pgErr.Code) == pgForeignKeyViolation
}

// cmd/resend/main.go
//
// Operator tool: re-send the confirmation email.
//
// Usage
// -----
//
//	resend <subscriber-id | email> [...]
//
// An email argument selects every subscriber submitted with that address.
// Each pending subscriber receives a fresh token and a new email.
// Confirmed subscribers are skipped.  Exit status is 1 when any target fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/newsletter/internal/config"
	"github.com/yanizio/newsletter/internal/database"
	"github.com/yanizio/newsletter/internal/domain"
	"github.com/yanizio/newsletter/internal/emailclient"
	"github.com/yanizio/newsletter/internal/logger"
	"github.com/yanizio/newsletter/internal/store"
	"github.com/yanizio/newsletter/internal/subscription"
	"github.com/yanizio/newsletter/internal/vault"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: resend <subscriber-id | email> [...]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "resend: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(ctx, func(ctx context.Context) (config.KVReader, error) {
		return vault.New(ctx, nil)
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("resend needs a persistent database, not the memory driver")
	}

	logOut, err := logger.New(logger.Options{
		Dir:     filepath.Join(cfg.Paths.Root, "logs"),
		Level:   cfg.Log.Level,
		Console: true,
	})
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = logOut.Sync() }()

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN.Expose(), database.Options{
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	st := store.NewSQL(db)

	ids, err := targets(ctx, st, args)
	if err != nil {
		return err
	}

	sender, err := cfg.EmailClient.Sender()
	if err != nil {
		return fmt.Errorf("sender email: %w", err)
	}
	mail := emailclient.New(cfg.EmailClient.BaseURL, sender,
		cfg.EmailClient.AuthorizationToken, cfg.EmailClient.Timeout, logOut.Named("email"))
	wf := subscription.New(st, mail, cfg.Application.BaseURL, logOut.Named("resend"))

	var errs []error
	for _, id := range ids {
		if err := wf.Resend(ctx, id); err != nil {
			logOut.Error("resend failed", zap.Stringer("subscriber_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

type emailLookup interface {
	SubscribersByEmail(ctx context.Context, email string) ([]domain.Subscriber, error)
}

// targets turns each argument into subscriber ids.  An email that matches
// nobody is an error.
func targets(ctx context.Context, st emailLookup, args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		if id, err := uuid.Parse(a); err == nil {
			ids = append(ids, id)
			continue
		}
		email, err := domain.ParseSubscriberEmail(a)
		if err != nil {
			return nil, fmt.Errorf("%q is neither a subscriber id nor an email: %w", a, err)
		}
		subs, err := st.SubscribersByEmail(ctx, email.String())
		if err != nil {
			return nil, fmt.Errorf("look up %s: %w", email, err)
		}
		if len(subs) == 0 {
			return nil, fmt.Errorf("no subscriber with email %s", email)
		}
		for _, sub := range subs {
			ids = append(ids, sub.ID)
		}
	}
	return ids, nil
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEmail is returned by ParseSubscriberEmail.
var ErrInvalidEmail = errors.New("invalid subscriber email")

// SubscriberEmail is an address that passed ParseSubscriberEmail.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail accepts raw when it holds exactly one "@" with a
// non-empty local part and a non-empty domain part.  Surrounding
// whitespace is trimmed first.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	s := strings.TrimSpace(raw)
	if strings.Count(s, "@") != 1 {
		return SubscriberEmail{}, fmt.Errorf("%w: %q must contain exactly one @", ErrInvalidEmail, raw)
	}
	local, domain, _ := strings.Cut(s, "@")
	if local == "" {
		return SubscriberEmail{}, fmt.Errorf("%w: %q has an empty local part", ErrInvalidEmail, raw)
	}
	if domain == "" {
		return SubscriberEmail{}, fmt.Errorf("%w: %q has an empty domain part", ErrInvalidEmail, raw)
	}
	return SubscriberEmail{value: s}, nil
}

func (e SubscriberEmail) String() string { return e.value }

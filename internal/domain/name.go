package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MaxNameLength is counted in runes.
const MaxNameLength = 256

// ErrInvalidName is returned by ParseSubscriberName.
var ErrInvalidName = errors.New("invalid subscriber name")

// forbiddenNameChars are rejected anywhere in a name.
const forbiddenNameChars = `/()"<>\{}`

var validate = validator.New()

// nameRules is checked by the validator after the blank check.  The
// excludesall parameter must not contain a comma or pipe.
var nameRules = fmt.Sprintf("max=%d,excludesall=%s", MaxNameLength, forbiddenNameChars)

// SubscriberName is a display name that passed ParseSubscriberName.
type SubscriberName struct {
	value string
}

// ParseSubscriberName rejects names that are blank after trimming, longer
// than MaxNameLength runes, or that contain control characters or any of
// the forbidden symbols.  The raw value is kept as submitted.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.IndexFunc(raw, unicode.IsControl) >= 0 {
		return SubscriberName{}, fmt.Errorf("%w: contains a control character", ErrInvalidName)
	}
	if err := validate.Var(raw, nameRules); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return SubscriberName{}, fmt.Errorf("%w: failed %q rule", ErrInvalidName, verrs[0].Tag())
		}
		return SubscriberName{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return SubscriberName{value: raw}, nil
}

func (n SubscriberName) String() string { return n.value }

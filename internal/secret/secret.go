// internal/secret/secret.go
//
// Opaque wrapper for credentials.
//
// Context
// -------
// Bearer tokens and DSNs travel through config structs, constructors, and
// occasionally error paths.  String keeps the raw value out of every default
// rendering: fmt verbs, JSON, text marshalling, and zap reflection all see
// "[REDACTED]".  The only way to read the value is Expose, which should be
// called at the exact point an outbound header or driver DSN is built.
//
// Notes
// -----
//   - UnmarshalText accepts the raw value so koanf/mapstructure can decode
//     config strings straight into a String.
//   - MarshalText is intentionally not the inverse of UnmarshalText.
package secret

import (
	"encoding/json"
	"fmt"
	"io"
)

const redacted = "[REDACTED]"

// String holds a secret value.  The zero value is an empty secret.
type String struct {
	value string
}

// New wraps raw.
func New(raw string) String { return String{value: raw} }

// Expose returns the raw value.
func (s String) Expose() string { return s.value }

// IsZero reports whether the secret is empty.
func (s String) IsZero() bool { return s.value == "" }

func (s String) String() string { return redacted }

// Format covers every fmt verb, including %#v and %q.
func (s String) Format(f fmt.State, _ rune) { _, _ = io.WriteString(f, redacted) }

func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

func (s String) MarshalText() ([]byte, error) { return []byte(redacted), nil }

func (s *String) UnmarshalText(b []byte) error {
	s.value = string(b)
	return nil
}

// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, so the binary never runs
// with partial, malformed, or missing configuration.
//
// `secret.String` hides its value from reflection-based tooling, so a
// custom type func hands the validator the revealed string.  The sender
// address is checked with the subscriber email rules, and the email
// timeout must fit inside the server's write deadline.

package config

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/newsletter/internal/secret"
	"github.com/yanizio/newsletter/internal/server"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if s, ok := f.Interface().(secret.String); ok {
			return s.Expose()
		}
		return nil
	}, secret.String{})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	if _, err := c.EmailClient.Sender(); err != nil {
		return fmt.Errorf("email_client.sender_email: %w", err)
	}
	if c.EmailClient.Timeout >= server.WriteTimeout {
		return fmt.Errorf("email_client.timeout %s must be below the HTTP write timeout %s",
			c.EmailClient.Timeout, server.WriteTimeout)
	}
	return nil
}

package subscription

import "errors"

// Failure kinds surfaced by the workflow.  Callers classify with errors.Is;
// the underlying cause stays in the chain.
var (
	ErrInvalidInput       = errors.New("invalid subscription input")
	ErrStorage            = errors.New("subscription storage failure")
	ErrDelivery           = errors.New("confirmation email delivery failure")
	ErrTokenNotFound      = errors.New("confirmation token not recognised")
	ErrSubscriberNotFound = errors.New("subscriber does not exist")
)

package domain

import "github.com/pkg/errors"

// Error kinds returned by rate providers. Callers match them with errors.Is
// and map them onto their own transport codes.
var (
	// ErrInvalidArgument caller parameters violate a precondition. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedCurrency conversion involves an excluded currency. No network call is made.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrProviderUnavailable retries are exhausted or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("rate provider unavailable")
	// ErrDecode provider payload does not match the expected shape.
	ErrDecode = errors.New("malformed provider response")
	// ErrProviderNotFound no configured provider answers to the requested name.
	ErrProviderNotFound = errors.New("rate provider not found")
)

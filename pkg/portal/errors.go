// pkg/portal/errors.go
package portal

import "errors"

var (
	// ErrSessionExpired means a previously valid session stopped being
	// accepted mid-operation. The stored cookie set has already been
	// deleted; the caller must re-authenticate before retrying.
	ErrSessionExpired = errors.New("portal session expired: call login again before retrying the operation")

	// ErrLoginFailed is the terminal outcome of a credential login
	// attempt. A diagnostic screenshot is written to the storage
	// directory before this error is returned.
	ErrLoginFailed = errors.New("portal login failed")

	// ErrMissingCredentials is a configuration error, surfaced
	// immediately and never retried.
	ErrMissingCredentials = errors.New("portal credentials are not configured")
)

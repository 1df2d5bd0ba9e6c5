package authn

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredential indicates a malformed, expired, or wrong-kind token.
	ErrInvalidCredential = errors.New("authn: invalid credential")
	// ErrStateMismatch indicates the callback state does not match the cookie state.
	ErrStateMismatch = errors.New("authn: oauth state mismatch")
	// ErrRefreshReused indicates the refresh record is missing, expired, or the
	// presented credential does not match the stored digest.
	ErrRefreshReused = errors.New("authn: refresh token reused or expired")
	// ErrUserDeactivated indicates login was rejected for an inactive identity.
	ErrUserDeactivated = errors.New("authn: user deactivated")
	// ErrIdentityNotFound signals the user has no linked provider identity.
	ErrIdentityNotFound = errors.New("authn: identity not found")
)

// ProviderError reports a failed call to the external identity provider.
type ProviderError struct {
	Op     string // "exchange", "profile", or "unlink"
	Status int    // upstream HTTP status, 0 when the request never completed
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s failed: status=%d", e.Op, e.Status)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

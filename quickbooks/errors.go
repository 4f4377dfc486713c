package quickbooks

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAlreadySent means a success send log already exists for the
	// cafe and business date; the day must not be delivered twice.
	ErrAlreadySent = errors.New("report already sent for this business date")

	// ErrNotConnected means the user has no stored QuickBooks token.
	ErrNotConnected = errors.New("quickbooks account not connected")

	// ErrRefreshTokenExpired means the stored refresh token is past its
	// lifetime; the user must re-authorize before any send can succeed.
	ErrRefreshTokenExpired = errors.New("quickbooks refresh token expired, reconnect required")
)

// APIError is a non-2xx response from QuickBooks, carrying the status and
// the verbatim response body for the audit trail.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quickbooks api error: status %d: %s", e.StatusCode, e.Body)
}

// isAuthError reports whether an error is a QuickBooks 401, the signal
// that the access token is stale and one refresh-and-retry is warranted.
func isAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

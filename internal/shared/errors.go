package shared

import "errors"

// Session and CSRF failures. The middleware answers all of them with 403 or 500 and
// never shows them to the user.
var (
	ErrSessionMissing    = errors.New("shared: request has no session")
	ErrCSRFTokenMissing  = errors.New("shared: csrf token missing")
	ErrCSRFTokenMismatch = errors.New("shared: csrf token mismatch")
)

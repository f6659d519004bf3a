package email

import (
	"errors"
	"fmt"
)

// AuthError reports a mailbox login rejection, as opposed to a
// transport failure. Login rejections are configuration problems and
// retrying them is pointless.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("mailbox authentication failed for %s: %s", e.Username, e.Message)
}

// IsAuthError reports whether err is, or wraps, an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

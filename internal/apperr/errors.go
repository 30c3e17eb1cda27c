// Package apperr defines the error values returned by middleware and
// handlers.  Each error carries an HTTP status and a message that is safe
// to show to clients; the wrapped cause stays internal and is only logged
// by the central error handler.
package apperr

import (
    "errors"
    "net/http"
)

// Kind classifies an error for the transport boundary.
type Kind int

const (
    KindInternal Kind = iota
    KindBadRequest
    KindUnauthorized
    KindForbidden
    KindNotFound
    KindConflict
)

// Messages produced by the authentication pipeline.
const (
    MsgTokenMissing = "Unauthorized: token missing"
    MsgTokenInvalid = "Unauthorized: invalid or expired token"
    MsgUserNotFound = "Unauthorized: user not found"
    MsgForbidden    = "Forbidden"
    MsgInternal     = "internal server error"
)

// Error is an application error with a client-facing status and message.
type Error struct {
    Kind    Kind
    Status  int
    Message string
    Details []string
    Err     error // underlying cause, never rendered
}

func (e *Error) Error() string {
    if e.Err != nil {
        return e.Message + ": " + e.Err.Error()
    }
    return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthorized builds a 401 error.  cause may be nil.
func Unauthorized(msg string, cause error) *Error {
    return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: msg, Err: cause}
}

// Forbidden builds a 403 error with the standard message.
func Forbidden() *Error {
    return &Error{Kind: KindForbidden, Status: http.StatusForbidden, Message: MsgForbidden}
}

// BadRequest builds a 400 error.  Details list individual validation problems.
func BadRequest(msg string, details ...string) *Error {
    return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: msg, Details: details}
}

// NotFound builds a 404 error.
func NotFound(msg string) *Error {
    return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

// Conflict builds a 409 error.
func Conflict(msg string) *Error {
    return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: msg}
}

// Internal wraps a library or store fault.  The client only ever sees the
// generic message.
func Internal(cause error) *Error {
    return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: MsgInternal, Err: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
    var e *Error
    if errors.As(err, &e) {
        return e, true
    }
    return nil, false
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
    e, ok := As(err)
    return ok && e.Kind == k
}

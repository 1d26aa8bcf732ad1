package errprocess

import (
	"errors"
	"fmt"
	"net/http"

	"chat_sync_service/pkg/logger"
)

// Kind error category shared by every service
type Kind string

const (
	// KindAuth token missing, invalid or expired
	KindAuth Kind = "auth"
	// KindValidation rejected input, connection stays alive
	KindValidation Kind = "validation"
	// KindForbidden caller not allowed, no state change
	KindForbidden Kind = "forbidden"
	// KindNotFound referenced chat/message/user absent
	KindNotFound Kind = "not_found"
	// KindConflict uniqueness race, resolved internally
	KindConflict Kind = "conflict"
	// KindDelivery best-effort delivery to one connection failed
	KindDelivery Kind = "delivery"
	// KindInternal anything else
	KindInternal Kind = "internal"
)

// Error typed error
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New typed error
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap typed error keeping the cause
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Auth AuthError
func Auth(msg string) error { return New(KindAuth, msg) }

// Validation ValidationError
func Validation(msg string) error { return New(KindValidation, msg) }

// Forbidden ForbiddenError
func Forbidden(msg string) error { return New(KindForbidden, msg) }

// NotFound NotFoundError
func NotFound(msg string) error { return New(KindNotFound, msg) }

// Conflict ConflictError
func Conflict(err error, msg string) error { return Wrap(KindConflict, err, msg) }

// Delivery DeliveryError
func Delivery(err error, msg string) error { return Wrap(KindDelivery, err, msg) }

// Internal wrap unexpected failure
func Internal(err error, msg string) error { return Wrap(KindInternal, err, msg) }

// KindOf kind of err, untyped errors are internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is check err kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Public caller-visible message, storage detail is never exposed
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Msg
	}
	return "internal error"
}

// HTTPStatus map err kind to http status
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Set log errMsg and return it as an internal error
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

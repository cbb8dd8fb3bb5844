package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the application. Every *Error unwraps to one of these,
// so callers can keep using errors.Is for coarse checks.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("resource already exists")
	ErrInternal           = errors.New("internal server error")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDatabaseConnection = errors.New("database connection error")
)

// Kind classifies a domain error.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Machine-readable reason codes.
const (
	CodeValidation         = "validation_error"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeSelfAction         = "self_action"
	CodeFriendPending      = "friend_request_pending"
	CodeAlreadyFriends     = "already_friends"
	CodeBlocked            = "blocked"
	CodeBlockedByOther     = "blocked_by_other"
	CodeNotFriends         = "not_friends"
	CodeRequestNotPending  = "request_not_pending"
	CodeRequestNotDeclined = "request_not_declined"
	CodeAlreadyMember      = "already_member"
	CodeNotMember          = "not_member"
	CodeInvitePending      = "invite_pending"
	CodeInviteNotPending   = "invite_not_pending"
	CodeInviteNotDeclined  = "invite_not_declined"
	CodeRoleProtected      = "role_protected"
	CodeMissingLLMKey      = "missing_llm_key"
	CodeEmailTaken         = "email_taken"
	CodeSlugTaken          = "slug_taken"
	CodeEventCancelled     = "event_cancelled"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInternal           = "internal_error"
)

// Issue describes a single invalid field.
type Issue struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error is the typed outcome every use-case returns on failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Issues  []Issue
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindValidation:
		return ErrInvalidInput
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}

func newError(kind Kind, status int, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Status: status}
}

func Validation(code, msg string, issues ...Issue) *Error {
	e := newError(KindValidation, http.StatusUnprocessableEntity, code, msg)
	e.Issues = issues
	return e
}

// BadRequest is a validation failure on malformed input (bad id, bad JSON).
func BadRequest(msg string) *Error {
	return newError(KindValidation, http.StatusBadRequest, CodeValidation, msg)
}

func Unauthorized(msg string) *Error {
	return newError(KindUnauthorized, http.StatusUnauthorized, CodeUnauthorized, msg)
}

func Forbidden(code, msg string) *Error {
	return newError(KindForbidden, http.StatusForbidden, code, msg)
}

func NotFound(msg string) *Error {
	return newError(KindNotFound, http.StatusNotFound, CodeNotFound, msg)
}

func Conflict(code, msg string) *Error {
	return newError(KindConflict, http.StatusConflict, code, msg)
}

// AsError extracts a *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCode reports whether err is a domain error carrying code.
func IsCode(err error, code string) bool {
	de, ok := AsError(err)
	return ok && de.Code == code
}

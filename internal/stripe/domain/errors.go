package domain

import "fmt"

// ErrorType classifies API errors the way the emulated platform reports them.
type ErrorType string

const (
	ErrorTypeAPI            ErrorType = "api_error"
	ErrorTypeAuthentication ErrorType = "authentication_error"
	ErrorTypeCard           ErrorType = "card_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
)

// Error is a structured client-visible failure. Invalid-request conditions
// are detected before any store mutation, so an Error never implies partial
// state.
type Error struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Param      string    `json:"param,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	RequestID  string    `json:"requestId,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// InvalidRequestf builds an invalid-request error naming the offending
// parameter.
func InvalidRequestf(param, format string, args ...any) *Error {
	return &Error{
		Type:       ErrorTypeInvalidRequest,
		Param:      param,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: 400,
	}
}

// NoSuch reports a reference to a resource id that does not exist for the
// caller's tenant.
func NoSuch(param, resource, id string) *Error {
	return InvalidRequestf(param, "no such %s: %s", resource, id)
}

// NotFoundf is an invalid-request error surfaced with a 404 status.
func NotFoundf(param, format string, args ...any) *Error {
	err := InvalidRequestf(param, format, args...)
	err.StatusCode = 404
	return err
}

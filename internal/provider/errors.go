package provider

import (
	"errors"
	"fmt"
)

// AuthError means the provider session could not be set up.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: credentials rejected: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ZoneError means the target zone could not be resolved.
type ZoneError struct {
	Provider string
	Zone     string
	Err      error
}

func (e *ZoneError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: zone %q not found", e.Provider, e.Zone)
	}
	return fmt.Sprintf("%s: resolve zone %q: %v", e.Provider, e.Zone, e.Err)
}

func (e *ZoneError) Unwrap() error { return e.Err }

// RequestError is a failed provider API call. Code, Message and RequestID
// carry the provider's diagnostic detail when it sent any.
type RequestError struct {
	Provider  string
	Op        string
	Code      string
	Message   string
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	s := fmt.Sprintf("%s %s", e.Provider, e.Op)
	if e.Code != "" {
		s += fmt.Sprintf(": [%s] %s", e.Code, msg)
	} else {
		s += ": " + msg
	}
	if e.RequestID != "" {
		s += " (request " + e.RequestID + ")"
	}
	return s
}

func (e *RequestError) Unwrap() error { return e.Err }

func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

func IsZone(err error) bool {
	var e *ZoneError
	return errors.As(err, &e)
}

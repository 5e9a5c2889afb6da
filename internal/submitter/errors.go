package submitter

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable reason a run failed.
type Kind string

const (
	KindNotConfigured Kind = "api_not_configured"
	KindInvalidEmail  Kind = "invalid_email"
	KindEmptyMessage  Kind = "empty_message"
	KindTransport     Kind = "http_request_failed"
	KindAPI           Kind = "api_error"
)

func (k Kind) String() string { return string(k) }

// Class groups kinds by where the run stopped.
type Class int

const (
	ClassConfiguration Class = iota + 1 // no request sent
	ClassValidation                     // no request sent
	ClassTransport                      // request attempted, no response
	ClassAPI                            // response outside 2xx
)

func (c Class) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassValidation:
		return "validation"
	case ClassTransport:
		return "transport"
	case ClassAPI:
		return "api"
	default:
		return "unknown"
	}
}

// Error is the structured failure of one run.
type Error struct {
	Kind    Kind
	Message string
	Status  int    // api_error only
	Body    string // api_error only, verbatim
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Class() Class {
	switch e.Kind {
	case KindNotConfigured:
		return ClassConfiguration
	case KindInvalidEmail, KindEmptyMessage:
		return ClassValidation
	case KindTransport:
		return ClassTransport
	default:
		return ClassAPI
	}
}

// Note renders the text appended to the submission for this failure.
func (e *Error) Note() string {
	switch e.Kind {
	case KindNotConfigured:
		return "Helpdesk API is not configured. Please check settings."
	case KindInvalidEmail:
		return "Invalid or missing customer email address."
	case KindEmptyMessage:
		return "Message field is empty."
	case KindTransport:
		return "API request failed: " + e.Message
	case KindAPI:
		return fmt.Sprintf("API error: HTTP %d - %s", e.Status, e.Body)
	default:
		return e.Message
	}
}

// KindOf returns the Kind carried by err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func notConfigured(msg string) *Error {
	return &Error{Kind: KindNotConfigured, Message: msg}
}

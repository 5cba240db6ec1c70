package analysis

import (
	"errors"
	"net/url"
)

// FallbackMessage is shown whenever a failure carries no usable description.
const FallbackMessage = "Failed to analyze stock"

// ServiceError means the service answered but did not deliver an analysis:
// a non-2xx status, or a 2xx body without the analysis field.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return FallbackMessage
	}
	return e.Message
}

// TransportError means no usable response was obtained: the service was
// unreachable, the request was cancelled, or the body was not valid JSON.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return describe(e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// describe strips the `Post "<url>":` prefix net/http puts on transport
// errors so the user sees the underlying failure only.
func describe(err error) string {
	if err == nil {
		return FallbackMessage
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}

// Message maps any error returned by Client.Analyze to the text the form
// displays.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Error()
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Error()
	}
	return describe(err)
}


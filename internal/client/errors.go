package client

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorKind classifies a failed round trip
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindNetwork    ErrorKind = "network"
	KindHTTP       ErrorKind = "http"
	KindUnexpected ErrorKind = "unexpected"
)

// User-facing messages
const (
	MsgTimeout      = "Request timeout. Please try again."
	MsgNetwork      = "Network error. Please check your connection and try again."
	MsgBadRequest   = "Invalid request. Please check your input."
	MsgNotFound     = "Resource not found."
	MsgServer       = "Server error. Please try again later."
	MsgGenericHTTP  = "An error occurred"
	MsgUnexpected   = "An unexpected error occurred. Please try again."
	requestIDHeader = "X-Request-ID"
)

// Error is the normalized failure of a backend call
type Error struct {
	Kind      ErrorKind
	Message   string
	Status    int    // HTTP status, 0 for transport failures
	RequestID string // backend correlation id, if any
	Type      string // backend error type tag, if any
	Err       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusMessage returns the default message for an HTTP error status
func StatusMessage(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return MsgBadRequest
	case status == http.StatusNotFound:
		return MsgNotFound
	case status >= 500:
		return MsgServer
	default:
		return MsgGenericHTTP
	}
}

// fromResponse builds an error from a non-2xx response
func fromResponse(status int, header http.Header, body []byte) *Error {
	e := &Error{
		Kind:    KindHTTP,
		Message: StatusMessage(status),
		Status:  status,
	}

	if msg := gjson.GetBytes(body, "error"); truthy(msg) {
		e.Message = msg.String()
	}
	e.RequestID = gjson.GetBytes(body, "requestId").String()
	if e.RequestID == "" {
		e.RequestID = header.Get(requestIDHeader)
	}
	e.Type = gjson.GetBytes(body, "type").String()
	return e
}

// fromTransport classifies an error returned while sending a request or
// reading its response
func fromTransport(err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Message: MsgTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return unexpected(err)
	default:
		return &Error{Kind: KindNetwork, Message: MsgNetwork, Err: err}
	}
}

// truthy reports whether a body field carries a usable value. Objects and
// arrays are kept as their raw JSON.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	default:
		return r.String() != ""
	}
}

func unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: MsgUnexpected, Err: err}
}

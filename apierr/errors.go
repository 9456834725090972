package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// FieldError is one entry of a structured validation failure.
type FieldError struct {
	Loc  []any  `json:"loc,omitempty"`
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
}

// Body is the decoded error payload of a backend reply. Detail holds either
// a single string or a list of FieldError values.
type Body struct {
	Detail     string
	DetailList []FieldError
	Message    string
}

// ResponseError is a backend reply with a non-2xx status.
type ResponseError struct {
	Op         string
	StatusCode int
	Body       Body
	Raw        []byte
}

func (e *ResponseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if msg := e.Body.text(); msg != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// NetworkError is a request that reached the transport but never got a
// response: dial failures, resets, timeouts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: no response: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewResponseError decodes raw into a ResponseError for op. A body that is
// not JSON leaves Body empty and keeps Raw.
func NewResponseError(op string, status int, raw []byte) *ResponseError {
	return &ResponseError{
		Op:         op,
		StatusCode: status,
		Body:       ParseBody(raw),
		Raw:        raw,
	}
}

// ParseBody extracts detail and message fields from an error payload.
func ParseBody(raw []byte) Body {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Body{}
	}

	var b Body
	if len(envelope.Detail) > 0 {
		var s string
		var list []FieldError
		switch {
		case json.Unmarshal(envelope.Detail, &s) == nil:
			b.Detail = s
		case json.Unmarshal(envelope.Detail, &list) == nil:
			b.DetailList = list
		}
	}
	if len(envelope.Message) > 0 {
		var s string
		if json.Unmarshal(envelope.Message, &s) == nil {
			b.Message = s
		}
	}
	return b
}

func (b Body) joinedDetail() string {
	msgs := make([]string, 0, len(b.DetailList))
	for _, fe := range b.DetailList {
		if m := strings.TrimSpace(fe.Msg); m != "" {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, ", ")
}

func (b Body) text() string {
	if s := b.joinedDetail(); s != "" {
		return s
	}
	if b.Detail != "" {
		return b.Detail
	}
	return b.Message
}

// WrapTransport classifies a transport error from an HTTP round trip.
// A cancelled caller context is returned unchanged; everything else that
// produced no response becomes a NetworkError.
func WrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}

// IsNetwork reports whether err means no response was received.
func IsNetwork(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsUnauthorized reports whether err is a 401 or 403 backend reply.
func IsUnauthorized(err error) bool {
	code, ok := StatusCode(err)
	return ok && (code == http.StatusUnauthorized || code == http.StatusForbidden)
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode, true
	}
	return 0, false
}

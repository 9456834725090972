package apierr

import (
	"errors"
	"strings"
)

// DefaultUnreachableMessage is returned for requests that received no
// response.
const DefaultUnreachableMessage = "Cannot connect to server. Please check your connection."

// Normalizer maps failures to one user-readable message.
type Normalizer struct {
	// Unreachable replaces DefaultUnreachableMessage, for translations.
	Unreachable string
}

var defaultNormalizer = Normalizer{}

// Normalize applies the default Normalizer.
func Normalize(err error, fallback string) string {
	return defaultNormalizer.Normalize(err, fallback)
}

// Normalize returns the first match of:
//  1. joined msg fields of a structured detail list
//  2. the detail string
//  3. the message string
//  4. the unreachable message when no response was received
//  5. the error's own text
//  6. fallback
func (n Normalizer) Normalize(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var re *ResponseError
	if errors.As(err, &re) {
		if s := re.Body.joinedDetail(); s != "" {
			return s
		}
		if re.Body.Detail != "" {
			return re.Body.Detail
		}
		if re.Body.Message != "" {
			return re.Body.Message
		}
	}

	if IsNetwork(err) {
		if n.Unreachable != "" {
			return n.Unreachable
		}
		return DefaultUnreachableMessage
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

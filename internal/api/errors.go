package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a failed request. Status 0 means the request never got a response.
type Error struct {
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("transport error: %s", e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError is raised locally before any request is made
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorKind classifies failures for the user-facing message
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindTransport
	KindTimeout
	KindClient
	KindServer
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Kind returns the class of err
func Kind(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}

	var aerr *Error
	if errors.As(err, &aerr) {
		switch {
		case aerr.Status == 0:
			return KindTransport
		case aerr.Status == http.StatusRequestTimeout:
			return KindTimeout
		case aerr.Status >= 400 && aerr.Status < 500:
			return KindClient
		case aerr.Status >= 500:
			return KindServer
		}
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindUnknown
}

// UserMessage renders err for a toast or an inline chat bubble
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch Kind(err) {
	case KindValidation:
		var verr *ValidationError
		errors.As(err, &verr)
		return verr.Message
	case KindTransport:
		return "Cannot reach the server. Check your connection and that the API is running."
	case KindTimeout:
		return "The request timed out. Please try again."
	case KindClient:
		var aerr *Error
		errors.As(err, &aerr)
		return aerr.Detail
	case KindServer:
		return "Something went wrong on our end. Please try again later."
	case KindCanceled:
		return "Request cancelled."
	default:
		return err.Error()
	}
}

// errorBody covers the two error shapes the backend produces:
// {"detail": "..."} or {"detail": [{"msg": "..."}]}, and {"message": "..."}
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

type validationItem struct {
	Msg string `json:"msg"`
}

// decodeDetail extracts a human readable reason from an error response body
func decodeDetail(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fallback
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		// not JSON: plain text bodies are shown as is
		if trimmed[0] == '{' || trimmed[0] == '[' {
			return fallback
		}
		return trimmed
	}

	if len(eb.Detail) > 0 && string(eb.Detail) != "null" {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []validationItem
		if err := json.Unmarshal(eb.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if eb.Message != "" {
		return eb.Message
	}
	return fallback
}

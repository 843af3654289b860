package exchange

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

var (
	ErrMissingCredentials = errors.New("bitstamp credentials are missing in config")
	ErrInsecureBaseURL    = errors.New("bitstamp base url must use https")
)

// APIError is a well-formed response carrying status "error".
type APIError struct {
	Reason string
	Code   string
	// Fields holds per-field messages when the exchange reports a validation
	// failure as an object instead of a plain reason.
	Fields map[string][]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("bitstamp api error: %s", e.Reason)
	}

	return fmt.Sprintf("bitstamp api error: %s (code: %s)", e.Reason, e.Code)
}

// HTTPError is returned for any non-200 response. When the body is an error
// envelope the parsed APIError is reachable through errors.As.
type HTTPError struct {
	StatusCode int
	Path       string
	Body       []byte
	APIError   *APIError
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("bitstamp %s request failed with %d", e.Path, e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	if e.APIError == nil {
		return nil
	}

	return e.APIError
}

type DecodeError struct {
	Path string
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bitstamp %s response decode failed: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a request before anything is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type bitstampErrorEnvelope struct {
	Status string          `json:"status"`
	Reason json.RawMessage `json:"reason"`
	Code   json.RawMessage `json:"code"`
}

// parseBitstampError returns the APIError carried by body, or nil when body is
// not an object with status "error".
func parseBitstampError(body []byte) *APIError {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var envelope bitstampErrorEnvelope
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return nil
	}

	if envelope.Status != "error" {
		return nil
	}

	apiErr := &APIError{Code: rawJSONText(envelope.Code)}

	var fields map[string][]string
	if err := json.Unmarshal(envelope.Reason, &fields); err == nil && len(fields) > 0 {
		apiErr.Fields = fields
		apiErr.Reason = flattenReasonFields(fields)
		return apiErr
	}

	apiErr.Reason = rawJSONText(envelope.Reason)
	return apiErr
}

func rawJSONText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal([]byte(trimmed), &text); err == nil {
		return text
	}

	return trimmed
}

func flattenReasonFields(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		messages := strings.Join(fields[key], " ")
		if key == "__all__" {
			parts = append(parts, messages)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", key, messages))
	}

	return strings.Join(parts, "; ")
}

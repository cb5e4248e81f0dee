package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindUnauthorized covers a 401 that refresh could not fix, or a
	// missing/invalid credential situation.
	KindUnauthorized Kind = iota + 1
	// KindValidation covers 4xx rejections, including structured per-field
	// validation errors.
	KindValidation
	// KindServer covers 5xx responses.
	KindServer
	// KindNetwork covers transport failures where no response arrived.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

var (
	// ErrNoRefreshToken is returned when a 401 recovery is attempted
	// without a stored refresh token.
	ErrNoRefreshToken = errors.New("no refresh token stored")
)

// RequestError carries the classified outcome of a failed API call. Message
// is human-readable and safe to show in a form; Fields holds per-field
// validation messages when the backend returned them.
type RequestError struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string][]string

	cause error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.cause
}

// IsUnauthorized reports whether err is a RequestError of KindUnauthorized.
func IsUnauthorized(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindUnauthorized
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindNetwork
}

func networkError(err error) *RequestError {
	return &RequestError{
		Kind:    KindNetwork,
		Message: "request failed: " + err.Error(),
		cause:   err,
	}
}

// errorFromResponse builds a RequestError from a non-2xx response body.
// The display message is picked in a fixed order: a "detail" field, then
// "message", then "error", then the first entry of the first field-level
// validation error, else a generic "Error <status>".
func errorFromResponse(status int, body []byte) *RequestError {
	re := &RequestError{Status: status}

	switch {
	case status == 401:
		re.Kind = KindUnauthorized
	case status >= 500:
		re.Kind = KindServer
	default:
		re.Kind = KindValidation
	}

	var raw map[string]json.RawMessage
	if len(body) > 0 {
		_ = json.Unmarshal(body, &raw)
	}

	for _, key := range []string{"detail", "message", "error"} {
		if msg, ok := stringField(raw, key); ok {
			re.Message = msg
			return re
		}
	}

	re.Fields = fieldErrors(raw)
	if len(re.Fields) > 0 {
		keys := make([]string, 0, len(re.Fields))
		for k := range re.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		re.Message = re.Fields[keys[0]][0]
		return re
	}

	re.Message = fmt.Sprintf("Error %d", status)
	return re
}

func stringField(raw map[string]json.RawMessage, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// fieldErrors extracts DRF-style field->[]message entries.
func fieldErrors(raw map[string]json.RawMessage) map[string][]string {
	fields := make(map[string][]string)
	for key, v := range raw {
		var msgs []string
		if err := json.Unmarshal(v, &msgs); err != nil || len(msgs) == 0 {
			continue
		}
		fields[key] = msgs
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

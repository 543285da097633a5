package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Envelope is the uniform response shape every API call resolves to.
// Data is kept raw so a successful upstream body passes through unmodified.
type Envelope struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Errors      ErrorList       `json:"errors,omitempty"`
	TotalCount  int             `json:"totalCount,omitempty"`
	TotalPages  int             `json:"totalPages,omitempty"`
	CurrentPage int             `json:"currentPage,omitempty"`
	PageSize    int             `json:"pageSize,omitempty"`

	// StatusCode is the upstream HTTP status, zero when no response was received.
	StatusCode int `json:"-"`
}

// Decode unmarshals Data into v. An empty or null payload leaves v untouched.
func (e Envelope) Decode(v interface{}) error {
	if len(bytes.TrimSpace(e.Data)) == 0 || bytes.Equal(bytes.TrimSpace(e.Data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}

// Err returns nil for a successful envelope and an error carrying the message otherwise.
func (e Envelope) Err() error {
	if e.Success {
		return nil
	}
	if e.Message != "" {
		return errors.New(e.Message)
	}
	if len(e.Errors) > 0 {
		return errors.New(e.Errors[0])
	}
	return errors.New(MsgUnexpected)
}

// Failure builds a locally synthesized failure envelope.
func Failure(message string, err error) Envelope {
	env := Envelope{Success: false, Message: message}
	if err != nil {
		env.Errors = ErrorList{err.Error()}
	} else {
		env.Errors = ErrorList{message}
	}
	return env
}

// MissingParam is returned by service methods before any network call when a
// required identifier is empty. It carries 400 as if upstream had rejected it.
func MissingParam(name string) Envelope {
	return Envelope{
		Success:    false,
		Message:    fmt.Sprintf("Thiếu thông tin bắt buộc: %s", name),
		Errors:     ErrorList{fmt.Sprintf("%s is required", name)},
		StatusCode: http.StatusBadRequest,
	}
}

// ErrorList accepts the shapes upstream uses for `errors`: a string, a list of
// strings, or a field map of string lists.
type ErrorList []string

func (l *ErrorList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = ErrorList{s}
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make(ErrorList, 0, len(raw))
		for _, r := range raw {
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				out = append(out, string(r))
				continue
			}
			out = append(out, s)
		}
		*l = out
		return nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(b, &fields); err != nil {
			return err
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var out ErrorList
		for _, k := range keys {
			var nested ErrorList
			if err := nested.UnmarshalJSON(fields[k]); err != nil {
				return err
			}
			for _, msg := range nested {
				out = append(out, fmt.Sprintf("%s: %s", k, msg))
			}
		}
		*l = out
		return nil
	default:
		*l = ErrorList{string(b)}
		return nil
	}
}

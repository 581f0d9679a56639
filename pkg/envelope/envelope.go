// Package envelope decodes the community backend's standard response shape
// ({code, message, data, details}) into a typed Outcome, and builds the same
// shape for servers and test fakes.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

const (
	// RequestIDHeader carries the backend's correlation id.
	RequestIDHeader = "X-Request-ID"
	// LocalRequestID stands in when the response did not carry a request id.
	LocalRequestID = "LOCAL"

	DefaultFailureMessage = "API 요청에 실패했습니다."
	UploadFailureMessage  = "파일 업로드에 실패했습니다."
)

// Envelope is the wire shape of every non-204 backend response.
type Envelope struct {
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Details Details         `json:"details,omitempty"`
}

// Details maps a field name to its validation messages.
type Details map[string][]string

// UnmarshalJSON accepts either a single message or a list of messages per
// field. Non-string list elements are dropped; values of any other shape are
// skipped.
func (d *Details) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*d = nil
		return nil
	}
	out := make(Details, len(raw))
	for field, value := range raw {
		var one string
		if err := json.Unmarshal(value, &one); err == nil {
			out[field] = []string{one}
			continue
		}
		if many := stringElems(value); len(many) > 0 {
			out[field] = many
		}
	}
	if len(out) == 0 {
		*d = nil
		return nil
	}
	*d = out
	return nil
}

func stringElems(value json.RawMessage) []string {
	var elems []json.RawMessage
	if err := json.Unmarshal(value, &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '"' {
			continue
		}
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// First returns the first message recorded for field.
func (d Details) First(field string) (string, bool) {
	msgs := d[field]
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0], true
}

// Fields lists field names in sorted order.
func (d Details) Fields() []string {
	return slices.Sorted(maps.Keys(d))
}

// Clone deep-copies the details.
func (d Details) Clone() Details {
	if d == nil {
		return nil
	}
	out := make(Details, len(d))
	for k, v := range d {
		out[k] = slices.Clone(v)
	}
	return out
}

// Outcome is the decoded result of one request: either Success or *Failure.
type Outcome interface {
	outcome()
}

// Success carries the payload of a 2xx response. Code is empty for 204.
type Success struct {
	Code string
	Data json.RawMessage
}

func (Success) outcome() {}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (s Success) Decode(v any) error {
	if len(s.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(s.Data, v); err != nil {
		return fmt.Errorf("envelope: decode data: %w", err)
	}
	return nil
}

// As decodes a success payload into a fresh T.
func As[T any](s Success) (T, error) {
	var out T
	err := s.Decode(&out)
	return out, err
}

// Failure describes a request that did not succeed. A Failure with Status 0
// never reached the backend (network error, cancelled context, blocked
// request) and carries no Code.
type Failure struct {
	Status    int
	Code      string
	Message   string
	Details   Details
	RequestID string
	Err       error
}

func (*Failure) outcome() {}

// TransportFailure wraps an error raised before any response was received.
func TransportFailure(err error) *Failure {
	return &Failure{RequestID: LocalRequestID, Err: err}
}

// Transport reports whether the failure is network-class rather than a
// backend verdict.
func (f *Failure) Transport() bool {
	return f != nil && f.Status == 0
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	if f.Transport() {
		if f.Err != nil {
			return fmt.Sprintf("envelope: transport failure: %v", f.Err)
		}
		return "envelope: transport failure"
	}
	if f.Code == "" {
		return fmt.Sprintf("envelope: http %d: %s", f.Status, f.Message)
	}
	return fmt.Sprintf("envelope: http %d %s: %s", f.Status, f.Code, f.Message)
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Err returns the failure carried by o, or nil for a success.
func Err(o Outcome) error {
	if f, ok := o.(*Failure); ok && f != nil {
		return f
	}
	return nil
}

package envelope

import (
	"encoding/json"
	"net/http"
)

// OK builds a success envelope. A payload that cannot be marshalled is dropped.
func OK(code string, data any) Envelope {
	env := Envelope{Code: code}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			env.Data = raw
		}
	}
	return env
}

// Fail builds a failure envelope.
func Fail(code, message string, details Details) Envelope {
	return Envelope{Code: code, Message: message, Details: details.Clone()}
}

// Write sends env with the given status, echoing the request's X-Request-ID.
// A 204 is written without a body.
func Write(w http.ResponseWriter, r *http.Request, status int, env Envelope) error {
	if r != nil {
		if id := r.Header.Get(RequestIDHeader); id != "" {
			w.Header().Set(RequestIDHeader, id)
		}
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r != nil && r.Method == http.MethodHead {
		return nil
	}
	return json.NewEncoder(w).Encode(env)
}

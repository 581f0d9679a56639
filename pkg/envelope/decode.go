package envelope

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// Decoder turns raw HTTP responses into Outcomes. The zero value uses
// DefaultFailureMessage.
type Decoder struct {
	// FallbackMessage is used for failures whose body carries no message.
	FallbackMessage string
}

// Decode applies the default decoder.
func Decode(status int, header http.Header, body []byte) Outcome {
	return Decoder{}.Decode(status, header, body)
}

// DecodeResponse reads resp.Body and decodes it with the default decoder. The
// caller still owns closing the body.
func DecodeResponse(resp *http.Response) Outcome {
	return Decoder{}.DecodeResponse(resp)
}

// Decode never fails: an unparsable body is treated as an empty envelope.
func (d Decoder) Decode(status int, header http.Header, body []byte) Outcome {
	if status == http.StatusNoContent {
		return Success{}
	}
	env := parse(body)
	if status < 200 || status > 299 {
		msg := env.Message
		if msg == "" {
			msg = d.fallback()
		}
		reqID := header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = LocalRequestID
		}
		return &Failure{
			Status:    status,
			Code:      env.Code,
			Message:   msg,
			Details:   env.Details,
			RequestID: reqID,
		}
	}
	return Success{Code: env.Code, Data: env.Data}
}

func (d Decoder) DecodeResponse(resp *http.Response) Outcome {
	if resp.StatusCode == http.StatusNoContent {
		return Success{}
	}
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(resp.Body)
	}
	return d.Decode(resp.StatusCode, resp.Header, body)
}

func (d Decoder) fallback() string {
	if d.FallbackMessage != "" {
		return d.FallbackMessage
	}
	return DefaultFailureMessage
}

// parse reads each envelope field independently so a malformed field does
// not discard the others. Results never alias body.
func parse(body []byte) Envelope {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Envelope{}
	}
	var env Envelope
	if raw, ok := fields["code"]; ok {
		_ = json.Unmarshal(raw, &env.Code)
	}
	if raw, ok := fields["message"]; ok {
		_ = json.Unmarshal(raw, &env.Message)
	}
	if raw, ok := fields["data"]; ok && !isNull(raw) {
		env.Data = bytes.Clone(raw)
	}
	if raw, ok := fields["details"]; ok && !isNull(raw) {
		_ = json.Unmarshal(raw, &env.Details)
	}
	return env
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

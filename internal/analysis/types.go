package analysis

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

const redacted = "[redacted]"

// Credential is the user's API key. It only ever leaves the process inside
// the request body; every formatting path prints a placeholder instead.
type Credential string

func (c Credential) String() string   { return redacted }
func (c Credential) GoString() string { return redacted }

func (c Credential) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

// Reveal returns the raw secret. Call it only to build the wire payload.
func (c Credential) Reveal() string { return string(c) }

func (c Credential) Empty() bool { return c == "" }

// Request is the body POSTed to the analysis service.
type Request struct {
	APIKey Credential `json:"apiKey"`
	Stock  string     `json:"stock"`
}

// MarshalLogObject keeps the credential out of zap output.
func (r Request) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("stock", r.Stock)
	enc.AddBool("apiKeySet", !r.APIKey.Empty())
	return nil
}

// Response covers both reply shapes of the analysis service. Analysis is a
// pointer so a missing field can be told apart from an empty analysis.
type Response struct {
	Analysis *string `json:"analysis,omitempty"`
	Error    string  `json:"error,omitempty"`
}

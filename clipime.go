// Package clipime defines the shared types for clipime: the conversion
// candidate record and the request/response types of the host socket API.
// Socket messages are JSON-encoded and sent over a Unix domain socket, one per line.
package clipime

// Candidate is one converted rendering of a delta of input text.
type Candidate struct {
	// Text is the converted text.
	Text string `json:"text" cbor:"1,keyasint"`
	// Rank is the backend's ordering hint; lower is better.
	Rank int `json:"rank,omitempty" cbor:"2,keyasint,omitempty"`
	// Reading is the kana reading the backend derived the candidate from.
	Reading string `json:"reading,omitempty" cbor:"3,keyasint,omitempty"`
}

// Texts returns the text of each candidate in order.
func Texts(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Text
	}
	return out
}

// ConvertRequest is sent from a text source to the host.
type ConvertRequest struct {
	// RequestID is a per-source incrementing identifier.
	// The host echoes it back in the response for ordering.
	RequestID int `json:"request_id"`
	// SessionID identifies the logical text source. Each source gets its
	// own conversion history and reconversion state.
	SessionID string `json:"session_id"`
	// Text is the raw copied text.
	Text string `json:"text"`
}

// ConvertResponse is sent from the host back to the text source.
type ConvertResponse struct {
	// RequestID is echoed from the request.
	RequestID int `json:"request_id"`
	// Original is the text as received.
	Original string `json:"original"`
	// Converted is the text delivered to the sink. On failure it equals Original.
	Converted string `json:"converted"`
	// Error is set when the host skipped or failed the conversion.
	Error *Error `json:"error,omitempty"`
}

// Error describes a host-side error returned to the text source.
type Error struct {
	// Code is a machine-readable error identifier (e.g. "skipped", "conversion_failed").
	Code string `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}

// ConfigRequest is sent from a client for configuration operations.
type ConfigRequest struct {
	// Action is the config operation: "get", "reload", "defaults", or "validate".
	Action string `json:"action"`
}

// ConfigResponse is sent from the host in response to a ConfigRequest.
type ConfigResponse struct {
	// Config is the current configuration (for "get", "reload", and "defaults" actions).
	Config *Config `json:"config,omitempty"`
	// Warnings contains configuration warnings (for "validate" action).
	Warnings []string `json:"warnings,omitempty"`
	// Error is set when the operation fails.
	Error *Error `json:"error,omitempty"`
}

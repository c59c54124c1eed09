package dispatch

import "context"

// Request is a fully-rendered outbound message, assembled by the caller and
// passed by value. The chain and transports never mutate it.
type Request struct {
	Identity  Identity
	To        []string
	Cc        []string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Recipients returns the combined primary and copy recipient list.
func (r Request) Recipients() []string {
	out := make([]string, 0, len(r.To)+len(r.Cc))
	out = append(out, r.To...)
	out = append(out, r.Cc...)
	return out
}

// Result is the outcome of a single transport attempt. Detail is a
// human-readable summary (provider name, status code, or error text) meant
// for logs and operators, never for parsing.
type Result struct {
	Succeeded bool
	Detail    string
}

// Transport is one concrete delivery mechanism.
type Transport interface {
	// Name returns the unique identifier for this transport.
	Name() string

	// Kind returns the transport family: "smtp" or "http".
	Kind() string

	// Configured reports whether the transport has the credentials it
	// needs. Unconfigured transports are skipped by the chain without
	// counting as failed attempts.
	Configured() bool

	// Send attempts delivery. Failures of any kind are reported through
	// the Result; Send never panics and never returns an error.
	Send(ctx context.Context, req Request) Result
}

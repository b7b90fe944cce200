package upstream

// Kind identifies the category of a completed upstream attempt.
type Kind int

const (
	KindSuccess Kind = iota
	KindAuthFailure
	KindRateLimited
	KindTimeout
	KindConnectionError
	KindMalformedResponse
	KindNoWorkingEndpoint
	KindUpstreamError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindAuthFailure:
		return "auth_failure"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindConnectionError:
		return "connection_error"
	case KindMalformedResponse:
		return "malformed_response"
	case KindNoWorkingEndpoint:
		return "no_working_endpoint"
	case KindUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one completed resolution.
// Exactly one kind is set per attempt.
type Outcome struct {
	Kind Kind

	// Status is the upstream HTTP status, when one was received.
	Status int

	// Payload carries the upstream body verbatim for KindSuccess.
	Payload []byte

	// ContentChars is the character length of the first choice's message
	// content. Derived for observability only; never alters Payload.
	ContentChars int

	// Message is the truncated upstream body for KindUpstreamError.
	Message string

	// Err is the transport error behind KindTimeout and KindConnectionError.
	Err error
}

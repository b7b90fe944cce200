package upstream

import "strings"

// Candidate is one base-URL/path pair attempted during fallback resolution.
// Candidates are immutable; the slice order is the priority order.
type Candidate struct {
	BaseURL string
	Path    string
}

// FullURL joins the base URL and path into the request target.
func (c Candidate) FullURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.Path
}

// CompletionPath returns the chat-completion path matching a base URL.
// Base URLs that already carry the official /api/v1 prefix use the short
// path; legacy hosts use the OpenAI-style path.
func CompletionPath(baseURL string) string {
	if strings.Contains(baseURL, "/api/v1") {
		return "/chat/completions"
	}
	return "/v1/chat/completions"
}

// DefaultCandidates returns the built-in fallback order for the NanoGPT API,
// official format first, then HTTP and legacy variants.
func DefaultCandidates() []Candidate {
	baseURLs := []string{
		"https://nano-gpt.com/api/v1",
		"http://nano-gpt.com/api/v1",
		"https://api.nanogpt.com",
		"http://api.nanogpt.com",
		"https://nanogpt.com/api/v1",
		"http://nanogpt.com/api/v1",
	}

	candidates := make([]Candidate, 0, len(baseURLs))
	for _, base := range baseURLs {
		candidates = append(candidates, Candidate{
			BaseURL: base,
			Path:    CompletionPath(base),
		})
	}

	return candidates
}

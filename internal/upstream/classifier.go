package upstream

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"
)

// ErrorBodyLimit bounds the upstream error body carried back to callers.
const ErrorBodyLimit = 200

type completionBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify maps a raw upstream response to exactly one Outcome. It is total
// over all HTTP statuses: anything not matched by an earlier rule becomes
// KindUpstreamError carrying the status and a truncated body.
func Classify(status int, body []byte) Outcome {
	switch status {
	case http.StatusOK:
		var parsed completionBody
		if err := json.Unmarshal(body, &parsed); err != nil {
			return Outcome{Kind: KindMalformedResponse, Status: status}
		}

		if len(parsed.Choices) == 0 {
			return Outcome{Kind: KindMalformedResponse, Status: status}
		}

		return Outcome{
			Kind:         KindSuccess,
			Status:       status,
			Payload:      body,
			ContentChars: len(parsed.Choices[0].Message.Content),
		}

	case http.StatusUnauthorized:
		return Outcome{Kind: KindAuthFailure, Status: status}

	case http.StatusTooManyRequests:
		return Outcome{Kind: KindRateLimited, Status: status}

	default:
		return Outcome{
			Kind:    KindUpstreamError,
			Status:  status,
			Message: truncate(string(body), ErrorBodyLimit),
		}
	}
}

// truncate bounds s to limit characters, never splitting a rune.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

package upstream

import (
	"crypto/tls"
	"net/http"
)

// NewHTTPClient builds the outgoing client for upstream calls. Deadlines come
// from per-attempt contexts, so the client itself carries no timeout.
// Certificate verification stays on unless insecureSkipVerify is explicitly
// enabled in configuration.
func NewHTTPClient(insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{Transport: transport}
}

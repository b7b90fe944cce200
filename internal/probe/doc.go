// Package probe implements the diagnostic connectivity check: a minimal
// one-token completion sent to the primary endpoint with a short timeout.
package probe

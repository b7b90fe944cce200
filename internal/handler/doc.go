// Package handler implements the HTTP endpoints of the proxy. It coordinates
// request validation, endpoint resolution, outcome-to-response mapping, and
// the health and status probes.
package handler

// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, upstream API credentials, fallback endpoints, and
// request limits.
package config

// Package config handles configuration loading, parsing, and validation
// from environment variables, an optional .env file and an optional YAML
// file. It provides type-safe access to the settings needed by the
// scheduler, the stores, the mailer and the control API.
package config

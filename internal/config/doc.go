// Package config defines the application configuration structures and
// loading logic. Configuration is sourced from environment variables with
// the CHOREBOARD_ prefix, with an optional YAML file for local development,
// and validated before the application starts.
package config

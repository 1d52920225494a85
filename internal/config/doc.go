// Package config defines the mailai runtime configuration.
//
// A Config is assembled once at process start from, in increasing order of
// precedence: built-in defaults, an optional YAML file, .env.local/.env files,
// the process environment, and finally command-line flags (applied by cmd).
// Components receive the parts they need; they never read the environment.
package config

// Package cmd implements the command-line interface for mailai.
//
// This package provides the following commands:
//   - serve: Start the HTTP backend
//   - version: Display version information
//   - auth-url: Print the Google OAuth consent URL
//
// Configuration is read from defaults, an optional YAML file (--config),
// .env.local/.env files and the environment; serve flags override all of them.
package cmd

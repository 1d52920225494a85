// Package server exposes the mail proxy, OAuth and assistant endpoints over
// HTTP.
//
// # Routes
//
// Unauthenticated routes cover the root banner, the Google OAuth
// login/callback/refresh flow, the assistant endpoint and the health probes.
// Every /api/mail route requires an "Authorization: Bearer <token>" header
// carrying a Google access token, which is forwarded to Gmail as is. The
// server holds no sessions and stores no tokens.
//
// # Middleware
//
// Requests pass through request ID assignment, access logging, metrics and
// CORS before reaching a handler. Handler errors are rendered as
// {"error": "..."} with the status chosen by statusFor.
//
// MetricsServer serves Prometheus metrics on a separate listener so they are
// not exposed alongside application traffic.
package server

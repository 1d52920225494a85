// Package assistant turns a chat message plus mailbox context into a
// structured action for the web client.
//
// BuildMessages renders the system prompt and trims history, a Provider
// produces raw model output, and Normalize converts that output into a Reply
// whose Action is one of a closed set of types (or nil).
package assistant

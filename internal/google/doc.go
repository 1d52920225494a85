// Package google implements the stateless Google OAuth2 flow used by the
// frontend: building the consent URL, exchanging an authorization code or a
// refresh token for tokens, and looking up the signed-in user's profile.
//
// Nothing is persisted. Tokens are handed back to the caller, which presents
// the access token as a bearer token on later requests.
package google

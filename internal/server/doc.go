// Package server hosts the temporary localhost HTTP server used by the
// Spotify authorization flow.
//
// The CallbackServer listens on the address embedded in the OAuth2 redirect
// URL, processes exactly one callback (state-checked, then exchanged for a
// token), and shuts down. The result is delivered over a channel so the CLI
// can wait with a timeout.
package server

// Package session orchestrates the OAuth login lifecycle into the four
// operations the rest of the CLI consumes: Login, Logout, Status, and
// ValidAccessToken.
//
// A login moves through LoggedOut → Authorizing → AwaitingCallback →
// Exchanging → LoggedIn; any failure aborts back to LoggedOut with the cause
// surfaced, and the loopback listener is always torn down. Refresh failures
// inside ValidAccessToken degrade to "not authenticated" instead of
// propagating, since the recovery is a fresh login.
package session

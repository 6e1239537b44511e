// Package tokenstore provides persistent storage for the CLI's OAuth
// credentials.
//
// Two backends are supported:
//   - File: JSON record under a user-scoped hidden directory, atomic writes,
//     directory 0700 and file 0600
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, Linux Secret Service) holding the same JSON record
//
// A missing or unparseable record is reported as absence (nil, nil), not as
// an error: the expected recovery is a fresh login, not a crash.
package tokenstore

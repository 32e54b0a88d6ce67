// Package cli provides the interactive stegkeeper command-line client.
//
// It wires configuration, the local database, the audit sink, the result
// store and the service client into an App, and runs a REPL over one
// operation session. The prompt shows the identity, the service
// connectivity and the current tab and direction.
//
// Key features:
//   - tab / mode to switch media kind and direction (each starts a new session)
//   - file, key, keytext, keymode and secret to assemble the artifacts
//   - capacity, submit, reset and show to drive the session
//   - keys to generate a key pair; history and verify for the audit trail
//   - login / logout with a bearer token
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// The same App methods back the one-shot commands of cmd/cli.
package cli

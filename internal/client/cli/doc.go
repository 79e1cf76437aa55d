// Package cli provides the interactive tokenrefresh command-line client.
//
// It wires configuration, the token store, the API client and a REPL.
// A background watcher pings the server and switches the prompt between
// online and offline. When a refresh fails for good the session is dropped
// and the user is asked to import a new token pair.
package cli

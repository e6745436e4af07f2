// Package client bootstraps the local state of the chest client.
//
// The client keeps a small SQLite database (pure-Go modernc.org/sqlite
// driver) next to the user configuration. It holds only unencrypted
// bookkeeping: the last opened chest and the cached OAuth token. Chest
// contents never touch it.
//
// InitDatabase opens the database and applies the embedded goose
// migrations; NewRepositories wires the repositories on top of it.
package client

// Package cli implements the interactive story client. It wires the storage,
// network and sync layers together and exposes them through a small REPL.
package cli

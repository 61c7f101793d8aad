// Package logging wires log/slog with console and JSON handlers plus the
// attribute helpers the rest of the codebase uses.
package logging

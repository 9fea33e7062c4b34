// Package logging configures slog output for the daemon and CLI.
//
// Two handler formats are supported: a human-oriented console handler that
// collapses the component attribute into the message prefix, and a JSON
// handler for machine consumption. Attr helpers and standardized field keys
// keep log records uniform across packages.
package logging

// Package services defines the shared error taxonomy and context plumbing
// used across workflow stages.
//
// Errors are tagged with sentinel markers via Wrap so the scheduler can decide
// whether a per-file failure is retryable without inspecting error strings.
// Context helpers carry job, stage, and correlation identifiers for logging.
package services

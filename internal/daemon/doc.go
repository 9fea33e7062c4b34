// Package daemon coordinates the long-running focal process.
//
// It wires configuration, queue storage, the folder watcher, the workflow
// manager, and the cleanup sweeper into a single lifecycle with flock-based
// locking to prevent multiple instances. Startup recovers jobs stranded in
// processing by a previous crash; shutdown halts admission before draining
// workers so in-flight files finish writing.
//
// Keep orchestration logic here: individual processing steps should live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon

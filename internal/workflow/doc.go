// Package workflow coordinates queue consumption. A fixed pool of workers
// claims pending and retrying jobs one at a time, runs the processing stage
// with a heartbeat goroutine alongside, and persists the terminal outcome.
// Jobs whose worker died are detected by heartbeat age and rerun.
package workflow

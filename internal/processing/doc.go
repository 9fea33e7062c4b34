// Package processing is the workflow stage that turns a queued folder into
// processed output: decode each file, run the preset adjustments, and encode
// the result into the folder's output subdirectory. Files retry independently
// on transient errors; unsupported formats are skipped and recorded.
package processing

// Package cleanup implements the optional file-age sweeper. It deletes files
// older than the configured age from the cleanup folders on a fixed interval,
// honoring an extension allow-list, and prunes directories left empty.
package cleanup

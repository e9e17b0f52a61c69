// Package logs reads back the JSON log file written by posekit.
//
// Tail returns the last N lines of the file or everything after a byte
// offset, optionally waiting for new lines to arrive. ParseRecord and Format
// turn the raw JSON lines into the one-line form printed by `posekit logs`.
package logs

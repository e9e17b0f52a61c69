// Package pose defines pose snapshots and their on-disk `.pose` encoding.
//
// A Snapshot maps namespace-stripped control names to either a full local
// transform matrix or a flat attribute bag. Snapshots are immutable once
// built; capture and load both produce fresh values. The encoding is
// key-sorted JSON with a version envelope so files diff cleanly and future
// format changes can be detected instead of silently misread.
//
// Always go through Marshal/WriteFile: both validate the complete structure
// before a single byte reaches disk.
package pose

// Package preflight provides readiness checks for the file system paths and
// stores posekit depends on.
//
// `posekit doctor` runs RunAll and prints one line per check. Individual
// checks are exported so other commands can verify a single path before
// doing work that would otherwise fail halfway.
package preflight

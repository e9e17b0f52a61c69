// Package textutil provides pose-name handling: file name sanitization and
// fuzzy matching used to suggest near misses when a pose cannot be found.
//
// Fingerprints are bigram frequency vectors over the lowercased word parts of
// a name, so "HandFist01" and "hand_fist_02" land close to each other.
package textutil

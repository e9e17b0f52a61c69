// Package library manages the on-disk pose catalog.
//
// The library root holds group folders, each holding character folders, and
// every character folder holds `.pose` files with optional thumbnail images
// that share the pose's base name. A SQLite index next to the catalog
// remembers what the file system cannot: favourites, the time a pose was
// first seen and its control count. Watcher keeps the index current while
// other tools write into the library.
package library

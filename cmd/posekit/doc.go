// Package main hosts the posekit CLI entrypoint and command graph.
//
// Commands load the configuration once, open the scene file and the pose
// library, and hand the work to the internal packages: capture and apply
// live in internal/capture, blending in internal/blend, catalog upkeep in
// internal/library. The scene is saved back after every command that
// changes it.
package main

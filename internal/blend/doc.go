// Package blend interpolates a rig between two pose snapshots.
//
// Engine performs one blend pass: for every control captured in the source
// snapshot that also exists in the destination and on the rig, it writes the
// decomposed-and-interpolated local transform. The whole pass runs inside a
// single suspend/resume redraw bracket.
//
// Session tracks one interactive blend (Idle, SourceCaptured, Armed,
// Blending) and Previewer owns the current session, replacing it whenever a
// new destination pose is selected. Nothing here is persisted; there is no
// commit step because every factor change is already written to the rig.
package blend

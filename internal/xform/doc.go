// Package xform decomposes, interpolates, and recomposes local transform
// matrices.
//
// Matrices use the flat layout shared with `.pose` files and mgl64: elements
// 12..14 hold the translation and the upper 3x3 block holds rotation times
// scale. Blending happens on the decomposed components: translation and
// scale interpolate linearly, rotation follows the shortest great-circle arc.
package xform

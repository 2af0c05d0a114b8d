// Package preview draws placement results as standalone SVG maps.
//
// The picture covers the result extent with north up. Each placed label is
// drawn as text centered in its rectangle and rotated by the label angle,
// colored per layer. [WithBoxes] outlines the rectangles, [WithUnplaced]
// marks features that could not be labelled and [WithFeatures] draws the
// source geometries underneath.
package preview

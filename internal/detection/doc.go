// Package detection suggests link areas by finding boxed shapes in an image.
//
// Team banners and profile headers usually frame each player in a box or a
// filled card. SuggestRegions finds those boxes and hands them back in the
// percentage frame, so an editor can start from them instead of dragging
// every rectangle by hand.
//
// # Algorithm Overview
//
//  1. Edge Detection: greyscale, Laplacian edge filter and threshold (bild)
//  2. Contour Finding: flood-fill over 8-connected edge pixels
//  3. Filtering: area, full-image border, and outline coverage checks
//  4. Result Formatting: percentage regions in reading order
//
// # Coordinate System
//
// Pixel bounds use the standard image convention with the origin at the
// top-left corner. Regions use percentages of the image width and height.
//
// # Limitations
//
//   - Only axis-aligned rectangles are suggested
//   - Boxes touching the image edge may be missed, since the edge filter does
//     not see past the border
//   - Low-contrast frames need a lower tolerance
package detection

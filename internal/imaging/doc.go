// Package imaging loads the local copy of an imagemap's image and renders
// the views the editor needs: the pixel size used to convert between frames,
// a single region cropped out, and a preview with every region outlined.
//
// Pixel rectangles are half-open: (X1,Y1) is the top-left pixel and (X2,Y2)
// lies one past the bottom-right. Percentage regions are mapped with
// PixelBounds, which rounds outward so a crop never loses an edge pixel.
//
// ImageCache is safe for concurrent use. Evict a path when the file behind
// it may have changed.
package imaging

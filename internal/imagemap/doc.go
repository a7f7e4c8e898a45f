// Package imagemap implements the osu! [imagemap] BBCode format: the region
// model, the pixel/percentage coordinate normalizer, and the markup codec.
//
// # Coordinate Frames
//
// Regions are stored in the percentage frame: X and Width are percentages of
// the image width, Y and Height percentages of the image height. The pixel
// frame is tied to a rendered image size and is only used while a region is
// being dragged or drawn. Convert between the two with ToPercentage and
// ToPixels, or with Region.SetPixels and Region.Pixels for whole rectangles.
//
// # Markup Format
//
//	[imagemap]
//	<image-url>
//	<x> <y> <width> <height> <link> <name>
//	...
//	[/imagemap]
//
// Lines are separated by "\n". Numbers are rounded to four decimal places on
// output. The name is the remainder of the line and may contain spaces; the
// link may not.
//
// # Validate, Then Decode
//
// Decode assumes its input already passed Validate (or IsValid) and does not
// re-check it. Use Parse to do both in one call; it never returns a partial
// Document.
//
// Everything in this package is pure and synchronous. A Document is a plain
// value with a single owner; it is not safe for concurrent mutation.
package imagemap

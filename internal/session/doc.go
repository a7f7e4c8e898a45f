// Package session holds the one imagemap document being edited and keeps it
// in step with its persisted copy.
//
// Every mutation goes through Session, which validates the input, applies it
// to the document and saves the result to a store.Store under fixed keys.
// Restore reads those keys back on startup; saved markup that no longer
// validates is reported through the notifier and discarded.
//
// Operations that take pixel coordinates need a local copy of the image so
// the pixel size is known. Without one they fail with ErrNoImage; the
// percentage operations work either way.
package session

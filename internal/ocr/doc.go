// Package ocr reads player names out of imagemap regions using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). Given an
// image and its regions, SuggestNames crops each region and proposes the text
// found there as the region's name, which becomes the hover title in the
// rendered imagemap.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//   - Windows: Download from https://github.com/UB-Mannheim/tesseract/wiki
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// The language is configured with ocr_language (default "eng").
//
// # Preprocessing
//
// Banner text is often small and drawn over artwork. Each crop is converted
// to greyscale and upscaled to at least 48px tall before recognition, and
// Tesseract runs in single-line mode.
//
// # Error Handling
//
// Functions return errors for unsupported language codes and Tesseract
// initialization failures. If bounding box extraction fails, ReadText still
// returns the text with an empty Words slice.
package ocr

// Package ocr defines the Provider interface for optical character
// recognition backends.
//
// Memoroo uses OCR to turn image attachments (photos of notes, receipts,
// whiteboards) into indexable text. The extracted text is embedded alongside
// regular memory units, so providers should return plain text with the
// original reading order preserved as far as possible.
//
// Implementors must be safe for concurrent use. Failures are reported as
// apperr-tagged errors: unsupported or empty input carries KindInvalid and an
// unreachable backend carries KindModelUnavailable.
package ocr

import "context"

// Provider is the abstraction over any OCR backend.
type Provider interface {
	// Recognize extracts all legible text from the given image. image holds
	// the raw file bytes and mimeType identifies the format (e.g.
	// "image/png", "image/jpeg"). An image containing no text yields an
	// empty string and a nil error.
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

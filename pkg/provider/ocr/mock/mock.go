// Package mock provides a test double for the ocr.Provider interface.
//
// Use Provider to return pre-canned text without a live vision model and to
// verify which images the extraction pipeline submits.
package mock

import (
	"context"
	"sync"

	"github.com/memoroo/memoroo/pkg/provider/ocr"
)

// RecognizeCall records a single invocation of Recognize.
type RecognizeCall struct {
	// Ctx is the context passed to Recognize.
	Ctx context.Context
	// Image is a copy of the image bytes that were passed to Recognize.
	Image []byte
	// MimeType is the MIME type passed to Recognize.
	MimeType string
}

// Provider is a mock implementation of ocr.Provider.
type Provider struct {
	mu sync.Mutex

	// RecognizeResult is returned by Recognize when RecognizeFunc is nil.
	RecognizeResult string

	// RecognizeErr, if non-nil, is returned as the error from Recognize.
	RecognizeErr error

	// RecognizeFunc, if non-nil, overrides RecognizeResult/RecognizeErr and
	// computes the result per call.
	RecognizeFunc func(ctx context.Context, image []byte, mimeType string) (string, error)

	// RecognizeCalls records every call to Recognize in order.
	RecognizeCalls []RecognizeCall
}

// Recognize records the call and returns the configured result.
func (p *Provider) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	p.mu.Lock()
	cp := make([]byte, len(image))
	copy(cp, image)
	p.RecognizeCalls = append(p.RecognizeCalls, RecognizeCall{Ctx: ctx, Image: cp, MimeType: mimeType})
	fn := p.RecognizeFunc
	result, err := p.RecognizeResult, p.RecognizeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, image, mimeType)
	}
	if err != nil {
		return "", err
	}
	return result, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RecognizeCalls = nil
}

// Ensure Provider implements ocr.Provider at compile time.
var _ ocr.Provider = (*Provider)(nil)

// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to return pre-canned transcripts without a live speech model
// and to verify which recordings the extraction pipeline submits.
//
// Example:
//
//	p := &mock.Provider{
//	    TranscribeResult: &stt.Transcript{Text: "water the plants", Confidence: 0.9},
//	}
//	tr, _ := p.Transcribe(ctx, audio, "audio/webm")
package mock

import (
	"context"
	"sync"

	"github.com/memoroo/memoroo/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is a copy of the recording bytes that were passed to Transcribe.
	Audio []byte
	// MimeType is the MIME type passed to Transcribe.
	MimeType string
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// TranscribeResult is returned by Transcribe when TranscribeFunc is nil.
	// If both are nil and TranscribeErr is nil, an empty Transcript is returned.
	TranscribeResult *stt.Transcript

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeFunc, if non-nil, overrides TranscribeResult/TranscribeErr and
	// computes the result per call.
	TranscribeFunc func(ctx context.Context, audio []byte, mimeType string) (*stt.Transcript, error)

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns the configured result.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (*stt.Transcript, error) {
	p.mu.Lock()
	cp := make([]byte, len(audio))
	copy(cp, audio)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Audio: cp, MimeType: mimeType})
	fn := p.TranscribeFunc
	result, err := p.TranscribeResult, p.TranscribeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, audio, mimeType)
	}
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}
	return &stt.Transcript{}, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

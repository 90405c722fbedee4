// Package stt defines the Provider interface for speech-to-text backends.
//
// Memoroo receives speech as complete voice-note attachments rather than live
// audio, so the interface is file oriented: a provider takes the full
// recording plus its MIME type and returns a single Transcript. The extracted
// text is what gets embedded and indexed, so providers should favour accuracy
// over latency.
//
// Implementors must be safe for concurrent use. Failures are reported as
// apperr-tagged errors: unsupported or empty input carries KindInvalid and an
// unreachable backend carries KindModelUnavailable.
package stt

import (
	"context"
	"time"
)

// WordDetail describes a single recognised word with its position in the
// recording.
type WordDetail struct {
	// Word is the recognised word, without surrounding whitespace.
	Word string

	// Start is the offset from the beginning of the recording at which the
	// word begins.
	Start time.Duration

	// End is the offset at which the word ends. Always >= Start.
	End time.Duration

	// Confidence is the model's confidence in this word, in [0.0, 1.0].
	Confidence float64
}

// Transcript is the result of transcribing one complete recording.
type Transcript struct {
	// Text is the full transcript with provider punctuation applied. Empty
	// when the recording contains no recognisable speech.
	Text string

	// Confidence is the overall confidence for the transcript, in [0.0, 1.0].
	// For providers that report per-segment confidence this is the average
	// weighted by segment length.
	Confidence float64

	// Words holds per-word timing and confidence details. May be empty for
	// providers that do not report word-level timestamps.
	Words []WordDetail

	// Duration is the length of the recognised speech. Derived from the last
	// word's End when the provider does not report it directly.
	Duration time.Duration
}

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe converts a complete voice recording into text. audio holds
	// the raw file bytes and mimeType identifies the container format (e.g.
	// "audio/wav", "audio/webm", "audio/mpeg").
	//
	// Providers that cannot decode the given mimeType must fail with
	// KindInvalid rather than guessing.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error)
}

package resilience

import (
	"context"

	"github.com/memoroo/memoroo/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// speech-to-text backends, e.g. a cloud service as primary with a local
// whisper.cpp model as the offline fallback.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs the audio through the first healthy provider. A provider that
// rejects the input (unsupported format, empty audio) still counts as a failure
// for its breaker, but the next provider may well accept the same bytes — local
// and cloud backends support different container formats.
func (f *STTFallback) Transcribe(ctx context.Context, audio []byte, mimeType string) (*stt.Transcript, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (*stt.Transcript, error) {
		return p.Transcribe(ctx, audio, mimeType)
	})
}

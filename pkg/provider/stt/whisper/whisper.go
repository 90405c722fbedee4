// Package whisper provides a local STT provider backed by the whisper.cpp
// CGO bindings, so voice notes never leave the machine. The whisper.cpp
// static library (libwhisper.a) and headers (whisper.h) must be available at
// link time via LIBRARY_PATH and C_INCLUDE_PATH environment variables.
//
// The provider accepts 16-bit PCM WAV recordings only; compressed containers
// must be transcoded before upload or routed to a hosted provider instead.
package whisper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/provider/stt"
)

// whisperSampleRate is the sample rate whisper.cpp expects. Input at any
// other rate is resampled before inference.
const whisperSampleRate = 16000

const defaultLanguage = "en"

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using whisper.cpp Go bindings (CGO). The
// model is loaded once at construction and shared across all transcriptions;
// each Transcribe call runs on its own whisper context, so concurrent calls
// do not interfere.
type Provider struct {
	model    whisperlib.Model
	language string
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New creates a Provider that loads the whisper.cpp model from the given file
// path. The caller must call Close when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, apperr.New(apperr.KindInvalid, "whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindModelUnavailable, err, "whisper: load model %q", modelPath)
	}

	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements stt.Provider. Only 16-bit PCM WAV input is accepted.
//
// whisper.cpp does not report recognition confidence or word-level timing, so
// the returned Transcript carries segment text and duration only; Confidence
// stays zero and Words stays empty.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (*stt.Transcript, error) {
	if len(audio) == 0 {
		return nil, apperr.New(apperr.KindInvalid, "whisper: audio must not be empty")
	}
	if !isWAVMimeType(mimeType) {
		return nil, apperr.New(apperr.KindInvalid, "whisper: unsupported audio type %q (only PCM WAV)", mimeType)
	}

	pcm, sampleRate, channels, err := decodeWAV(audio)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, err, "whisper: decode WAV")
	}

	samples := pcmToFloat32Mono(pcm, channels)
	samples = resampleLinear(samples, sampleRate, whisperSampleRate)

	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationTimeout, err, "whisper: context done before inference")
	}

	// Each context is NOT thread-safe, but the model can be shared across
	// goroutines, so a fresh context per call keeps Transcribe concurrent.
	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindModelUnavailable, err, "whisper: create context")
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, apperr.Wrap(apperr.KindModelUnavailable, err, "whisper: process audio")
	}

	tr := &stt.Transcript{}
	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindModelUnavailable, err, "whisper: read segment")
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
		if segment.End > tr.Duration {
			tr.Duration = segment.End
		}
	}
	tr.Text = strings.Join(parts, " ")
	return tr, nil
}

// isWAVMimeType reports whether the MIME type names a WAV container.
func isWAVMimeType(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.ToLower(strings.TrimSpace(base)) {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return true
	}
	return false
}

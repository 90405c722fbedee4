// Package extract turns uploaded attachments into indexable text.
//
// Images and PDFs go through OCR; voice notes go through transcription
// followed by a phonetic correction pass that aligns mangled proper nouns
// with the owner's existing memory titles. The extracted text is annotated
// with heuristic metadata (derived title, hashtags, source app) so the units
// service can store it as a searchable attachment unit.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
	"github.com/memoroo/memoroo/pkg/provider/ocr"
	"github.com/memoroo/memoroo/pkg/provider/stt"
)

// maxCorrectionTitles caps how many unit titles feed the transcript
// corrector; matching is quadratic in titles × tokens.
const maxCorrectionTitles = 200

// Extraction is the result of processing one attachment.
type Extraction struct {
	// Text is the extracted (and, for audio, corrected) content.
	Text string

	// Metadata holds the derived title, tags, and source app.
	Metadata Metadata

	// Corrections lists the transcript substitutions applied. Empty for
	// image and PDF attachments.
	Corrections []Correction
}

// Service dispatches attachments to the matching extractor.
type Service struct {
	ocr       ocr.Provider
	stt       stt.Provider
	units     memory.UnitStore
	corrector *Corrector
	metrics   *observe.Metrics
}

// NewService creates an extraction [Service]. Either provider may be nil, in
// which case the corresponding attachment kind is rejected as invalid.
// metrics may be nil to use the process-wide default instruments.
func NewService(ocrProvider ocr.Provider, sttProvider stt.Provider, units memory.UnitStore, metrics *observe.Metrics) *Service {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Service{
		ocr:       ocrProvider,
		stt:       sttProvider,
		units:     units,
		corrector: NewCorrector(),
		metrics:   metrics,
	}
}

// Extract processes one attachment for ownerID and returns the extracted
// text with metadata. Unsupported MIME types are rejected with KindInvalid.
func (s *Service) Extract(ctx context.Context, ownerID string, data []byte, mimeType string) (*Extraction, error) {
	start := time.Now()
	defer func() {
		s.metrics.ExtractionDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if len(data) == 0 {
		return nil, apperr.New(apperr.KindInvalid, "extract: attachment is empty")
	}

	switch {
	case isImageMime(mimeType) || isPDFMime(mimeType):
		return s.extractVisual(ctx, data, mimeType)
	case isAudioMime(mimeType):
		return s.extractAudio(ctx, ownerID, data, mimeType)
	default:
		return nil, apperr.New(apperr.KindInvalid, "extract: unsupported attachment type %q", mimeType)
	}
}

func (s *Service) extractVisual(ctx context.Context, data []byte, mimeType string) (*Extraction, error) {
	if s.ocr == nil {
		return nil, apperr.New(apperr.KindInvalid, "extract: no OCR provider configured")
	}
	text, err := s.ocr.Recognize(ctx, data, mimeType)
	if err != nil {
		s.metrics.RecordProviderError(ctx, "ocr", "ocr")
		return nil, err
	}
	return &Extraction{
		Text:     text,
		Metadata: deriveMetadata(text),
	}, nil
}

func (s *Service) extractAudio(ctx context.Context, ownerID string, data []byte, mimeType string) (*Extraction, error) {
	if s.stt == nil {
		return nil, apperr.New(apperr.KindInvalid, "extract: no transcription provider configured")
	}
	transcript, err := s.stt.Transcribe(ctx, data, mimeType)
	if err != nil {
		s.metrics.RecordProviderError(ctx, "stt", "stt")
		return nil, err
	}

	text := transcript.Text
	var corrections []Correction
	titles, err := s.ownerTitles(ctx, ownerID)
	if err != nil {
		// Correction is best-effort; the raw transcript is still useful.
		observe.Logger(ctx).Warn("loading titles for transcript correction failed", "error", err)
	} else if len(titles) > 0 {
		text, corrections = s.corrector.Correct(text, titles)
	}

	return &Extraction{
		Text:        text,
		Metadata:    deriveMetadata(text),
		Corrections: corrections,
	}, nil
}

// ownerTitles collects the owner's unit titles for the corrector.
func (s *Service) ownerTitles(ctx context.Context, ownerID string) ([]string, error) {
	units, err := s.units.ListUnits(ctx, ownerID, memory.WithLimit(maxCorrectionTitles))
	if err != nil {
		return nil, err
	}
	var titles []string
	for _, u := range units {
		if strings.TrimSpace(u.Title) != "" {
			titles = append(titles, u.Title)
		}
	}
	return titles, nil
}

func isImageMime(mimeType string) bool {
	return strings.HasPrefix(normalizeMime(mimeType), "image/")
}

func isAudioMime(mimeType string) bool {
	return strings.HasPrefix(normalizeMime(mimeType), "audio/")
}

func isPDFMime(mimeType string) bool {
	return normalizeMime(mimeType) == "application/pdf"
}

func normalizeMime(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

package extract

import (
	"context"
	"testing"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
	memmock "github.com/memoroo/memoroo/pkg/memory/mock"
	ocrmock "github.com/memoroo/memoroo/pkg/provider/ocr/mock"
	"github.com/memoroo/memoroo/pkg/provider/stt"
	sttmock "github.com/memoroo/memoroo/pkg/provider/stt/mock"
)

// TestExtract_ImageGoesThroughOCR verifies image dispatch and metadata
// derivation.
func TestExtract_ImageGoesThroughOCR(t *testing.T) {
	ocrProv := &ocrmock.Provider{RecognizeResult: "Receipt\ncoffee 3.50 #expenses"}
	svc := NewService(ocrProv, &sttmock.Provider{}, memmock.New(), nil)

	ex, err := svc.Extract(context.Background(), "owner-1", []byte{1, 2, 3}, "image/png")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ex.Text != "Receipt\ncoffee 3.50 #expenses" {
		t.Errorf("Text = %q", ex.Text)
	}
	if ex.Metadata.Title != "Receipt" {
		t.Errorf("Title = %q, want Receipt", ex.Metadata.Title)
	}
	if len(ex.Metadata.Tags) != 1 || ex.Metadata.Tags[0] != "expenses" {
		t.Errorf("Tags = %v, want [expenses]", ex.Metadata.Tags)
	}
	if len(ocrProv.RecognizeCalls) != 1 {
		t.Errorf("OCR called %d times, want 1", len(ocrProv.RecognizeCalls))
	}
}

// TestExtract_AudioTranscribesAndCorrects verifies the voice-note path runs
// the transcript through the title corrector.
func TestExtract_AudioTranscribesAndCorrects(t *testing.T) {
	store := memmock.New()
	if err := store.PutUnit(context.Background(), memory.MemoryUnit{
		ID: "u1", OwnerID: "owner-1", SourceType: memory.SourceCard, Title: "Sarah",
	}); err != nil {
		t.Fatalf("PutUnit: %v", err)
	}
	sttProv := &sttmock.Provider{
		TranscribeResult: &stt.Transcript{Text: "remind me to call sara"},
	}
	svc := NewService(&ocrmock.Provider{}, sttProv, store, nil)

	ex, err := svc.Extract(context.Background(), "owner-1", []byte{1, 2, 3}, "audio/wav")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ex.Text != "remind me to call Sarah" {
		t.Errorf("Text = %q, want corrected transcript", ex.Text)
	}
	if len(ex.Corrections) != 1 {
		t.Errorf("got %d corrections, want 1", len(ex.Corrections))
	}
	if len(sttProv.TranscribeCalls) != 1 {
		t.Errorf("STT called %d times, want 1", len(sttProv.TranscribeCalls))
	}
}

// TestExtract_AudioWithoutTitlesKeepsTranscript verifies an owner with no
// titled units gets the raw transcript.
func TestExtract_AudioWithoutTitlesKeepsTranscript(t *testing.T) {
	sttProv := &sttmock.Provider{
		TranscribeResult: &stt.Transcript{Text: "buy oat milk"},
	}
	svc := NewService(&ocrmock.Provider{}, sttProv, memmock.New(), nil)

	ex, err := svc.Extract(context.Background(), "owner-1", []byte{1}, "audio/webm")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ex.Text != "buy oat milk" {
		t.Errorf("Text = %q, want raw transcript", ex.Text)
	}
	if len(ex.Corrections) != 0 {
		t.Errorf("got %d corrections, want 0", len(ex.Corrections))
	}
}

// TestExtract_UnsupportedMime verifies unknown attachment types are invalid.
func TestExtract_UnsupportedMime(t *testing.T) {
	svc := NewService(&ocrmock.Provider{}, &sttmock.Provider{}, memmock.New(), nil)

	_, err := svc.Extract(context.Background(), "owner-1", []byte{1}, "application/zip")
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("error = %v, want KindInvalid", err)
	}
}

// TestExtract_EmptyData verifies empty uploads are rejected.
func TestExtract_EmptyData(t *testing.T) {
	svc := NewService(&ocrmock.Provider{}, &sttmock.Provider{}, memmock.New(), nil)

	_, err := svc.Extract(context.Background(), "owner-1", nil, "image/png")
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("error = %v, want KindInvalid", err)
	}
}

// TestExtract_MissingProviderRejected verifies a kind without a configured
// provider is invalid rather than a panic.
func TestExtract_MissingProviderRejected(t *testing.T) {
	svc := NewService(nil, nil, memmock.New(), nil)

	if _, err := svc.Extract(context.Background(), "owner-1", []byte{1}, "image/jpeg"); !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("image error = %v, want KindInvalid", err)
	}
	if _, err := svc.Extract(context.Background(), "owner-1", []byte{1}, "audio/mpeg"); !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("audio error = %v, want KindInvalid", err)
	}
}

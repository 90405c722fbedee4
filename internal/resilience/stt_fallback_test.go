package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memoroo/memoroo/pkg/provider/stt"
	sttmock "github.com/memoroo/memoroo/pkg/provider/stt/mock"
)

func sttTestConfig() FallbackConfig {
	return FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  3,
			ResetTimeout: 100 * time.Millisecond,
			HalfOpenMax:  1,
		},
	}
}

// TestSTTFallback_PrimarySuccess verifies the transcript comes from the primary
// when it is healthy.
func TestSTTFallback_PrimarySuccess(t *testing.T) {
	primary := &sttmock.Provider{
		TranscribeResult: &stt.Transcript{Text: "buy milk", Confidence: 0.95},
	}
	backup := &sttmock.Provider{
		TranscribeResult: &stt.Transcript{Text: "from backup"},
	}

	f := NewSTTFallback(primary, "deepgram", sttTestConfig())
	f.AddFallback("whisper", backup)

	tr, err := f.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "buy milk" {
		t.Errorf("Text = %q, want %q", tr.Text, "buy milk")
	}
	if len(backup.TranscribeCalls) != 0 {
		t.Errorf("backup was called %d times, want 0", len(backup.TranscribeCalls))
	}
}

// TestSTTFallback_FailoverToBackup verifies a primary failure routes the audio
// to the fallback provider.
func TestSTTFallback_FailoverToBackup(t *testing.T) {
	primary := &sttmock.Provider{
		TranscribeErr: errors.New("websocket dial failed"),
	}
	backup := &sttmock.Provider{
		TranscribeResult: &stt.Transcript{Text: "from backup"},
	}

	f := NewSTTFallback(primary, "deepgram", sttTestConfig())
	f.AddFallback("whisper", backup)

	tr, err := f.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "from backup" {
		t.Errorf("Text = %q, want %q", tr.Text, "from backup")
	}
	if len(primary.TranscribeCalls) != 1 {
		t.Errorf("primary was called %d times, want 1", len(primary.TranscribeCalls))
	}
}

// TestSTTFallback_PassesAudioThrough verifies the fallback receives the same
// audio bytes and MIME type the caller provided.
func TestSTTFallback_PassesAudioThrough(t *testing.T) {
	primary := &sttmock.Provider{TranscribeErr: errors.New("down")}
	backup := &sttmock.Provider{
		TranscribeResult: &stt.Transcript{Text: "ok"},
	}

	f := NewSTTFallback(primary, "deepgram", sttTestConfig())
	f.AddFallback("whisper", backup)

	audio := []byte{0x52, 0x49, 0x46, 0x46}
	if _, err := f.Transcribe(context.Background(), audio, "audio/webm"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if len(backup.TranscribeCalls) != 1 {
		t.Fatalf("backup called %d times, want 1", len(backup.TranscribeCalls))
	}
	call := backup.TranscribeCalls[0]
	if string(call.Audio) != string(audio) {
		t.Errorf("fallback audio = %v, want %v", call.Audio, audio)
	}
	if call.MimeType != "audio/webm" {
		t.Errorf("fallback mimeType = %q, want %q", call.MimeType, "audio/webm")
	}
}

// TestSTTFallback_AllFail verifies ErrAllFailed when every backend errors.
func TestSTTFallback_AllFail(t *testing.T) {
	primary := &sttmock.Provider{TranscribeErr: errors.New("down")}
	backup := &sttmock.Provider{TranscribeErr: errors.New("also down")}

	f := NewSTTFallback(primary, "deepgram", sttTestConfig())
	f.AddFallback("whisper", backup)

	_, err := f.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("error = %v, want ErrAllFailed", err)
	}
}

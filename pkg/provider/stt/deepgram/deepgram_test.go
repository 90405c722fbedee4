package deepgram

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/memoroo/memoroo/pkg/apperr"
)

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL()
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "smart_format", "true", q.Get("smart_format"))
	assertEqual(t, "interim_results", "false", q.Get("interim_results"))
	if q.Has("sample_rate") || q.Has("encoding") {
		t.Error("expected no sample_rate/encoding params for containerized audio")
	}
}

func TestBuildURL_CustomModel(t *testing.T) {
	p, err := New("key", WithModel("base"), WithLanguage("de-DE"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL()
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de-DE", q.Get("language"))
}

// ---- JSON parsing tests ----

func TestParseDeepgramResponse_Final(t *testing.T) {
	raw := []byte(`{
		"type": "Results",
		"is_final": true,
		"channel": {
			"alternatives": [{
				"transcript": "Hello world",
				"confidence": 0.95,
				"words": [
					{"word": "Hello", "start": 0.1, "end": 0.5, "confidence": 0.97},
					{"word": "world", "start": 0.6, "end": 1.0, "confidence": 0.93}
				]
			}]
		}
	}`)

	seg, ok := parseDeepgramResponse(raw)
	if !ok {
		t.Fatal("expected ok=true for valid Results message")
	}

	if !seg.isFinal {
		t.Error("expected isFinal=true")
	}
	assertEqual(t, "text", "Hello world", seg.text)
	if seg.confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %f", seg.confidence)
	}
	if len(seg.words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(seg.words))
	}
	assertEqual(t, "word[0]", "Hello", seg.words[0].Word)
	if seg.words[0].Start != time.Duration(0.1*float64(time.Second)) {
		t.Errorf("unexpected start: %v", seg.words[0].Start)
	}
}

func TestParseDeepgramResponse_NonResultsType(t *testing.T) {
	raw := []byte(`{"type":"Metadata","request_id":"abc"}`)
	_, ok := parseDeepgramResponse(raw)
	if ok {
		t.Error("expected ok=false for non-Results message")
	}
	if !isMetadata(raw) {
		t.Error("expected isMetadata=true for Metadata message")
	}
}

func TestParseDeepgramResponse_EmptyAlternatives(t *testing.T) {
	raw := []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[]}}`)
	_, ok := parseDeepgramResponse(raw)
	if ok {
		t.Error("expected ok=false when alternatives is empty")
	}
}

func TestParseDeepgramResponse_InvalidJSON(t *testing.T) {
	_, ok := parseDeepgramResponse([]byte(`{invalid`))
	if ok {
		t.Error("expected ok=false for invalid JSON")
	}
	if isMetadata([]byte(`{invalid`)) {
		t.Error("expected isMetadata=false for invalid JSON")
	}
}

// ---- MIME handling tests ----

func TestNormalizeMimeType(t *testing.T) {
	cases := map[string]string{
		"audio/webm":                 "audio/webm",
		"Audio/OGG":                  "audio/ogg",
		"audio/ogg;codecs=opus":      "audio/ogg",
		"audio/webm ; codecs=opus":   "audio/webm",
		"  audio/mpeg  ":             "audio/mpeg",
		"application/ogg;codecs=spx": "application/ogg",
	}
	for in, want := range cases {
		if got := normalizeMimeType(in); got != want {
			t.Errorf("normalizeMimeType(%q) = %q, want %q", in, got, want)
		}
	}
}

// ---- Constructor tests ----

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assertEqual(t, "model", defaultModel, p.model)
	assertEqual(t, "language", defaultLanguage, p.language)
	assertEqual(t, "endpoint", deepgramEndpoint, p.endpoint)
}

// ---- Transcribe tests ----

// TestTranscribe_InvalidInput verifies that empty audio and unknown container
// formats are rejected before any connection is made.
func TestTranscribe_InvalidInput(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Transcribe(context.Background(), nil, "audio/webm"); !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("empty audio: expected KindInvalid, got %v", err)
	}
	if _, err := p.Transcribe(context.Background(), []byte{1, 2, 3}, "video/quicktime"); !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("unsupported mime: expected KindInvalid, got %v", err)
	}
}

// TestTranscribe_EndToEnd runs the full WebSocket protocol against a fake
// Deepgram server: binary audio frames in, Results and Metadata messages out.
func TestTranscribe_EndToEnd(t *testing.T) {
	results := []string{
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{
			"transcript":"Remember to water",
			"confidence":0.9,
			"words":[{"word":"Remember","start":0.0,"end":0.4,"confidence":0.9}]
		}]}}`,
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{
			"transcript":"the pl",
			"confidence":0.3,
			"words":[]
		}]}}`,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{
			"transcript":"the plants.",
			"confidence":0.8,
			"words":[{"word":"plants","start":0.5,"end":1.5,"confidence":0.8}]
		}]}}`,
	}

	var gotAudio bytes.Buffer
	srv := newFakeDeepgram(t, results, &gotAudio)
	defer srv.Close()

	p, err := New("test-key", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Large enough to span multiple binary frames.
	audio := bytes.Repeat([]byte{0xAB}, 3*sendChunkBytes+100)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := p.Transcribe(ctx, audio, "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	assertEqual(t, "text", "Remember to water the plants.", tr.Text)
	if len(tr.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(tr.Words))
	}
	if tr.Duration != 1500*time.Millisecond {
		t.Errorf("expected duration 1.5s from last word, got %v", tr.Duration)
	}
	// Interim result must not contribute to the confidence average.
	if tr.Confidence <= 0.8 || tr.Confidence >= 0.9 {
		t.Errorf("expected length-weighted confidence in (0.8, 0.9), got %f", tr.Confidence)
	}
	if gotAudio.Len() != len(audio) {
		t.Errorf("server received %d audio bytes, want %d", gotAudio.Len(), len(audio))
	}
}

// TestTranscribe_ServerUnreachable verifies that dial failures carry
// KindModelUnavailable so the extraction pipeline can degrade gracefully.
func TestTranscribe_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p, err := New("key", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/wav")
	if !apperr.IsKind(err, apperr.KindModelUnavailable) {
		t.Errorf("expected KindModelUnavailable, got %v", err)
	}
}

// ---- helpers ----

// newFakeDeepgram starts an HTTP server speaking just enough of the Deepgram
// streaming protocol: it accepts the WebSocket upgrade, buffers binary frames
// into gotAudio until the CloseStream message arrives, then replies with the
// given raw Results messages followed by a Metadata message.
func newFakeDeepgram(t *testing.T, results []string, gotAudio *bytes.Buffer) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token test-key" {
			t.Errorf("unexpected Authorization header: %q", got)
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("websocket accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "fake server exit")
		ctx := r.Context()

		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if typ == websocket.MessageText {
				if bytes.Contains(data, []byte("CloseStream")) {
					break
				}
				continue
			}
			gotAudio.Write(data)
		}

		for _, res := range results {
			if err := conn.Write(ctx, websocket.MessageText, []byte(res)); err != nil {
				return
			}
		}
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"Metadata","request_id":"req-1"}`))
		conn.Close(websocket.StatusNormalClosure, "done")
	}))
}

func assertEqual(t *testing.T, label, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %q, got %q", label, want, got)
	}
}

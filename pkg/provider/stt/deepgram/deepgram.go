// Package deepgram provides a Deepgram-backed STT provider. It streams the
// voice-note file over the Deepgram WebSocket API in fixed-size chunks,
// collects the final results, and joins them into a single transcript. It
// implements the stt.Provider interface.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/provider/stt"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"

	// sendChunkBytes is the size of each binary frame sent to Deepgram.
	sendChunkBytes = 16 * 1024
)

// supportedMimeTypes lists the container formats Deepgram detects on its own.
// Raw PCM would additionally need encoding/sample_rate query parameters, which
// voice-note uploads never carry.
var supportedMimeTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
	"audio/webm":  true,
	"audio/ogg":   true,
	"audio/opus":  true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/mp4":   true,
	"audio/m4a":   true,
	"audio/x-m4a": true,
	"audio/flac":  true,
	"audio/aac":   true,
}

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithEndpoint overrides the WebSocket endpoint, for self-hosted Deepgram
// deployments.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, apperr.New(apperr.KindInvalid, "deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements stt.Provider. The recording is streamed to Deepgram
// over a WebSocket followed by a CloseStream message; Deepgram then flushes
// its remaining results and closes the connection.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (*stt.Transcript, error) {
	if len(audio) == 0 {
		return nil, apperr.New(apperr.KindInvalid, "deepgram: audio must not be empty")
	}
	if !supportedMimeTypes[normalizeMimeType(mimeType)] {
		return nil, apperr.New(apperr.KindInvalid, "deepgram: unsupported audio type %q", mimeType)
	}

	wsURL, err := p.buildURL()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, err, "deepgram: build URL")
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindModelUnavailable, err, "deepgram: dial")
	}
	defer conn.Close(websocket.StatusNormalClosure, "transcription finished")

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- sendAudio(ctx, conn, audio)
	}()

	var (
		parts      []string
		words      []stt.WordDetail
		confSum    float64
		confWeight float64
	)

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperr.Wrap(apperr.KindGenerationTimeout, ctx.Err(), "deepgram: read results")
			}
			// Deepgram closes the socket once all results are delivered.
			if websocket.CloseStatus(err) != -1 {
				break
			}
			return nil, apperr.Wrap(apperr.KindModelUnavailable, err, "deepgram: read results")
		}

		seg, ok := parseDeepgramResponse(msg)
		if !ok {
			// The trailing Metadata message follows the last result.
			if isMetadata(msg) {
				break
			}
			continue
		}
		if !seg.isFinal || seg.text == "" {
			continue
		}

		parts = append(parts, seg.text)
		words = append(words, seg.words...)
		confSum += seg.confidence * float64(len(seg.text))
		confWeight += float64(len(seg.text))
	}

	if err := <-writeErr; err != nil {
		return nil, apperr.Wrap(apperr.KindModelUnavailable, err, "deepgram: send audio")
	}

	tr := &stt.Transcript{
		Text:  strings.Join(parts, " "),
		Words: words,
	}
	if confWeight > 0 {
		tr.Confidence = confSum / confWeight
	}
	if n := len(words); n > 0 {
		tr.Duration = words[n-1].End
	}
	return tr, nil
}

// sendAudio writes the recording as binary frames followed by the CloseStream
// message that tells Deepgram no more audio is coming.
func sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	for off := 0; off < len(audio); off += sendChunkBytes {
		end := min(off+sendChunkBytes, len(audio))
		if err := conn.Write(ctx, websocket.MessageBinary, audio[off:end]); err != nil {
			return fmt.Errorf("write audio frame: %w", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("write close message: %w", err)
	}
	return nil
}

// buildURL constructs the Deepgram streaming endpoint URL. No encoding or
// sample_rate parameters are set: the audio is containerized and Deepgram
// detects the format itself.
func (p *Provider) buildURL() (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", p.language)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("interim_results", "false")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// normalizeMimeType lowercases a MIME type and strips any parameters, so
// "audio/ogg;codecs=opus" matches "audio/ogg".
func normalizeMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// ---- response parsing ----

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// segment is one parsed Results message.
type segment struct {
	text       string
	confidence float64
	isFinal    bool
	words      []stt.WordDetail
}

// parseDeepgramResponse parses a raw Deepgram WebSocket message into a segment.
// Returns (segment, true) on success, or (zero, false) if the message should be ignored.
func parseDeepgramResponse(data []byte) (segment, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return segment{}, false
	}
	if resp.Type != "Results" {
		return segment{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return segment{}, false
	}

	alt := resp.Channel.Alternatives[0]
	words := make([]stt.WordDetail, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, stt.WordDetail{
			Word:       w.Word,
			Start:      time.Duration(w.Start * float64(time.Second)),
			End:        time.Duration(w.End * float64(time.Second)),
			Confidence: w.Confidence,
		})
	}

	return segment{
		text:       alt.Transcript,
		confidence: alt.Confidence,
		isFinal:    resp.IsFinal,
		words:      words,
	}, true
}

// isMetadata reports whether a raw message is the Metadata event Deepgram
// sends after the last result.
func isMetadata(data []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Type == "Metadata"
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

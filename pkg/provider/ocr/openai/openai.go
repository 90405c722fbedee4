// Package openai provides an OCR provider backed by an OpenAI vision model.
// The image is sent inline as a base64 data URL on a chat completion request
// and the model is instructed to return the visible text verbatim.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/provider/ocr"
)

// Ensure Provider implements the ocr.Provider interface.
var _ ocr.Provider = (*Provider)(nil)

const defaultModel = "gpt-4o-mini"

// recognizePrompt instructs the model to act as a pure transcriber. Layout
// hints keep multi-column notes readable once flattened to plain text.
const recognizePrompt = "Transcribe all text visible in this image, exactly as written. " +
	"Preserve the reading order and line breaks. " +
	"Return only the transcribed text with no commentary. " +
	"If the image contains no legible text, return an empty response."

// supportedMimeTypes lists the image formats the OpenAI vision endpoint accepts.
var supportedMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Provider implements ocr.Provider using an OpenAI vision-capable chat model.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithModel overrides the default vision model ("gpt-4o-mini").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI OCR Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, apperr.New(apperr.KindInvalid, "openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: cfg.model}, nil
}

// Recognize implements ocr.Provider.
func (p *Provider) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", apperr.New(apperr.KindInvalid, "openai: image must not be empty")
	}
	mt := normalizeMimeType(mimeType)
	if !supportedMimeTypes[mt] {
		return "", apperr.New(apperr.KindInvalid, "openai: unsupported image type %q", mimeType)
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
				oai.TextContentPart(recognizePrompt),
				oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(image, mt),
				}),
			}),
		},
		// Transcription wants determinism, not creativity.
		Temperature: param.NewOpt(0.0),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Wrap(apperr.KindGenerationTimeout, err, "openai: recognize deadline exceeded")
		}
		return "", apperr.Wrap(apperr.KindModelUnavailable, err, "openai: recognize")
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindModelUnavailable, "openai: empty choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// dataURL encodes the image as an inline base64 data URL.
func dataURL(image []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// normalizeMimeType lowercases a MIME type and strips any parameters.
func normalizeMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

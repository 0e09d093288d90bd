package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aicam/internal/infra"
)

const openAIMaxCompletionTokens = 4096

// OpenAIOptions configures the OpenAI client.
type OpenAIOptions struct {
	APIKey         string
	BaseURL        string
	VLMModel       string
	ImageModel     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// OpenAIClient performs HTTP calls to the OpenAI API. It supports
// streaming vision analysis and single-shot image generation; there is
// no public video generation endpoint, so video submission reports
// ErrVideoUnsupported.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	vlmModel   string
	imageModel string
	unary      *http.Client
	stream     *http.Client
	logger     *infra.Logger
}

// NewOpenAIClient constructs a client with sane defaults.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	unary := opts.HTTPClient
	stream := opts.HTTPClient
	if unary == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		unary = &http.Client{Timeout: timeout}
		stream = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &OpenAIClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		vlmModel:   strings.TrimSpace(opts.VLMModel),
		imageModel: strings.TrimSpace(opts.ImageModel),
		unary:      unary,
		stream:     stream,
		logger:     logger,
	}
}

// Name identifies the provider in logs and job records.
func (c *OpenAIClient) Name() string { return "openai" }

// StreamAnalyze opens a streaming vision chat call. OpenAI emits no
// reasoning phase, so the chunk sequence carries content only.
func (c *OpenAIClient) StreamAnalyze(ctx context.Context, req AnalysisRequest) (<-chan Chunk, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	content := []chatContentPart{textPart(req.Prompt)}
	for _, img := range req.Images {
		part := imagePart(img)
		part.ImageURL.Detail = "auto"
		content = append(content, part)
	}
	payload := chatStreamRequest{
		Model:               c.vlmModel,
		Messages:            []chatMessage{{Role: "user", Content: content}},
		Stream:              true,
		MaxCompletionTokens: openAIMaxCompletionTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: http request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, decodeErrorBody(resp.StatusCode, raw)
	}

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		decoder := NewStreamDecoder(resp.Body)
		for {
			chunk, ok := decoder.Next()
			if !ok {
				return
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Kind == ChunkDone || chunk.Kind == ChunkError {
				return
			}
		}
	}()
	return ch, nil
}

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateEditedImage produces a stylized image in one request. OpenAI
// returns the bytes inline as base64, so no second fetch is needed.
func (c *OpenAIClient) GenerateEditedImage(ctx context.Context, _ []byte, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	payload := openAIImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		ResponseFormat: "b64_json",
	}
	var decoded openAIImageResponse
	if err := doJSON(ctx, c.unary, http.MethodPost, c.baseURL+"/images/generations", c.apiKey, payload, &decoded); err != nil {
		return nil, fmt.Errorf("openai: image generation: %w", err)
	}
	if len(decoded.Data) == 0 || decoded.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: image generation: %w", ErrMissingArtifact)
	}
	data, err := base64.StdEncoding.DecodeString(decoded.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	c.logger.Debug().Str("model", c.imageModel).Int("bytes", len(data)).Msg("openai: image generated")
	return data, nil
}

// SubmitVideoJob reports that OpenAI exposes no video task API.
func (c *OpenAIClient) SubmitVideoJob(ctx context.Context, _ []byte, _ string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	return "", ErrVideoUnsupported
}

// PollVideoJob reports that OpenAI exposes no video task API.
func (c *OpenAIClient) PollVideoJob(ctx context.Context, _ string) (*VideoJobStatus, error) {
	return nil, ErrVideoUnsupported
}

// FetchArtifact downloads an artifact by URL.
func (c *OpenAIClient) FetchArtifact(ctx context.Context, url string) ([]byte, error) {
	return fetchBytes(ctx, c.unary, url)
}

var _ Client = (*OpenAIClient)(nil)

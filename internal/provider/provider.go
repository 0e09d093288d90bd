package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ChunkKind classifies one decoded unit of a streaming analysis response.
type ChunkKind int

const (
	// ChunkReasoning carries provider "thinking" text emitted before the
	// user-visible answer.
	ChunkReasoning ChunkKind = iota
	// ChunkContent carries user-visible answer text.
	ChunkContent
	// ChunkDone marks the successful end of the stream.
	ChunkDone
	// ChunkError marks an abnormal end of the stream; Err is set.
	ChunkError
)

// Chunk is one decoded streaming event. A terminal chunk (Done or Error)
// is always the last one delivered for a stream.
type Chunk struct {
	Kind ChunkKind
	Text string
	Err  error
}

// AnalysisRequest describes one frame-analysis call. It is immutable
// once constructed and owned by the single run that created it.
type AnalysisRequest struct {
	Images       [][]byte
	Prompt       string
	DeepThinking bool
}

// Video job status strings as reported by the provider poll endpoint.
const (
	VideoStatusPending    = "pending"
	VideoStatusProcessing = "processing"
	VideoStatusSucceeded  = "succeeded"
	VideoStatusFailed     = "failed"
)

// VideoJobStatus is one poll result for an asynchronous video task.
type VideoJobStatus struct {
	ID           string
	Status       string
	ErrorMessage string
	VideoURL     string
}

// Client is the uniform surface over a multimodal AI provider. StreamAnalyze
// opens the call and returns immediately; chunks arrive on the channel in
// receive order, ending with a terminal chunk before the channel closes.
// Credentials are injected at construction and validated per call; clients
// hold no other mutable state and perform no I/O beyond the network.
type Client interface {
	Name() string
	StreamAnalyze(ctx context.Context, req AnalysisRequest) (<-chan Chunk, error)
	GenerateEditedImage(ctx context.Context, source []byte, prompt string) ([]byte, error)
	SubmitVideoJob(ctx context.Context, source []byte, prompt string) (string, error)
	PollVideoJob(ctx context.Context, remoteID string) (*VideoJobStatus, error)
	FetchArtifact(ctx context.Context, url string) ([]byte, error)
}

// Chat-completion wire shapes shared by both concrete clients. Content
// parts are an explicit tagged union: exactly one of Text or ImageURL is
// populated according to Type.
type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatStreamRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	// Doubao-only deep thinking switch.
	Thinking *thinkingConfig `json:"thinking,omitempty"`
	// OpenAI-only completion budget.
	MaxCompletionTokens int `json:"max_completion_tokens,omitempty"`
}

type thinkingConfig struct {
	Type string `json:"type"`
}

func textPart(text string) chatContentPart {
	return chatContentPart{Type: "text", Text: text}
}

func imagePart(data []byte) chatContentPart {
	return chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: imageDataURI(data)}}
}

// imageDataURI embeds JPEG bytes as a data URI; providers accept these in
// place of fetchable URLs, which keeps frame uploads a single request.
func imageDataURI(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

// decodeErrorBody converts a non-2xx response body into an HTTPError,
// preferring the provider's structured message when one decodes.
func decodeErrorBody(status int, raw []byte) *HTTPError {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Error.Message != "" {
		return &HTTPError{Status: status, Message: nested.Error.Message}
	}
	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.Message != "" {
		return &HTTPError{Status: status, Message: flat.Message}
	}
	return &HTTPError{Status: status}
}

// doJSON performs one authenticated JSON round trip. The HTTP status
// class is validated before any parse attempt; non-2xx responses come
// back as *HTTPError with the decoded provider message when available.
func doJSON(ctx context.Context, client *http.Client, method, url, apiKey string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("provider: encode request: %w", err)
		}
		body = strings.NewReader(string(raw))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("provider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("provider: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeErrorBody(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// fetchBytes downloads an artifact referenced by url. A succeeded job
// without a fetchable artifact is not a success, so callers treat any
// failure here as the job's failure.
func fetchBytes(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: build artifact request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: fetch artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("provider: read artifact: %w", err)
	}
	return data, nil
}

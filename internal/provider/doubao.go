package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aicam/internal/infra"
)

// Ark caps generated clips; these tuning flags ride along with every
// video prompt the same way the mobile client sends them.
const doubaoVideoPromptSuffix = " --dur 10 --resolution 720p --camerafixed false"

// DoubaoOptions configures the Ark (Doubao) client.
type DoubaoOptions struct {
	APIKey         string
	BaseURL        string
	VLMModel       string
	ImageEditModel string
	VideoModel     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// DoubaoClient performs HTTP calls to the Volcengine Ark API: streaming
// vision analysis, single-shot image edits and asynchronous video tasks.
type DoubaoClient struct {
	apiKey         string
	baseURL        string
	vlmModel       string
	imageEditModel string
	videoModel     string
	unary          *http.Client
	stream         *http.Client
	logger         *infra.Logger
}

// NewDoubaoClient constructs a client with sane defaults and injected
// dependencies. The streaming client carries no overall timeout; live
// SSE reads are bounded by the caller's context instead.
func NewDoubaoClient(opts DoubaoOptions) *DoubaoClient {
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
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &DoubaoClient{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        baseURL,
		vlmModel:       strings.TrimSpace(opts.VLMModel),
		imageEditModel: strings.TrimSpace(opts.ImageEditModel),
		videoModel:     strings.TrimSpace(opts.VideoModel),
		unary:          unary,
		stream:         stream,
		logger:         logger,
	}
}

// Name identifies the provider in logs and job records.
func (c *DoubaoClient) Name() string { return "doubao" }

// StreamAnalyze opens a streaming chat-completion call and returns the
// decoded chunk sequence. The returned channel closes after a terminal
// chunk; cancelling ctx aborts the underlying stream promptly.
func (c *DoubaoClient) StreamAnalyze(ctx context.Context, req AnalysisRequest) (<-chan Chunk, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	thinking := "disabled"
	if req.DeepThinking {
		thinking = "enabled"
	}
	content := []chatContentPart{textPart(req.Prompt)}
	for _, img := range req.Images {
		content = append(content, imagePart(img))
	}
	payload := chatStreamRequest{
		Model:    c.vlmModel,
		Messages: []chatMessage{{Role: "user", Content: content}},
		Stream:   true,
		Thinking: &thinkingConfig{Type: thinking},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("doubao: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("doubao: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("doubao: http request: %w", err)
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

type doubaoImageEditRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Image          string `json:"image"`
	ResponseFormat string `json:"response_format"`
}

type doubaoImageEditResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateEditedImage performs a single-shot stylized edit and returns
// the artifact bytes. Ark answers with a short-lived URL, so the image
// is fetched before the call reports success.
func (c *DoubaoClient) GenerateEditedImage(ctx context.Context, source []byte, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	payload := doubaoImageEditRequest{
		Model:          c.imageEditModel,
		Prompt:         prompt,
		Image:          imageDataURI(source),
		ResponseFormat: "url",
	}
	var decoded doubaoImageEditResponse
	if err := doJSON(ctx, c.unary, http.MethodPost, c.baseURL+"/images/generations", c.apiKey, payload, &decoded); err != nil {
		return nil, fmt.Errorf("doubao: image edit: %w", err)
	}
	if len(decoded.Data) == 0 || strings.TrimSpace(decoded.Data[0].URL) == "" {
		return nil, fmt.Errorf("doubao: image edit: %w", ErrMissingArtifact)
	}
	data, err := fetchBytes(ctx, c.unary, decoded.Data[0].URL)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("model", c.imageEditModel).Int("bytes", len(data)).Msg("doubao: edited image fetched")
	return data, nil
}

type doubaoVideoTaskRequest struct {
	Model   string            `json:"model"`
	Content []chatContentPart `json:"content"`
}

type doubaoVideoTaskResponse struct {
	ID string `json:"id"`
}

// SubmitVideoJob creates an asynchronous video generation task and
// returns the provider-side task id.
func (c *DoubaoClient) SubmitVideoJob(ctx context.Context, source []byte, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	payload := doubaoVideoTaskRequest{
		Model: c.videoModel,
		Content: []chatContentPart{
			textPart(prompt + doubaoVideoPromptSuffix),
			imagePart(source),
		},
	}
	var decoded doubaoVideoTaskResponse
	if err := doJSON(ctx, c.unary, http.MethodPost, c.baseURL+"/contents/generations/tasks", c.apiKey, payload, &decoded); err != nil {
		return "", fmt.Errorf("doubao: submit video task: %w", err)
	}
	if decoded.ID == "" {
		return "", fmt.Errorf("doubao: submit video task: %w", errors.New("empty task id"))
	}
	c.logger.Info().Str("task_id", decoded.ID).Str("model", c.videoModel).Msg("doubao: video task created")
	return decoded.ID, nil
}

type doubaoVideoPollResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
	Content *struct {
		VideoURL string `json:"video_url"`
	} `json:"content"`
}

// PollVideoJob performs one status check for a video task. It never
// sleeps; pacing is the caller's concern.
func (c *DoubaoClient) PollVideoJob(ctx context.Context, remoteID string) (*VideoJobStatus, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	var decoded doubaoVideoPollResponse
	url := c.baseURL + "/contents/generations/tasks/" + remoteID
	if err := doJSON(ctx, c.unary, http.MethodGet, url, c.apiKey, nil, &decoded); err != nil {
		return nil, fmt.Errorf("doubao: poll video task: %w", err)
	}
	status := &VideoJobStatus{ID: decoded.ID, Status: decoded.Status}
	if decoded.Error != nil {
		status.ErrorMessage = decoded.Error.Message
	}
	if decoded.Content != nil {
		status.VideoURL = decoded.Content.VideoURL
	}
	return status, nil
}

// FetchArtifact downloads a finished artifact by its provider URL.
func (c *DoubaoClient) FetchArtifact(ctx context.Context, url string) ([]byte, error) {
	return fetchBytes(ctx, c.unary, url)
}

var _ Client = (*DoubaoClient)(nil)

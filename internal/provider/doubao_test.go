package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestDoubao(t *testing.T, handler http.HandlerFunc) *DoubaoClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewDoubaoClient(DoubaoOptions{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		VLMModel:       "vlm-model",
		ImageEditModel: "image-model",
		VideoModel:     "video-model",
		HTTPClient:     server.Client(),
	})
}

func drain(t *testing.T, ch <-chan Chunk) []Chunk {
	t.Helper()
	var chunks []Chunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestDoubaoStreamAnalyze(t *testing.T) {
	var gotBody chatStreamRequest
	client := newTestDoubao(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"think\"}}]}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"done\"}}]}\n" +
				"data: [DONE]\n"))
	})

	ch, err := client.StreamAnalyze(context.Background(), AnalysisRequest{
		Images:       [][]byte{[]byte("jpegbytes")},
		Prompt:       "describe",
		DeepThinking: true,
	})
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}
	chunks := drain(t, ch)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Kind != ChunkReasoning || chunks[0].Text != "think" {
		t.Errorf("chunk 0 = %+v", chunks[0])
	}
	if chunks[2].Kind != ChunkDone {
		t.Errorf("chunk 2 = %+v", chunks[2])
	}

	if gotBody.Model != "vlm-model" || !gotBody.Stream {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.Thinking == nil || gotBody.Thinking.Type != "enabled" {
		t.Errorf("thinking config = %+v", gotBody.Thinking)
	}
	if len(gotBody.Messages) != 1 || len(gotBody.Messages[0].Content) != 2 {
		t.Fatalf("messages = %+v", gotBody.Messages)
	}
	img := gotBody.Messages[0].Content[1]
	if img.ImageURL == nil || !strings.HasPrefix(img.ImageURL.URL, "data:image/jpeg;base64,") {
		t.Errorf("image part = %+v", img)
	}
}

func TestDoubaoStreamAnalyzeThinkingDisabled(t *testing.T) {
	var gotBody chatStreamRequest
	client := newTestDoubao(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte("data: [DONE]\n"))
	})
	ch, err := client.StreamAnalyze(context.Background(), AnalysisRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}
	drain(t, ch)
	if gotBody.Thinking == nil || gotBody.Thinking.Type != "disabled" {
		t.Errorf("thinking config = %+v", gotBody.Thinking)
	}
}

func TestDoubaoStreamAnalyzeHTTPError(t *testing.T) {
	client := newTestDoubao(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})
	_, err := client.StreamAnalyze(context.Background(), AnalysisRequest{Prompt: "p"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusTooManyRequests || httpErr.Message != "rate limited" {
		t.Errorf("HTTPError = %+v", httpErr)
	}
}

func TestDoubaoStreamAnalyzeNoKey(t *testing.T) {
	client := NewDoubaoClient(DoubaoOptions{})
	if _, err := client.StreamAnalyze(context.Background(), AnalysisRequest{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestDoubaoGenerateEditedImage(t *testing.T) {
	var artifactHits int
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		var req doubaoImageEditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat != "url" || req.Model != "image-model" {
			t.Errorf("request = %+v", req)
		}
		if !strings.HasPrefix(req.Image, "data:image/jpeg;base64,") {
			t.Errorf("image field = %q", req.Image[:32])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": server.URL + "/artifact"}},
		})
	})
	mux.HandleFunc("/artifact", func(w http.ResponseWriter, r *http.Request) {
		artifactHits++
		_, _ = w.Write([]byte("edited-bytes"))
	})

	client := NewDoubaoClient(DoubaoOptions{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		ImageEditModel: "image-model",
		HTTPClient:     server.Client(),
	})
	data, err := client.GenerateEditedImage(context.Background(), []byte("src"), "ghibli")
	if err != nil {
		t.Fatalf("GenerateEditedImage: %v", err)
	}
	if string(data) != "edited-bytes" {
		t.Errorf("data = %q", data)
	}
	if artifactHits != 1 {
		t.Errorf("artifact fetched %d times, want 1", artifactHits)
	}
}

func TestDoubaoGenerateEditedImageMissingURL(t *testing.T) {
	client := newTestDoubao(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	if _, err := client.GenerateEditedImage(context.Background(), []byte("src"), "p"); !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("expected ErrMissingArtifact, got %v", err)
	}
}

func TestDoubaoSubmitVideoJob(t *testing.T) {
	var gotBody doubaoVideoTaskRequest
	client := newTestDoubao(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contents/generations/tasks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"task-42"}`))
	})
	id, err := client.SubmitVideoJob(context.Background(), []byte("frame"), "a quiet street")
	if err != nil {
		t.Fatalf("SubmitVideoJob: %v", err)
	}
	if id != "task-42" {
		t.Errorf("task id = %q", id)
	}
	if len(gotBody.Content) != 2 {
		t.Fatalf("content = %+v", gotBody.Content)
	}
	if want := "a quiet street" + doubaoVideoPromptSuffix; gotBody.Content[0].Text != want {
		t.Errorf("prompt = %q, want %q", gotBody.Content[0].Text, want)
	}
}

func TestDoubaoPollVideoJob(t *testing.T) {
	client := newTestDoubao(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contents/generations/tasks/task-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"task-42","status":"succeeded","content":{"video_url":"https://cdn/video.mp4"}}`))
	})
	status, err := client.PollVideoJob(context.Background(), "task-42")
	if err != nil {
		t.Fatalf("PollVideoJob: %v", err)
	}
	if status.Status != VideoStatusSucceeded || status.VideoURL != "https://cdn/video.mp4" {
		t.Errorf("status = %+v", status)
	}
}

func TestDoubaoPollVideoJobFailed(t *testing.T) {
	client := newTestDoubao(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"task-42","status":"failed","error":{"message":"content policy"}}`))
	})
	status, err := client.PollVideoJob(context.Background(), "task-42")
	if err != nil {
		t.Fatalf("PollVideoJob: %v", err)
	}
	if status.Status != VideoStatusFailed || status.ErrorMessage != "content policy" {
		t.Errorf("status = %+v", status)
	}
}

package provider

import (
	"errors"
	"strings"
	"testing"
)

func collectChunks(t *testing.T, input string) []Chunk {
	t.Helper()
	decoder := NewStreamDecoder(strings.NewReader(input))
	var chunks []Chunk
	for {
		chunk, ok := decoder.Next()
		if !ok {
			return chunks
		}
		chunks = append(chunks, chunk)
		if len(chunks) > 100 {
			t.Fatal("decoder did not terminate")
		}
	}
}

func TestStreamDecoderContentSequence(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"He\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n" +
		"data: [DONE]\n"
	chunks := collectChunks(t, input)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Kind != ChunkContent || chunks[0].Text != "He" {
		t.Errorf("chunk 0 = %+v", chunks[0])
	}
	if chunks[1].Kind != ChunkContent || chunks[1].Text != "llo" {
		t.Errorf("chunk 1 = %+v", chunks[1])
	}
	if chunks[2].Kind != ChunkDone {
		t.Errorf("chunk 2 = %+v", chunks[2])
	}
}

func TestStreamDecoderSkipsNonDataLines(t *testing.T) {
	input := ": keepalive\n" +
		"event: message\n" +
		"\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n" +
		"data: [DONE]\n"
	chunks := collectChunks(t, input)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Kind != ChunkContent || chunks[0].Text != "hi" {
		t.Errorf("chunk 0 = %+v", chunks[0])
	}
}

func TestStreamDecoderReasoningThenContent(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"hmm\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"...\",\"content\":\"answer\"}}]}\n" +
		"data: [DONE]\n"
	chunks := collectChunks(t, input)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Kind != ChunkReasoning || chunks[0].Text != "hmm" {
		t.Errorf("chunk 0 = %+v", chunks[0])
	}
	// A payload carrying both fields yields reasoning first, then content.
	if chunks[1].Kind != ChunkReasoning || chunks[1].Text != "..." {
		t.Errorf("chunk 1 = %+v", chunks[1])
	}
	if chunks[2].Kind != ChunkContent || chunks[2].Text != "answer" {
		t.Errorf("chunk 2 = %+v", chunks[2])
	}
	if chunks[3].Kind != ChunkDone {
		t.Errorf("chunk 3 = %+v", chunks[3])
	}
}

func TestStreamDecoderMalformedPayload(t *testing.T) {
	chunks := collectChunks(t, "data: {not json}\n")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Kind != ChunkError {
		t.Fatalf("expected error chunk, got %+v", chunks[0])
	}
	if !errors.Is(chunks[0].Err, ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", chunks[0].Err)
	}
}

func TestStreamDecoderEOFWithoutDone(t *testing.T) {
	chunks := collectChunks(t, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Kind != ChunkDone {
		t.Errorf("expected trailing Done, got %+v", chunks[1])
	}
}

func TestStreamDecoderEmptyDeltaIgnored(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{}}]}\n" +
		"data: {\"choices\":[]}\n" +
		"data: [DONE]\n"
	chunks := collectChunks(t, input)
	if len(chunks) != 1 || chunks[0].Kind != ChunkDone {
		t.Fatalf("expected only Done, got %+v", chunks)
	}
}

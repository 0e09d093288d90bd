package provider

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	ssePrefix   = "data: "
	sseDoneMark = "[DONE]"
)

// streamPayload is the per-event JSON body of a chat-completion stream.
// The reasoning field is provider-specific and simply absent for
// providers without a thinking phase.
type streamPayload struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamDecoder turns a live server-sent-event byte stream into a lazy,
// non-restartable sequence of chunks. It holds no state beyond the
// current line and at most one pending chunk (a payload may carry both
// reasoning and content, which decode into two chunks).
type StreamDecoder struct {
	scanner  *bufio.Scanner
	pending  *Chunk
	finished bool
}

// NewStreamDecoder wraps r, which must deliver the raw event-stream body.
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamDecoder{scanner: scanner}
}

// Next returns the next chunk in receive order. The second result is
// false once the sequence is exhausted; the terminal Done or Error chunk
// itself is returned with true.
func (d *StreamDecoder) Next() (Chunk, bool) {
	if d.finished {
		return Chunk{}, false
	}
	if d.pending != nil {
		chunk := *d.pending
		d.pending = nil
		return chunk, true
	}
	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !strings.HasPrefix(line, ssePrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, ssePrefix)
		if payload == sseDoneMark {
			d.finished = true
			return Chunk{Kind: ChunkDone}, true
		}
		var decoded streamPayload
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			d.finished = true
			return Chunk{Kind: ChunkError, Err: fmt.Errorf("%w: %v", ErrProtocol, err)}, true
		}
		if len(decoded.Choices) == 0 {
			continue
		}
		delta := decoded.Choices[0].Delta
		if delta.ReasoningContent != "" {
			if delta.Content != "" {
				d.pending = &Chunk{Kind: ChunkContent, Text: delta.Content}
			}
			return Chunk{Kind: ChunkReasoning, Text: delta.ReasoningContent}, true
		}
		if delta.Content != "" {
			return Chunk{Kind: ChunkContent, Text: delta.Content}, true
		}
	}
	d.finished = true
	if err := d.scanner.Err(); err != nil {
		return Chunk{Kind: ChunkError, Err: fmt.Errorf("provider: read stream: %w", err)}, true
	}
	// Stream ended without an explicit [DONE]; treat as a clean finish.
	return Chunk{Kind: ChunkDone}, true
}

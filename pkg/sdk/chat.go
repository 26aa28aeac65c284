package sdk

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// ChatResult is a whole answer with its sources.
type ChatResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// StreamHandler receives stream events. Any nil callback is skipped.
type StreamHandler struct {
	OnSources func(sources []string)
	OnChunk   func(content string)
}

type chatRequest struct {
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Ask sends a prompt and waits for the whole answer.
func (c *Client) Ask(ctx context.Context, prompt string) (ChatResult, error) {
	resp, err := c.postJSON(ctx, "/api/chat", chatRequest{Prompt: prompt, Stream: false})
	if err != nil {
		return ChatResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return ChatResult{}, apiError(resp)
	}
	defer resp.Body.Close()

	var result ChatResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ChatResult{}, fmt.Errorf("sdk: decode answer: %w", err)
	}
	return result, nil
}

// ChatSession streams answers one at a time. Starting a new stream
// cancels the previous in-flight one with ErrSuperseded, matching how
// a chat UI abandons a stale answer when the user asks again.
type ChatSession struct {
	client *Client

	mu     sync.Mutex
	cancel context.CancelCauseFunc
	gen    int
}

// NewChatSession creates a session on the client.
func (c *Client) NewChatSession() *ChatSession {
	return &ChatSession{client: c}
}

// Stream sends a prompt and delivers events to the handler until the
// server's done frame, an error frame, cancellation, or supersession.
// It returns nil on a clean done frame.
func (s *ChatSession) Stream(ctx context.Context, prompt string, handler StreamHandler) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel(ErrSuperseded)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	s.cancel = cancel
	s.gen++
	myGen := s.gen
	s.mu.Unlock()

	defer func() {
		cancel(nil)
		s.mu.Lock()
		// Clear the session cancel only if a newer stream has not
		// already replaced it.
		if s.gen == myGen {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	err := s.client.stream(ctx, prompt, handler)
	if cause := context.Cause(ctx); cause != nil && errors.Is(err, context.Canceled) {
		return cause
	}
	return err
}

func (c *Client) stream(ctx context.Context, prompt string, handler StreamHandler) error {
	resp, err := c.postJSON(ctx, "/api/chat", chatRequest{Prompt: prompt, Stream: true})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var frame struct {
			Type    string   `json:"type"`
			Sources []string `json:"sources"`
			Content string   `json:"content"`
			Error   string   `json:"error"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			return fmt.Errorf("sdk: malformed stream frame: %w", err)
		}

		switch frame.Type {
		case "sources":
			if handler.OnSources != nil {
				handler.OnSources(frame.Sources)
			}
		case "chunk":
			if handler.OnChunk != nil {
				handler.OnChunk(frame.Content)
			}
		case "done":
			return nil
		case "error":
			return fmt.Errorf("sdk: stream failed: %s", frame.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return fmt.Errorf("sdk: read stream: %w", err)
	}
	return errors.New("sdk: stream ended without a terminal frame")
}

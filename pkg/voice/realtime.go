package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultRealtimeURL = "wss://api.openai.com/v1/realtime"

// RealtimeDialer opens websocket channels against the OpenAI realtime
// API using an ephemeral client secret.
type RealtimeDialer struct {
	baseURL string
	model   string
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

// RealtimeDialerConfig configures a RealtimeDialer. BaseURL defaults to
// the public realtime endpoint.
type RealtimeDialerConfig struct {
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

func NewRealtimeDialer(cfg RealtimeDialerConfig) *RealtimeDialer {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultRealtimeURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeDialer{
		baseURL: base,
		model:   cfg.Model,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
	}
}

// Dial connects with the given ephemeral client secret and starts the
// read pump. The returned channel's event stream is closed when the
// connection drops.
func (d *RealtimeDialer) Dial(ctx context.Context, clientSecret string) (Channel, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("voice: parse realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", d.model)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+clientSecret)

	conn, resp, err := d.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("voice: realtime dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("voice: realtime dial failed: %w", err)
	}

	ch := &realtimeChannel{
		conn:   conn,
		events: make(chan Event, 16),
		logger: d.logger,
	}
	go ch.readPump()
	return ch, nil
}

// realtimeChannel adapts a realtime websocket into the Channel
// interface. Writes are serialized; reads happen on the pump goroutine
// only.
type realtimeChannel struct {
	conn   *websocket.Conn
	events chan Event
	logger *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once

	// transcript accumulates completed utterances per item id so a
	// full history snapshot can be emitted on every update.
	histMu  sync.Mutex
	history []ConversationTurn

	// toolPending tracks an unfinished tool invocation so a tool-end
	// event can be emitted when the follow-up response completes.
	toolPending bool
}

func (c *realtimeChannel) Events() <-chan Event { return c.events }

func (c *realtimeChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Configure sends a session.update carrying the instructions and the
// function declarations, so the model knows its persona and which
// tools it may call.
func (c *realtimeChannel) Configure(ctx context.Context, cfg SessionConfig) error {
	return c.send(ctx, sessionUpdatePayload(cfg))
}

func sessionUpdatePayload(cfg SessionConfig) map[string]any {
	tools := make([]map[string]any, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tools = append(tools, map[string]any{
			"type":        "function",
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		})
	}
	return map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"instructions": cfg.Instructions,
			"tools":        tools,
		},
	}
}

// SendText submits a user message and asks the model to respond.
func (c *realtimeChannel) SendText(ctx context.Context, text string) error {
	item := map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	}
	if err := c.send(ctx, item); err != nil {
		return err
	}
	return c.send(ctx, map[string]any{"type": "response.create"})
}

// SendToolResult submits a function call output and asks the model to
// continue the response.
func (c *realtimeChannel) SendToolResult(ctx context.Context, callID, output string) error {
	item := map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	}
	if err := c.send(ctx, item); err != nil {
		return err
	}
	return c.send(ctx, map[string]any{"type": "response.create"})
}

func (c *realtimeChannel) send(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("voice: marshal client event: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("voice: write client event: %w", err)
	}
	return nil
}

// serverEvent covers the fields used from the realtime server event
// union; everything else is ignored.
type serverEvent struct {
	Type       string `json:"type"`
	CallID     string `json:"call_id"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments"`
	Transcript string `json:"transcript"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *realtimeChannel) readPump() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("realtime connection closed", zap.Error(err))
			}
			return
		}
		var ev serverEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("failed to decode server event", zap.Error(err))
			continue
		}
		c.dispatch(ev)
	}
}

func (c *realtimeChannel) dispatch(ev serverEvent) {
	switch ev.Type {
	case "response.created":
		c.emit(Event{Type: EventAgentStart})
	case "response.done":
		c.histMu.Lock()
		pending := c.toolPending
		c.toolPending = false
		c.histMu.Unlock()
		if pending {
			c.emit(Event{Type: EventToolEnd})
		}
		c.emit(Event{Type: EventAgentEnd})
	case "response.function_call_arguments.done":
		c.histMu.Lock()
		c.toolPending = true
		c.histMu.Unlock()
		c.emit(Event{Type: EventToolStart, ToolName: ev.Name, CallID: ev.CallID})
		c.emit(Event{
			Type:      EventToolCall,
			ToolName:  ev.Name,
			CallID:    ev.CallID,
			Arguments: ev.Arguments,
		})
	case "conversation.item.input_audio_transcription.completed":
		c.appendTurn("user", ev.Transcript)
	case "response.output_audio_transcript.done", "response.audio_transcript.done":
		c.appendTurn("assistant", ev.Transcript)
	case "error":
		if ev.Error != nil {
			c.logger.Warn("realtime server error", zap.String("message", ev.Error.Message))
		}
	}
}

// appendTurn records a completed utterance and emits a full history
// snapshot.
func (c *realtimeChannel) appendTurn(role, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.histMu.Lock()
	c.history = append(c.history, ConversationTurn{Role: role, Text: text})
	turns := make([]ConversationTurn, len(c.history))
	copy(turns, c.history)
	c.histMu.Unlock()

	c.emit(Event{Type: EventHistoryUpdated, Turns: turns})
}

// emit never blocks the read pump for long: if the consumer has gone
// away the event is dropped.
func (c *realtimeChannel) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Debug("dropping realtime event", zap.String("type", string(ev.Type)))
	}
}

package voice

import "context"

// EventType identifies a session event delivered by the channel.
type EventType string

const (
	// EventHistoryUpdated replaces the whole transcript.
	EventHistoryUpdated EventType = "history_updated"
	// EventToolCall asks the manager to run a registered tool.
	EventToolCall EventType = "tool_call"
	// EventToolStart marks the beginning of a tool invocation.
	EventToolStart EventType = "agent_tool_start"
	// EventToolEnd marks the end of a tool invocation.
	EventToolEnd EventType = "agent_tool_end"
	// EventAgentStart marks the start of an agent turn.
	EventAgentStart EventType = "agent_start"
	// EventAgentEnd marks the end of an agent turn.
	EventAgentEnd EventType = "agent_end"
)

// Event is one session event. Fields are populated per type:
// HistoryUpdated carries Turns; ToolCall carries ToolName, CallID and
// Arguments.
type Event struct {
	Type      EventType
	Turns     []ConversationTurn
	ToolName  string
	CallID    string
	Arguments string
}

// SessionConfig binds a session to its persona and callable tools.
type SessionConfig struct {
	Instructions string
	Tools        []Tool
}

// Channel is a live bidirectional realtime connection.
type Channel interface {
	// Configure installs the session instructions and tool
	// declarations. Must be called before any other traffic.
	Configure(ctx context.Context, cfg SessionConfig) error
	// SendText sends a user text message into the session.
	SendText(ctx context.Context, text string) error
	// SendToolResult returns a tool invocation's output to the session.
	SendToolResult(ctx context.Context, callID, output string) error
	// Events delivers session events until the connection closes, at
	// which point the channel is closed.
	Events() <-chan Event
	// Close tears the connection down.
	Close() error
}

// Dialer opens a realtime channel with an ephemeral client secret.
type Dialer interface {
	Dial(ctx context.Context, clientSecret string) (Channel, error)
}

// SecretBroker exchanges the server credential for a client secret.
type SecretBroker interface {
	ClientSecret(ctx context.Context) (string, error)
}

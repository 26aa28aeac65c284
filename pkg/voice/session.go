package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the session connection state.
type State string

const (
	// StateIdle means no session is active.
	StateIdle State = "idle"
	// StateConnecting means the credential exchange is in flight.
	StateConnecting State = "connecting"
	// StateConnected means the bidirectional session is live.
	StateConnected State = "connected"
)

// ErrSessionActive is returned by Connect when a session is already
// connecting or connected.
var ErrSessionActive = errors.New("voice: session already active")

// ConversationTurn is one transcript entry.
type ConversationTurn struct {
	Role    string
	Text    string
	Sources []string
}

// agentInstructions is the persona the session is bound to: answer
// only from the portfolio documents, Hebrew only, admit when the
// information is missing.
const agentInstructions = `
אתה יכול לשאול אותי על מידע לגבי אלדד יקנה, ואני אעזור לך להשיג את המידע מתוך ה-PDFים שיש לי.
אני לא יכול לעזור בשום דבר אחר, רק במידע שנמצא ב-PDF.
תכתוב לי את השאלות שלך, ואני אענה עליהם על פי המידע מה-PDFים.
אם אין לי מידע על שאלה מסוימת, אני אגיד "אין מידע ב-PDF"
אתה מדבר רק בשפה עברית ומי שמדבר איתך מדבר רק בשפה בעברית
תתחיל אתה בהודעה שאתה מציג את עצמך ואומר "שלום, אני הסוכן החכם של אלדד אשמח לתת לך מידע על אלדד".
אתה מעריץ את אלדד מספר על יכולת פתרון בעיות ופיתוח מהיר וחכם
`

// openingMessage is sent immediately after connecting so the agent
// introduces itself without waiting for the user.
const openingMessage = "מי אתה ומה אתה עושה?"

const defaultToolEndDelay = 2 * time.Second

// Manager owns at most one live voice session: connect, stop,
// transcript, and tool dispatch. All methods are safe for concurrent
// use.
type Manager struct {
	broker SecretBroker
	dialer Dialer
	tools  *Registry
	logger *zap.Logger

	toolEndDelay time.Duration

	mu         sync.Mutex
	state      State
	epoch      int
	channel    Channel
	transcript []ConversationTurn
	thinking   bool
	toolActive bool
	toolTimer  *time.Timer
}

// NewManager creates a voice session manager in the idle state.
func NewManager(broker SecretBroker, dialer Dialer, tools *Registry, logger *zap.Logger) *Manager {
	return &Manager{
		broker:       broker,
		dialer:       dialer,
		tools:        tools,
		logger:       logger,
		toolEndDelay: defaultToolEndDelay,
		state:        StateIdle,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transcript returns a copy of the current transcript.
func (m *Manager) Transcript() []ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConversationTurn, len(m.transcript))
	copy(out, m.transcript)
	return out
}

// Thinking reports whether an agent turn is in progress.
func (m *Manager) Thinking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thinking
}

// ToolActive reports whether a tool invocation is visible. It stays
// true for a short delay after the tool ends so rapid sequential tool
// calls do not flicker.
func (m *Manager) ToolActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toolActive
}

// Connect establishes a session: exchanges the credential, opens the
// channel, binds the persona and tool declarations, and sends the
// canned opening message. Valid only from idle;
// any concurrent session attempt gets ErrSessionActive. A failure at
// any step returns the manager to idle.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrSessionActive
	}
	m.state = StateConnecting
	m.epoch++
	myEpoch := m.epoch
	m.mu.Unlock()

	secret, err := m.broker.ClientSecret(ctx)
	if err != nil {
		m.abandonConnect(myEpoch)
		return fmt.Errorf("voice: get client secret: %w", err)
	}

	ch, err := m.dialer.Dial(ctx, secret)
	if err != nil {
		m.abandonConnect(myEpoch)
		return fmt.Errorf("voice: open realtime channel: %w", err)
	}

	// Bind the persona and the callable tools before any traffic.
	sessionCfg := SessionConfig{
		Instructions: agentInstructions,
		Tools:        m.tools.Tools(),
	}
	if err := ch.Configure(ctx, sessionCfg); err != nil {
		_ = ch.Close()
		m.abandonConnect(myEpoch)
		return fmt.Errorf("voice: configure session: %w", err)
	}

	m.mu.Lock()
	if m.epoch != myEpoch || m.state != StateConnecting {
		// Stopped while connecting.
		m.mu.Unlock()
		_ = ch.Close()
		return ErrSessionActive
	}
	m.state = StateConnected
	m.channel = ch
	m.mu.Unlock()

	go m.consume(ch, myEpoch)

	if err := ch.SendText(ctx, openingMessage); err != nil {
		m.logger.Warn("Failed to send opening message", zap.Error(err))
	}
	return nil
}

// Stop tears the session down: closes the channel, clears the
// transcript and tool state, and returns to idle. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}
	m.epoch++
	ch := m.channel
	m.reset()
	m.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
}

// abandonConnect rolls a failed Connect back to idle, unless Stop (or
// a later Connect) already moved the epoch on.
func (m *Manager) abandonConnect(epoch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch == epoch {
		m.reset()
	}
}

// reset clears session state. Caller holds the lock.
func (m *Manager) reset() {
	m.state = StateIdle
	m.channel = nil
	m.transcript = nil
	m.thinking = false
	m.toolActive = false
	if m.toolTimer != nil {
		m.toolTimer.Stop()
		m.toolTimer = nil
	}
}

// consume processes channel events until the channel closes. Events
// from a stopped session (stale epoch) are dropped.
func (m *Manager) consume(ch Channel, epoch int) {
	for ev := range ch.Events() {
		m.handleEvent(ch, epoch, ev)
	}

	// Connection loss returns the manager to idle.
	m.mu.Lock()
	if m.epoch == epoch {
		m.reset()
	}
	m.mu.Unlock()
}

func (m *Manager) handleEvent(ch Channel, epoch int, ev Event) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}

	switch ev.Type {
	case EventHistoryUpdated:
		m.transcript = ev.Turns
		m.mu.Unlock()
	case EventAgentStart:
		m.thinking = true
		m.mu.Unlock()
	case EventAgentEnd:
		m.thinking = false
		m.mu.Unlock()
	case EventToolStart:
		m.toolActive = true
		if m.toolTimer != nil {
			m.toolTimer.Stop()
			m.toolTimer = nil
		}
		m.mu.Unlock()
	case EventToolEnd:
		m.scheduleToolClear(epoch)
		m.mu.Unlock()
	case EventToolCall:
		m.mu.Unlock()
		// Off the consume goroutine: a slow tool must not stall
		// delivery of the events behind it.
		go m.dispatchTool(ch, epoch, ev)
	default:
		m.mu.Unlock()
	}
}

// scheduleToolClear debounces the tool indicator. Caller holds the lock.
func (m *Manager) scheduleToolClear(epoch int) {
	if m.toolTimer != nil {
		m.toolTimer.Stop()
	}
	m.toolTimer = time.AfterFunc(m.toolEndDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch == epoch {
			m.toolActive = false
			m.toolTimer = nil
		}
	})
}

// dispatchTool runs a registered tool and returns its output to the
// session. A tool failure is reported back to the model rather than
// swallowed.
func (m *Manager) dispatchTool(ch Channel, epoch int, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	output, err := m.tools.Invoke(ctx, ev.ToolName, ev.Arguments)
	if err != nil {
		m.logger.Warn("Tool invocation failed",
			zap.String("tool", ev.ToolName), zap.Error(err))
		output = fmt.Sprintf(`{"error":%q}`, err.Error())
	}

	m.mu.Lock()
	stale := m.epoch != epoch
	m.mu.Unlock()
	if stale {
		return
	}

	if err := ch.SendToolResult(ctx, ev.CallID, output); err != nil {
		m.logger.Warn("Failed to send tool result",
			zap.String("tool", ev.ToolName), zap.Error(err))
	}
}

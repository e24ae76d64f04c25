package session

import "sync"

// ToolCall is a model-requested invocation of a named tool. The ID is opaque
// and assigned by the model backend; Name is the registry lookup key.
type ToolCall struct {
	ToolCallID string                 `json:"tool_call_id"`
	Name       string                 `json:"name"`
	Args       map[string]interface{} `json:"args"`
}

// Message is one transcript entry. Assistant messages may carry requested
// ToolCalls; tool messages carry exactly one ToolCall identifying the call
// the Content is the result of.
type Message struct {
	Role      string     `json:"role"` // "system", "user", "assistant", "tool"
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Session is the unit of conversation state: a growing transcript, at most
// one batch of tool calls awaiting a human decision, and an opaque handle to
// an approval prompt a frontend may want to retract later.
//
// Sessions are single-writer by contract; the agent serialises turns per
// session ID. The internal mutex only protects the struct against frontends
// reading prompt state while a turn is in flight.
type Session struct {
	mu           sync.Mutex
	ID           string
	Messages     []Message
	pending      []ToolCall
	promptHandle string
}

// New creates an empty session seeded with a system prompt, unless the
// prompt is empty.
func New(id, systemPrompt string) *Session {
	s := &Session{ID: id}
	if systemPrompt != "" {
		s.Messages = append(s.Messages, Message{Role: "system", Content: systemPrompt})
	}
	return s
}

// AddMessage appends a message to the transcript.
func (s *Session) AddMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msg)
}

// Transcript returns a copy of the message history.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Message, len(s.Messages))
	copy(cp, s.Messages)
	return cp
}

// SetPending stores a batch of tool calls awaiting a decision. The agent
// never sets a new batch while one is outstanding.
func (s *Session) SetPending(calls []ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = calls
}

// TakePending returns the outstanding batch and clears it.
func (s *Session) TakePending() []ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := s.pending
	s.pending = nil
	return calls
}

// HasPending reports whether a batch is awaiting a decision.
func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// SetPromptHandle records a frontend-owned reference to the outstanding
// approval prompt (e.g. a Slack message timestamp).
func (s *Session) SetPromptHandle(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptHandle = handle
}

// TakePromptHandle returns the outstanding prompt handle and clears it.
func (s *Session) TakePromptHandle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.promptHandle
	s.promptHandle = ""
	return h
}

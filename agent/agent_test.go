package agent

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehmz/agentic-office-manager/config"
	"github.com/kavehmz/agentic-office-manager/errors"
	"github.com/kavehmz/agentic-office-manager/llm"
	"github.com/kavehmz/agentic-office-manager/session"
	"github.com/kavehmz/agentic-office-manager/tools"
)

// scriptedClient replays a fixed sequence of assistant replies, failing when
// the script runs out or when a scripted error is reached.
type scriptedClient struct {
	replies []*session.Message
	next    int
	failAt  int // 1-based invocation index that errors; 0 disables
}

func (c *scriptedClient) Chat(_ context.Context, _ []session.Message, _ []tools.Tool) (*session.Message, error) {
	c.next++
	if c.failAt != 0 && c.next == c.failAt {
		return nil, errors.New("model unavailable")
	}
	if c.next > len(c.replies) {
		return nil, errors.New("scripted client exhausted after %d replies", len(c.replies))
	}
	return c.replies[c.next-1], nil
}

// countingTool records how often it executes.
type countingTool struct {
	name    string
	invoked int
	result  string
}

func (c *countingTool) Name() string        { return c.name }
func (c *countingTool) Description() string { return "counting test tool" }

func (c *countingTool) Execute(_ context.Context, _ map[string]interface{}, _ tools.Params) (string, error) {
	c.invoked++
	return c.result, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{
		TrustedParams: map[string]interface{}{"age": 2},
		Toolsets: []config.Toolset{
			{Name: "default", Tools: []string{"*"}},
		},
	}
	return cfg
}

func newTestAgent(t *testing.T, client llm.Client, register func(*tools.Registry)) *Agent {
	t.Helper()
	cfg := testConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := tools.NewRegistry(cfg, log)
	if register != nil {
		register(registry)
	}

	store, err := session.NewStore(16, "You are the office manager, a helpful assistant.")
	require.NoError(t, err)

	a, err := New(cfg, client, registry, store, log, "default")
	require.NoError(t, err)
	return a
}

func assistantReply(text string, calls ...session.ToolCall) *session.Message {
	return &session.Message{Role: "assistant", Content: text, ToolCalls: calls}
}

func TestFinalAnswerWithoutTools(t *testing.T) {
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("Hello there."),
	}}
	a := newTestAgent(t, client, nil)

	outcome, err := a.SubmitMessage(context.Background(), "conv", "hi")
	require.NoError(t, err)
	assert.False(t, outcome.NeedsApproval())
	assert.Equal(t, "Hello there.", outcome.Text)
}

func TestAutoExecutedToolLoop(t *testing.T) {
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("", session.ToolCall{
			ToolCallID: "call_1",
			Name:       "to_upper",
			Args:       map[string]interface{}{"input_text": "foo"},
		}),
		assistantReply("The upper case version is FOO."),
	}}
	a := newTestAgent(t, client, nil)

	outcome, err := a.SubmitMessage(context.Background(), "conv", "convert foo to upper case")
	require.NoError(t, err)
	assert.False(t, outcome.NeedsApproval())
	assert.Equal(t, "The upper case version is FOO.", outcome.Text)

	// The tool result was appended between the two model invocations.
	sess, err := a.store.Get("conv")
	require.NoError(t, err)
	transcript := sess.Transcript()
	var toolResults []session.Message
	for _, msg := range transcript {
		if msg.Role == "tool" {
			toolResults = append(toolResults, msg)
		}
	}
	require.Len(t, toolResults, 1)
	assert.Equal(t, "FOO", toolResults[0].Content)
	assert.Equal(t, "call_1", toolResults[0].ToolCalls[0].ToolCallID)
}

func TestSensitiveToolPausesWithoutExecuting(t *testing.T) {
	sensitive := &countingTool{name: "launch_audit", result: "done"}
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("I need to run an audit.", session.ToolCall{
			ToolCallID: "call_1",
			Name:       "launch_audit",
			Args:       map[string]interface{}{"scope": "all"},
		}),
	}}
	a := newTestAgent(t, client, func(r *tools.Registry) {
		r.Register(sensitive, true)
	})

	outcome, err := a.SubmitMessage(context.Background(), "conv", "audit everything")
	require.NoError(t, err)
	require.True(t, outcome.NeedsApproval())
	assert.Equal(t, "I need to run an audit.", outcome.Text)
	require.Len(t, outcome.PendingCalls, 1)
	assert.Equal(t, "launch_audit", outcome.PendingCalls[0].Name)
	assert.Equal(t, 0, sensitive.invoked)

	sess, err := a.store.Get("conv")
	require.NoError(t, err)
	assert.True(t, sess.HasPending())
}

func TestAllOrNothingBatching(t *testing.T) {
	sensitive := &countingTool{name: "launch_audit", result: "done"}
	harmless := &countingTool{name: "fetch_weather", result: "sunny"}
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("",
			session.ToolCall{ToolCallID: "call_1", Name: "fetch_weather", Args: map[string]interface{}{}},
			session.ToolCall{ToolCallID: "call_2", Name: "launch_audit", Args: map[string]interface{}{}},
		),
	}}
	a := newTestAgent(t, client, func(r *tools.Registry) {
		r.Register(sensitive, true)
		r.Register(harmless, false)
	})

	outcome, err := a.SubmitMessage(context.Background(), "conv", "weather and audit please")
	require.NoError(t, err)
	require.True(t, outcome.NeedsApproval())

	// One sensitive call withholds the whole batch, harmless calls included.
	assert.Len(t, outcome.PendingCalls, 2)
	assert.Equal(t, 0, sensitive.invoked)
	assert.Equal(t, 0, harmless.invoked)
}

func TestRejectionFeedsRefusalToModel(t *testing.T) {
	sensitive := &countingTool{name: "launch_audit", result: "done"}
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("", session.ToolCall{
			ToolCallID: "call_1",
			Name:       "launch_audit",
			Args:       map[string]interface{}{},
		}),
		assistantReply("Understood, I will not run the audit."),
	}}
	a := newTestAgent(t, client, func(r *tools.Registry) {
		r.Register(sensitive, true)
	})

	_, err := a.SubmitMessage(context.Background(), "conv", "audit everything")
	require.NoError(t, err)

	outcome, err := a.SubmitDecision(context.Background(), "conv", false)
	require.NoError(t, err)
	assert.False(t, outcome.NeedsApproval())
	assert.Equal(t, "Understood, I will not run the audit.", outcome.Text)
	assert.Equal(t, 0, sensitive.invoked)

	sess, err := a.store.Get("conv")
	require.NoError(t, err)
	var refusals int
	for _, msg := range sess.Transcript() {
		if msg.Role == "tool" && msg.Content == rejectionNotice {
			refusals++
		}
	}
	assert.Equal(t, 1, refusals)
	assert.False(t, sess.HasPending())
}

func TestApprovalExecutesExactlyOnce(t *testing.T) {
	sensitive := &countingTool{name: "launch_audit", result: "audit complete"}
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("", session.ToolCall{
			ToolCallID: "call_1",
			Name:       "launch_audit",
			Args:       map[string]interface{}{},
		}),
		assistantReply("The audit finished: audit complete."),
	}}
	a := newTestAgent(t, client, func(r *tools.Registry) {
		r.Register(sensitive, true)
	})

	_, err := a.SubmitMessage(context.Background(), "conv", "audit everything")
	require.NoError(t, err)

	outcome, err := a.SubmitDecision(context.Background(), "conv", true)
	require.NoError(t, err)
	assert.Equal(t, 1, sensitive.invoked)
	assert.Equal(t, "The audit finished: audit complete.", outcome.Text)

	sess, err := a.store.Get("conv")
	require.NoError(t, err)
	var results []string
	for _, msg := range sess.Transcript() {
		if msg.Role == "tool" {
			results = append(results, msg.Content)
		}
	}
	assert.Equal(t, []string{"audit complete"}, results)
}

func TestMessageWhilePendingIsRejected(t *testing.T) {
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("", session.ToolCall{
			ToolCallID: "call_1",
			Name:       "random_string",
			Args:       map[string]interface{}{"random_number": float64(7)},
		}),
	}}
	a := newTestAgent(t, client, nil)

	_, err := a.SubmitMessage(context.Background(), "conv", "random string please")
	require.NoError(t, err)

	_, err = a.SubmitMessage(context.Background(), "conv", "actually, what time is it?")
	assert.True(t, errors.Is(err, ErrApprovalPending))
}

func TestDecisionWithoutPendingIsRejected(t *testing.T) {
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("Hello."),
	}}
	a := newTestAgent(t, client, nil)

	_, err := a.SubmitMessage(context.Background(), "conv", "hi")
	require.NoError(t, err)

	_, err = a.SubmitDecision(context.Background(), "conv", true)
	assert.True(t, errors.Is(err, ErrNoPendingApproval))
}

func TestDecisionForUnknownConversationFails(t *testing.T) {
	a := newTestAgent(t, &scriptedClient{}, nil)

	_, err := a.SubmitDecision(context.Background(), "never-seen", true)
	assert.True(t, errors.Is(err, session.ErrNotFound))
}

func TestGatewayFailureKeepsTranscript(t *testing.T) {
	client := &scriptedClient{failAt: 1}
	a := newTestAgent(t, client, nil)

	_, err := a.SubmitMessage(context.Background(), "conv", "hi")
	require.Error(t, err)

	// No rollback: the user message survives the failed turn.
	sess, serr := a.store.Get("conv")
	require.NoError(t, serr)
	transcript := sess.Transcript()
	require.NotEmpty(t, transcript)
	last := transcript[len(transcript)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "hi", last.Content)
}

func TestUnknownToolFailsLoudly(t *testing.T) {
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("", session.ToolCall{
			ToolCallID: "call_1",
			Name:       "no_such_tool",
			Args:       map[string]interface{}{},
		}),
	}}
	a := newTestAgent(t, client, nil)

	_, err := a.SubmitMessage(context.Background(), "conv", "hi")
	assert.True(t, errors.Is(err, tools.ErrUnknownTool))
}

func TestSessionIsolation(t *testing.T) {
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("Answer for A."),
		assistantReply("Answer for B."),
	}}
	a := newTestAgent(t, client, nil)

	_, err := a.SubmitMessage(context.Background(), "conv-a", "message from A")
	require.NoError(t, err)
	_, err = a.SubmitMessage(context.Background(), "conv-b", "message from B")
	require.NoError(t, err)

	sessA, err := a.store.Get("conv-a")
	require.NoError(t, err)
	sessB, err := a.store.Get("conv-b")
	require.NoError(t, err)

	for _, msg := range sessA.Transcript() {
		assert.NotContains(t, msg.Content, "B.")
		assert.NotEqual(t, "message from B", msg.Content)
	}
	assert.False(t, sessA.HasPending())
	assert.NotEqual(t, len(sessA.Transcript()), 0)
	assert.NotEqual(t, sessA, sessB)
}

func TestScenarioRandomStringRejectThenApprove(t *testing.T) {
	// Reject in one conversation, approve in another; the builtin
	// random_string runs only on the approved path.
	client := &scriptedClient{replies: []*session.Message{
		assistantReply("", session.ToolCall{
			ToolCallID: "call_1",
			Name:       "random_string",
			Args:       map[string]interface{}{"random_number": float64(42)},
		}),
		assistantReply("Okay, no random string then."),
	}}
	a := newTestAgent(t, client, nil)

	outcome, err := a.SubmitMessage(context.Background(), "conv", "give me a random string")
	require.NoError(t, err)
	require.True(t, outcome.NeedsApproval())
	require.Len(t, outcome.PendingCalls, 1)
	assert.Equal(t, "random_string", outcome.PendingCalls[0].Name)

	outcome, err = a.SubmitDecision(context.Background(), "conv", false)
	require.NoError(t, err)
	assert.Equal(t, "Okay, no random string then.", outcome.Text)

	// Approved run: the generated value lands in the transcript and the
	// trusted "age" parameter doubles the output length.
	client2 := &scriptedClient{replies: []*session.Message{
		assistantReply("", session.ToolCall{
			ToolCallID: "call_1",
			Name:       "random_string",
			Args:       map[string]interface{}{"random_number": float64(42)},
		}),
		assistantReply("Here is your random string."),
	}}
	a2 := newTestAgent(t, client2, nil)

	_, err = a2.SubmitMessage(context.Background(), "conv", "give me a random string")
	require.NoError(t, err)
	outcome, err = a2.SubmitDecision(context.Background(), "conv", true)
	require.NoError(t, err)
	assert.Equal(t, "Here is your random string.", outcome.Text)

	sess, err := a2.store.Get("conv")
	require.NoError(t, err)
	var generated string
	for _, msg := range sess.Transcript() {
		if msg.Role == "tool" {
			generated = msg.Content
		}
	}
	assert.Len(t, generated, 16)
}

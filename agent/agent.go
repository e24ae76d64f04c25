package agent

import (
	"context"
	"log/slog"

	"github.com/kavehmz/agentic-office-manager/config"
	"github.com/kavehmz/agentic-office-manager/errors"
	"github.com/kavehmz/agentic-office-manager/llm"
	"github.com/kavehmz/agentic-office-manager/session"
	"github.com/kavehmz/agentic-office-manager/tools"
)

var (
	// ErrApprovalPending is returned by SubmitMessage while a tool batch is
	// awaiting a decision for the conversation.
	ErrApprovalPending = errors.Sentinel("agent: a pending approval must be resolved first")

	// ErrNoPendingApproval is returned by SubmitDecision when the
	// conversation has no outstanding batch.
	ErrNoPendingApproval = errors.Sentinel("agent: no pending approval to resolve")
)

// rejectionNotice is the tool-result content synthesized for every call in a
// rejected batch, so the model can adapt instead of waiting forever.
const rejectionNotice = "User rejected your request to run the function. Consider our options or discuss the matter with the user."

// PendingCall describes one withheld tool call, presented to the human so
// they can decide on the complete action set.
type PendingCall struct {
	Name string
	Args map[string]interface{}
}

// Outcome is the result of one turn: either a final assistant answer, or a
// batch of tool calls withheld for approval. Text carries the final answer,
// or the assistant's preamble when approval is needed.
type Outcome struct {
	Text         string
	PendingCalls []PendingCall
}

// NeedsApproval reports whether the turn paused on a withheld batch.
func (o *Outcome) NeedsApproval() bool {
	return len(o.PendingCalls) > 0
}

// Agent drives conversations through the model/tool loop, pausing whenever
// the model requests a tool that needs human approval. One Agent serves all
// conversations; per-conversation turns are serialised by the locker.
type Agent struct {
	client   llm.Client
	registry *tools.Registry
	store    *session.Store
	locker   *session.Locker
	active   []tools.Tool
	logger   *slog.Logger
}

// New creates an agent offering the tools selected by the named toolset.
func New(cfg *config.Config, client llm.Client, registry *tools.Registry, store *session.Store, logger *slog.Logger, toolset string) (*Agent, error) {
	active, err := registry.ActiveTools(cfg.GetToolset(toolset))
	if err != nil {
		return nil, err
	}
	return &Agent{
		client:   client,
		registry: registry,
		store:    store,
		locker:   session.NewLocker(),
		active:   active,
		logger:   logger,
	}, nil
}

// Store exposes the conversation store to frontends that need to inspect
// conversation existence or prompt handles.
func (a *Agent) Store() *session.Store {
	return a.store
}

// SubmitMessage runs one turn for fresh user text. The conversation is
// created on first contact. It is an error to submit text while a batch is
// awaiting a decision; the caller must resolve it first.
func (a *Agent) SubmitMessage(ctx context.Context, conversationID, text string) (*Outcome, error) {
	sess := a.store.GetOrCreate(conversationID)

	unlock, err := a.locker.Lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if sess.HasPending() {
		return nil, errors.Wrapf(ErrApprovalPending, "conversation '%s'", conversationID)
	}

	a.logger.Info("processing message", "conversation", conversationID)
	sess.AddMessage(session.Message{Role: "user", Content: text})
	return a.drive(ctx, sess)
}

// SubmitDecision resolves the outstanding batch for an existing
// conversation. Approved batches execute every held call; rejected batches
// synthesize a refusal result per call. Either way the model loop continues
// so the model can respond to the results.
func (a *Agent) SubmitDecision(ctx context.Context, conversationID string, approved bool) (*Outcome, error) {
	sess, err := a.store.Get(conversationID)
	if err != nil {
		return nil, err
	}

	unlock, err := a.locker.Lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !sess.HasPending() {
		return nil, errors.Wrapf(ErrNoPendingApproval, "conversation '%s'", conversationID)
	}

	a.logger.Info("processing decision", "conversation", conversationID, "approved", approved)

	calls := sess.TakePending()
	for _, call := range calls {
		content := rejectionNotice
		if approved {
			content, err = a.registry.Execute(ctx, call.Name, call.Args)
			if err != nil {
				return nil, errors.Wrapf(err, "tool '%s' failed", call.Name)
			}
		}
		sess.AddMessage(session.Message{
			Role:      "tool",
			Content:   content,
			ToolCalls: []session.ToolCall{call},
		})
	}

	return a.drive(ctx, sess)
}

// drive runs the model/tool loop until the model produces a final answer or
// requests a batch containing a sensitive tool. Model and tool failures
// abort the turn; the transcript keeps whatever was appended before the
// failure.
func (a *Agent) drive(ctx context.Context, sess *session.Session) (*Outcome, error) {
	for {
		reply, err := a.client.Chat(ctx, sess.Transcript(), a.active)
		if err != nil {
			return nil, errors.Wrapf(err, "model invocation failed")
		}
		sess.AddMessage(*reply)

		if len(reply.ToolCalls) == 0 {
			a.logger.Info("turn complete", "conversation", sess.ID)
			return &Outcome{Text: reply.Content}, nil
		}

		// A single sensitive call blocks the whole batch: nothing executes
		// until a decision arrives, including the harmless calls beside it.
		if a.batchNeedsApproval(reply.ToolCalls) {
			sess.SetPending(reply.ToolCalls)
			pending := make([]PendingCall, len(reply.ToolCalls))
			for i, tc := range reply.ToolCalls {
				pending[i] = PendingCall{Name: tc.Name, Args: tc.Args}
			}
			a.logger.Info("approval required", "conversation", sess.ID, "calls", len(pending))
			return &Outcome{Text: reply.Content, PendingCalls: pending}, nil
		}

		for _, call := range reply.ToolCalls {
			result, err := a.registry.Execute(ctx, call.Name, call.Args)
			if err != nil {
				return nil, errors.Wrapf(err, "tool '%s' failed", call.Name)
			}
			sess.AddMessage(session.Message{
				Role:      "tool",
				Content:   result,
				ToolCalls: []session.ToolCall{call},
			})
		}
	}
}

func (a *Agent) batchNeedsApproval(calls []session.ToolCall) bool {
	for _, call := range calls {
		if a.registry.RequiresApproval(call.Name) {
			return true
		}
	}
	return false
}

// Package slackbot is the Slack frontend for the agent. It listens over
// Socket Mode, maps channel+thread pairs to conversations, renders withheld
// tool batches as Approve/Cancel buttons and feeds button clicks back into
// the agent as decisions.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/kavehmz/agentic-office-manager/agent"
)

const (
	actionApprove = "approve_function"
	actionCancel  = "cancel_function"
)

// Bot connects one Slack workspace to the agent.
type Bot struct {
	botToken  string
	appToken  string
	api       *slack.Client
	sock      *socketmode.Client
	agent     *agent.Agent
	logger    *slog.Logger
	botUserID string
	ctx       context.Context
}

// New creates a Bot. Run must be called to start it.
func New(botToken, appToken string, a *agent.Agent, logger *slog.Logger) *Bot {
	return &Bot{
		botToken: botToken,
		appToken: appToken,
		agent:    a,
		logger:   logger,
	}
}

// Run connects to Slack and processes events until the context is
// cancelled or the socket fails.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.api = slack.New(b.botToken, slack.OptionAppLevelToken(b.appToken))
	b.sock = socketmode.New(b.api)

	// The bot user ID drives mention detection.
	authResp, err := b.api.AuthTest()
	if err != nil {
		return err
	}
	b.botUserID = authResp.UserID
	b.logger.Info("slack bot started", "bot_user_id", b.botUserID)

	go b.eventLoop()
	return b.sock.RunContext(ctx)
}

func (b *Bot) eventLoop() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case evt := <-b.sock.Events:
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				b.sock.Ack(*evt.Request)
				if ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
					b.handleMessage(ev)
				}
			case socketmode.EventTypeInteractive:
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				b.sock.Ack(*evt.Request)
				b.handleAction(callback)
			}
		}
	}
}

// conversationID derives the store key from a channel and thread.
func conversationID(channel, threadTS string) string {
	return channel + "::" + threadTS
}

func (b *Bot) handleMessage(ev *slackevents.MessageEvent) {
	// Ignore our own and other bots' messages.
	if ev.User == "" || ev.User == b.botUserID || ev.BotID != "" {
		return
	}

	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}
	convID := conversationID(ev.Channel, threadTS)

	isMention := strings.Contains(ev.Text, "<@"+b.botUserID+">")

	// Top-level channel messages must mention the bot; thread replies only
	// continue conversations we already know about.
	if ev.ThreadTimeStamp == "" && !isMention {
		return
	}
	if ev.ThreadTimeStamp != "" && !b.agent.Store().Contains(convID) {
		b.logger.Debug("ignoring unrelated thread", "conversation", convID)
		return
	}

	text := ev.Text
	if isMention {
		text = strings.TrimSpace(strings.ReplaceAll(text, "<@"+b.botUserID+">", ""))
	}

	b.logger.Info("processing slack message", "conversation", convID)

	// New text supersedes an outstanding approval prompt: retract the
	// prompt and reject the withheld batch before submitting the message,
	// so the engine's one-pending-batch invariant holds.
	if sess, err := b.agent.Store().Get(convID); err == nil && sess.HasPending() {
		b.retractPrompt(ev.Channel, sess.TakePromptHandle())
		outcome, err := b.agent.SubmitDecision(b.ctx, convID, false)
		b.deliver(convID, ev.Channel, threadTS, outcome, err)
		if err != nil || outcome.NeedsApproval() {
			return
		}
	}

	outcome, err := b.agent.SubmitMessage(b.ctx, convID, text)
	b.deliver(convID, ev.Channel, threadTS, outcome, err)
}

func (b *Bot) handleAction(callback slack.InteractionCallback) {
	if len(callback.ActionCallback.BlockActions) == 0 {
		return
	}
	action := callback.ActionCallback.BlockActions[0]
	if action.ActionID != actionApprove && action.ActionID != actionCancel {
		return
	}

	approved := action.ActionID == actionApprove
	convID := action.Value
	channel := callback.Channel.ID
	threadTS := callback.Message.ThreadTimestamp
	if threadTS == "" {
		threadTS = callback.Message.Timestamp
	}

	b.logger.Info("approval decision received", "conversation", convID, "approved", approved)

	// Replace the button prompt with a status banner.
	banner := ":x: *Function Cancelled*"
	summary := "Function Cancelled"
	if approved {
		banner = ":white_check_mark: *Function Approved and Executed*"
		summary = "Function Approved and Executed"
	}
	b.updatePrompt(channel, callback.Message.Timestamp, banner, summary)

	if sess, err := b.agent.Store().Get(convID); err == nil {
		sess.TakePromptHandle()
	}

	outcome, err := b.agent.SubmitDecision(b.ctx, convID, approved)
	b.deliver(convID, channel, threadTS, outcome, err)
}

// deliver posts a turn's outcome into the thread: an error notice, an
// approval prompt with buttons, or the final answer.
func (b *Bot) deliver(convID, channel, threadTS string, outcome *agent.Outcome, err error) {
	if err != nil {
		b.logger.Error("turn failed", "conversation", convID, "error", err)
		b.post(channel, threadTS, fmt.Sprintf("Sorry, I encountered an error: %v", err))
		return
	}

	if outcome.NeedsApproval() {
		b.postApprovalPrompt(convID, channel, threadTS, outcome)
		return
	}

	text := outcome.Text
	if text == "" {
		text = "Processing your request..."
	}
	b.post(channel, threadTS, text)
}

func (b *Bot) post(channel, threadTS, text string) {
	_, _, err := b.api.PostMessage(channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		b.logger.Error("failed to post message", "channel", channel, "error", err)
	}
}

// postApprovalPrompt renders the withheld batch as Block Kit sections with
// Approve/Cancel buttons and records the prompt's timestamp on the session
// so it can be retracted or updated later.
func (b *Bot) postApprovalPrompt(convID, channel, threadTS string, outcome *agent.Outcome) {
	blocks := ApprovalBlocks(convID, outcome)

	_, ts, err := b.api.PostMessage(channel,
		slack.MsgOptionText("Approval Required: "+outcome.Text, false),
		slack.MsgOptionTS(threadTS),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		b.logger.Error("failed to post approval prompt", "conversation", convID, "error", err)
		return
	}

	if sess, serr := b.agent.Store().Get(convID); serr == nil {
		sess.SetPromptHandle(ts)
	}
}

// retractPrompt marks a superseded approval prompt as cancelled.
func (b *Bot) retractPrompt(channel, promptTS string) {
	if promptTS == "" {
		return
	}
	b.updatePrompt(channel, promptTS, ":x: *Function Cancelled*", "Function Cancelled")
}

func (b *Bot) updatePrompt(channel, ts, banner, summary string) {
	_, _, _, err := b.api.UpdateMessage(channel, ts,
		slack.MsgOptionText(summary, false),
		slack.MsgOptionBlocks(
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, banner, false, false),
				nil, nil,
			),
		),
	)
	if err != nil {
		b.logger.Error("failed to update approval prompt", "channel", channel, "error", err)
	}
}

// ApprovalBlocks builds the Block Kit layout for a withheld batch: the
// assistant's preamble, one section per tool call and the decision buttons.
// The conversation ID travels in the button values so the click can be
// routed back to the right conversation.
func ApprovalBlocks(convID string, outcome *agent.Outcome) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				"*Approval Required*\n"+outcome.Text, false, false),
			nil, nil,
		),
	}

	for _, call := range outcome.PendingCalls {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Function:* %s\n*Arguments:* ```%v```", call.Name, call.Args),
				false, false),
			nil, nil,
		))
	}

	approve := slack.NewButtonBlockElement(actionApprove, convID,
		slack.NewTextBlockObject(slack.PlainTextType, "Approve", false, false))
	approve.Style = slack.StylePrimary
	cancel := slack.NewButtonBlockElement(actionCancel, convID,
		slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false))
	cancel.Style = slack.StyleDanger

	return append(blocks, slack.NewActionBlock("approval_actions", approve, cancel))
}

// Package agent provides the turn-processing core of the office manager.
//
// This package contains the state machine shared by the interaction
// frontends (terminal CLI and Slack bot): it drives a conversation from user
// input, through zero or more model-requested tool invocations, to a final
// natural-language response, pausing deterministically whenever a tool that
// requires human approval is requested.
//
// # Operations
//
// The agent exposes two entry points that drive the same internal loop:
//
//   - SubmitMessage: runs a turn for fresh user text. Fails with
//     ErrApprovalPending if a tool batch is still awaiting a decision.
//   - SubmitDecision: resolves an outstanding batch with a human
//     approve/reject decision and continues the loop so the model can react
//     to the results. Fails with ErrNoPendingApproval when there is nothing
//     to resolve.
//
// Both return an Outcome: either a final answer, or the set of withheld
// tool calls a frontend must present to the human.
//
// # Approval gating
//
// Gating is all-or-nothing: if any call in a requested batch belongs to a
// tool registered as needing approval, no call in that batch executes until
// a decision arrives. Rejection feeds a refusal result back to the model
// for every held call; approval executes each call exactly once.
//
// # Concurrency
//
// Turns for the same conversation are serialised by a per-conversation
// lock; turns for distinct conversations run in parallel. Model and tool
// invocations are synchronous suspension points; cancellation is propagated
// through the caller-supplied context.
package agent

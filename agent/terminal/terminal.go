package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kavehmz/agentic-office-manager/agent"
)

// conversationID tags the single conversation a terminal session drives.
const conversationID = "cli_session"

// Terminal is the interactive command-line frontend. Input and output are
// injected so tests can script a session.
type Terminal struct {
	agent *agent.Agent
	in    *bufio.Scanner
	out   io.Writer
}

// New creates a Terminal reading from in and writing to out.
func New(a *agent.Agent, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		agent: a,
		in:    bufio.NewScanner(in),
		out:   out,
	}
}

// Run starts the interactive loop. It returns when the input stream ends or
// the user types an exit command.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	fmt.Fprintln(t.out, "Welcome to the Office Manager CLI!")
	fmt.Fprintln(t.out, "Type 'exit' or 'quit' to end the session, 'help' for available commands.")

	if initialPrompt != "" {
		if err := t.processTurn(ctx, initialPrompt); err != nil {
			return err
		}
	}

	for {
		fmt.Fprint(t.out, "\n> ")
		if !t.in.Scan() {
			break
		}

		input := strings.TrimSpace(t.in.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(t.out, "Goodbye!")
			return nil
		case "help":
			t.printHelp()
			continue
		}

		if err := t.processTurn(ctx, input); err != nil {
			fmt.Fprintf(t.out, "\nError: %v\n", err)
		}
	}

	return t.in.Err()
}

// processTurn submits one message and walks any approval prompts the turn
// produces until a final answer arrives.
func (t *Terminal) processTurn(ctx context.Context, input string) error {
	outcome, err := t.agent.SubmitMessage(ctx, conversationID, input)
	if err != nil {
		return err
	}

	// A decision can itself lead to a new withheld batch, so keep asking.
	for outcome.NeedsApproval() {
		outcome, err = t.resolveApproval(ctx, outcome)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(t.out, "\n%s\n", outcome.Text)
	return nil
}

// resolveApproval renders the withheld calls, reads a y/n answer and feeds
// the decision back to the agent.
func (t *Terminal) resolveApproval(ctx context.Context, outcome *agent.Outcome) (*agent.Outcome, error) {
	fmt.Fprintln(t.out, "\nApproval Required:")
	if outcome.Text != "" {
		fmt.Fprintln(t.out, outcome.Text)
	}
	fmt.Fprintln(t.out, "\nTool Calls:")
	for _, call := range outcome.PendingCalls {
		fmt.Fprintf(t.out, "\nFunction: %s\n", call.Name)
		fmt.Fprintf(t.out, "Arguments: %v\n", call.Args)
	}

	approved, err := t.askYesNo()
	if err != nil {
		return nil, err
	}

	return t.agent.SubmitDecision(ctx, conversationID, approved)
}

func (t *Terminal) askYesNo() (bool, error) {
	for {
		fmt.Fprint(t.out, "\nDo you approve this action? (y/n): ")
		if !t.in.Scan() {
			if err := t.in.Err(); err != nil {
				return false, err
			}
			// Input ended mid-prompt; treat as a rejection.
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(t.in.Text())) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
		fmt.Fprintln(t.out, "Please enter 'y' for yes or 'n' for no.")
	}
}

func (t *Terminal) printHelp() {
	fmt.Fprintln(t.out, "\nAvailable Commands:")
	fmt.Fprintln(t.out, "- help: Show this help message")
	fmt.Fprintln(t.out, "- exit/quit: End the session")
	fmt.Fprintln(t.out, "- Any other input will be processed by the AI assistant")
}

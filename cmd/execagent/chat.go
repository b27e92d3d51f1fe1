package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/martinemde/execagent/action"
	"github.com/martinemde/execagent/agent"
	"github.com/martinemde/execagent/runner"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	stderrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func runChat(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	a, err := setup(ctx, opts, appDeps{onLine: printLine(out)})
	if err != nil {
		return err
	}
	defer a.Close()

	c := &chat{
		app:       a,
		in:        in,
		out:       out,
		confirmer: agent.ConfirmFunc(confirmWithForm),
	}
	return c.run(ctx, opts.sessionID)
}

// chat is the interactive read-send-print loop.
type chat struct {
	app       *app
	in        io.Reader
	out       io.Writer
	confirmer agent.Confirmer
}

func (c *chat) open(ctx context.Context, id string) (*agent.Session, error) {
	extra := []agent.Option{
		agent.WithDisplay(agent.DisplayFunc(c.display)),
		agent.WithConfirmer(c.confirmer),
	}
	if id != "" {
		s, err := c.app.resume(ctx, id, extra...)
		if err != nil {
			return nil, fmt.Errorf("resume session %s: %w", id, err)
		}
		fmt.Fprintln(c.out, noticeStyle.Render(fmt.Sprintf("Resumed session %s (%d messages)", id, len(s.History()))))
		return s, nil
	}
	return c.app.newSession("", nil, extra...), nil
}

func (c *chat) run(ctx context.Context, sessionID string) error {
	session, err := c.open(ctx, sessionID)
	if err != nil {
		return err
	}
	defer func() { session.Close() }()

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(c.out, promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "/new":
			session.Close()
			session = c.app.newSession("", nil,
				agent.WithDisplay(agent.DisplayFunc(c.display)),
				agent.WithConfirmer(c.confirmer))
			fmt.Fprintln(c.out, noticeStyle.Render("Started a new session "+session.ID()))
			continue
		}

		if _, err := session.Send(ctx, input); err != nil {
			c.reportError(err)
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

func (c *chat) display(text string) {
	if strings.HasPrefix(text, "Executing action ") {
		fmt.Fprintln(c.out, noticeStyle.Render(text))
		return
	}
	fmt.Fprintln(c.out, replyStyle.Render(text))
}

func (c *chat) reportError(err error) {
	var decisionErr *agent.DecisionError
	switch {
	case errors.As(err, &decisionErr):
		fmt.Fprintln(c.out, errorStyle.Render("The model could not be reached: "+decisionErr.Err.Error()))
	case errors.Is(err, agent.ErrMaxTurns):
		fmt.Fprintln(c.out, errorStyle.Render("Stopped: the turn limit was reached before the task finished."))
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(c.out, errorStyle.Render("Cancelled."))
	default:
		fmt.Fprintln(c.out, errorStyle.Render("Error: "+err.Error()))
	}
}

// printLine shows live output from stream runners.
func printLine(out io.Writer) func(runner.Line) {
	return func(l runner.Line) {
		text := strings.TrimRight(l.Text, "\n")
		if l.Stream == runner.Stderr {
			fmt.Fprintln(out, stderrStyle.Render(text))
			return
		}
		fmt.Fprintln(out, noticeStyle.Render(text))
	}
}

// confirmWithForm asks the user with a yes/no form.
func confirmWithForm(ctx context.Context, req agent.ConfirmRequest) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(req.Prompt).
		Description(describeAction(req.ActionName, req.Args)).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(ctx); err != nil {
		return false, err
	}
	return ok, nil
}

func describeAction(name string, args action.Args) string {
	if name == action.ExecuteCodeName {
		language, _ := args.String("language")
		code, _ := args.String("code")
		return fmt.Sprintf("%s:\n\n%s", language, code)
	}
	b, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return name
	}
	return fmt.Sprintf("%s %s", name, b)
}

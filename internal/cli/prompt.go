package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/debfetch/pkg/pipeline"
)

// prompter returns the interactive decider: a bubbletea confirm when stdin
// and stderr are terminals, a plain line prompt otherwise.
func (c *CLI) prompter() pipeline.Decider {
	if f, ok := c.In.(*os.File); ok && isTerminal(f) && isTerminal(os.Stderr) {
		return teaConfirm{in: f, out: os.Stderr}
	}
	return newLinePrompt(c.In, os.Stderr, c.Logger)
}

// linePrompt asks questions on w and reads one answer line per question
// from r. Only "y" or "yes" (any case, surrounding space ignored) confirm;
// any other answer or a read failure declines.
type linePrompt struct {
	r      *bufio.Reader
	w      io.Writer
	logger *log.Logger
}

func newLinePrompt(r io.Reader, w io.Writer, logger *log.Logger) *linePrompt {
	return &linePrompt{r: bufio.NewReader(r), w: w, logger: logger}
}

func (p *linePrompt) Confirm(ctx context.Context, question string) bool {
	fmt.Fprintf(p.w, "%s [y/n]: ", question)
	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.w)
		p.logger.Warn("failed to read input, assuming no", "error", err)
		return false
	}
	return isYes(line)
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// teaConfirm runs a one-question bubbletea program.
type teaConfirm struct {
	in  io.Reader
	out io.Writer
}

func (t teaConfirm) Confirm(ctx context.Context, question string) bool {
	p := tea.NewProgram(newConfirmModel(question),
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		return false
	}
	m, ok := final.(confirmModel)
	return ok && m.Answer
}

var (
	confirmQuestionStyle = lipgloss.NewStyle().Bold(true)
	confirmActiveStyle   = lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Underline(true)
	confirmInactiveStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// confirmModel is the bubbletea model for a yes/no question.
//
// y and n answer immediately; arrows and tab move the selection and enter
// confirms it. Escape, q and ctrl+c decline.
type confirmModel struct {
	Question string
	Cursor   bool // true selects "Yes"
	Answer   bool
	Done     bool
}

func newConfirmModel(question string) confirmModel {
	return confirmModel{Question: question}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.Answer, m.Done = true, true
		return m, tea.Quit
	case "n", "N", "q", "esc", "ctrl+c":
		m.Answer, m.Done = false, true
		return m, tea.Quit
	case "left", "right", "h", "l", "tab", "shift+tab":
		m.Cursor = !m.Cursor
	case "enter":
		m.Answer, m.Done = m.Cursor, true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.Done {
		answer := "no"
		if m.Answer {
			answer = "yes"
		}
		return confirmQuestionStyle.Render(m.Question) + " " + StyleDim.Render(answer) + "\n"
	}
	yes, no := confirmInactiveStyle.Render("Yes"), confirmActiveStyle.Render("No")
	if m.Cursor {
		yes, no = confirmActiveStyle.Render("Yes"), confirmInactiveStyle.Render("No")
	}
	return confirmQuestionStyle.Render(m.Question) + "  " + yes + "  " + no + "\n" +
		StyleDim.Render("y/n answer  ←/→ select  ⏎ confirm") + "\n"
}

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// stdinIsTTY reports whether stdin is an interactive terminal.
func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// =============================================================================
// choiceModel - single yes/no decision
// =============================================================================

// choiceModel is the bubbletea model for one yes/no decision.
type choiceModel struct {
	prompt  string
	yesHint string
	noHint  string

	accepted bool
	decided  bool
}

func (m choiceModel) Init() tea.Cmd {
	return nil
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter", "y", "Y":
			m.accepted = true
			m.decided = true
			return m, tea.Quit
		case "n", "N", "q", "esc", "ctrl+c":
			m.accepted = false
			m.decided = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m choiceModel) View() string {
	if m.decided {
		return ""
	}
	var b strings.Builder
	b.WriteString(StyleHighlight.Render("? ") + m.prompt)
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  y/enter %s · n/q %s", m.yesHint, m.noHint)))
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// consolePrompter - human decisions with a non-terminal fallback
// =============================================================================

// consolePrompter asks the human for decisions. On a terminal it runs the
// bubbletea choice model; otherwise it falls back to [Y/n] line prompts
// where end-of-input counts as declining.
type consolePrompter struct {
	in  *bufio.Reader
	tty bool
}

// newConsolePrompter creates a prompter reading from stdin.
func newConsolePrompter() *consolePrompter {
	return &consolePrompter{in: bufio.NewReader(os.Stdin), tty: stdinIsTTY()}
}

// RetryOrAbort blocks until the human asks for another authentication
// attempt or gives up. It implements sshkey.Prompter.
func (p *consolePrompter) RetryOrAbort(message string) (bool, error) {
	return p.choose(message, "test again", "give up")
}

// Confirm asks a yes/no question where yes is the default answer.
func (p *consolePrompter) Confirm(prompt string) (bool, error) {
	return p.choose(prompt, "continue", "abort")
}

func (p *consolePrompter) choose(prompt, yesHint, noHint string) (bool, error) {
	if p.tty {
		final, err := tea.NewProgram(choiceModel{prompt: prompt, yesHint: yesHint, noHint: noHint}).Run()
		if err != nil {
			return false, fmt.Errorf("prompt: %w", err)
		}
		m, ok := final.(choiceModel)
		if !ok || !m.decided {
			return false, nil
		}
		return m.accepted, nil
	}
	return p.chooseLine(prompt)
}

// chooseLine is the non-terminal fallback. An empty answer means yes; EOF
// without an answer means no human is attached, which counts as no.
func (p *consolePrompter) chooseLine(prompt string) (bool, error) {
	fmt.Print(prompt + " [Y/n]: ")
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if err == io.EOF && answer == "" {
		fmt.Println()
		return false, nil
	}
	return answer == "" || answer == "y" || answer == "yes", nil
}

// promptLine reads one line of input for the given label. Callers gate it
// on stdinIsTTY.
func promptLine(label string) (string, error) {
	fmt.Print(label + ": ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

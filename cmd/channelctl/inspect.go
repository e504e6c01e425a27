package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/platform-channels/codec"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type inspectMode int

const (
	modeMessage inspectMode = iota
	modeCall
	modeEnvelope
)

var modeNames = [...]string{"message", "method call", "envelope"}

func (m inspectMode) String() string {
	return modeNames[m]
}

type inspectModel struct {
	input   textinput.Model
	session string
	result  string
	err     error
	history []string
	mode    inspectMode
}

func newInspectModel() *inspectModel {
	ti := textinput.New()
	ti.Placeholder = "hex bytes, e.g. 0c 02 03 01 00 00 00 07 01 61"
	ti.Prompt = "payload: "
	ti.Width = 60
	ti.Focus()
	return &inspectModel{input: ti, session: uuid.NewString()}
}

func (m *inspectModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			m.mode = (m.mode + 1) % inspectMode(len(modeNames))
			m.result, m.err = "", nil
			return m, nil

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.result, m.err = inspectPayload(m.mode, text)
			log.Debug("inspected payload",
				zap.String("session", m.session),
				zap.Stringer("mode", m.mode),
				zap.Error(m.err))
			m.history = append(m.history, text)
			if len(m.history) > 5 {
				m.history = m.history[1:]
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// inspectPayload decodes text in the given mode and renders the result.
func inspectPayload(mode inspectMode, text string) (string, error) {
	data, err := parseHex(text)
	if err != nil {
		return "", err
	}
	switch mode {
	case modeCall:
		call, err := methodCodec().DecodeMethodCall(data)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("method:    %s\narguments: %s", call.Method, codec.FormatIndent(call.Arguments, "  ")), nil
	case modeEnvelope:
		return strings.TrimRight(describeEnvelope(data), "\n"), nil
	default:
		v, err := standardCodec().DecodeMessage(data)
		if err != nil {
			return "", err
		}
		return codec.FormatIndent(v, "  "), nil
	}
}

func (m *inspectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Channel Inspector"))
	b.WriteString("\n\n")

	for i, name := range modeNames {
		if inspectMode(i) == m.mode {
			b.WriteString(selectedStyle.Render(" " + name + " "))
		} else {
			b.WriteString(modeStyle.Render(" " + name + " "))
		}
		b.WriteString(" ")
	}
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.result != "":
		b.WriteString(resultStyle.Render(m.result))
	}
	b.WriteString("\n\n")

	if len(m.history) > 0 {
		b.WriteString(helpStyle.Render("recent: " + strings.Join(m.history, " | ")))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter decode • tab mode • esc quit"))
	return b.String()
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Interactive payload inspector",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("inspect needs an interactive terminal; use decode, decode-call or envelope instead")
		}
		p := tea.NewProgram(newInspectModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&bigEndian, "big-endian", false, "Use big-endian multi-byte values")
}

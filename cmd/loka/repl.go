package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lokascript/loka/loka"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

type replModel struct {
	textInput   textinput.Model
	runtime     *loka.Runtime
	me          *loka.Element
	regs        []*loka.Registration
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showDoc     bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	Tab   key.Binding
	CtrlV key.Binding
	CtrlH key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous command"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next command"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "execute"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "autocomplete"),
	),
	CtrlV: key.NewBinding(
		key.WithKeys("ctrl+v"),
		key.WithHelp("ctrl+v", "toggle document"),
	),
	CtrlH: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
}

func replCommand() error {
	p := tea.NewProgram(newREPLModel())
	_, err := p.Run()
	return err
}

func newREPLModel() replModel {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "loka> "

	runtime, me := newScratchRuntime()

	return replModel{
		textInput:  ti,
		runtime:    runtime,
		me:         me,
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
		showHelp:   false,
		showDoc:    false,
	}
}

// newScratchRuntime builds a runtime whose document carries a #scratch div
// and a #btn button for scripts to poke at.
func newScratchRuntime() (*loka.Runtime, *loka.Element) {
	runtime := loka.MustNewRuntime(loka.Config{})
	doc := runtime.Document()

	me := doc.CreateElement("div")
	me.SetAttribute("id", "scratch")
	doc.Root().AppendChild(me)

	btn := doc.CreateElement("button")
	btn.SetAttribute("id", "btn")
	btn.SetText("press me")
	me.AppendChild(btn)

	return runtime, me
}

func (m replModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.EnterAltScreen)
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, keys.CtrlV):
			m.showDoc = !m.showDoc
			return m, nil

		case key.Matches(msg, keys.CtrlH):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, ":") {
				var cmd tea.Cmd
				m, cmd = m.handleCommand(input)
				m.textInput.SetValue("")
				m.historyIdx = -1
				return m, cmd
			}

			output, isErr := m.evaluate(input)
			m.history = append(m.history, historyEntry{
				input:  input,
				output: output,
				isErr:  isErr,
			})
			m.cmdHistory = append(m.cmdHistory, input)
			m.textInput.SetValue("")
			m.historyIdx = -1
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":doc", ":d":
		m.showDoc = !m.showDoc
	case ":trigger", ":t":
		if len(parts) < 2 {
			m.history = append(m.history, historyEntry{
				input:  input,
				output: "usage: :trigger <event>",
				isErr:  true,
			})
			break
		}
		m.me.Trigger(parts[1], nil)
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("dispatched %s from #scratch", parts[1]),
			isErr:  false,
		})
	case ":regs":
		m.history = append(m.history, historyEntry{
			input:  input,
			output: m.renderRegistrations(),
			isErr:  false,
		})
	case ":reset", ":r":
		for _, reg := range m.regs {
			reg.Cleanup()
		}
		m.regs = nil
		m.runtime, m.me = newScratchRuntime()
		m.history = append(m.history, historyEntry{
			input:  input,
			output: "Document reset",
			isErr:  false,
		})
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			isErr:  true,
		})
	}
	return m, nil
}

func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	if input == "" {
		return m
	}

	words := strings.Fields(input)
	if len(words) == 0 {
		return m
	}
	lastWord := words[len(words)-1]

	var completions []string

	commands := []string{
		"add", "remove", "toggle", "show", "hide", "set", "put", "log",
		"increment", "decrement", "send", "trigger", "wait", "repeat",
		"break", "continue", "halt", "return",
	}
	for _, c := range commands {
		if strings.HasPrefix(c, lastWord) {
			completions = append(completions, c)
		}
	}

	keywords := []string{
		"on", "every", "end", "then", "from", "to", "into", "in", "at",
		"by", "index", "queue", "debounced", "throttled", "self",
		"elsewhere", "times", "while", "until", "forever", "event",
		"for", "if", "else", "true", "false", "nil",
	}
	for _, k := range keywords {
		if strings.HasPrefix(k, lastWord) {
			completions = append(completions, k)
		}
	}

	if len(completions) == 1 {
		prefix := strings.TrimSuffix(input, lastWord)
		m.textInput.SetValue(prefix + completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			input:  "",
			output: "Completions: " + strings.Join(completions, ", "),
			isErr:  false,
		})
	}

	return m
}

func (m *replModel) evaluate(input string) (string, bool) {
	result, regs, err := m.runtime.Execute(context.Background(), input, m.me)
	if err != nil {
		return err.Error(), true
	}
	m.regs = append(m.regs, regs...)

	if result.IsNil() {
		return "nil", false
	}
	return result.String(), false
}

func (m replModel) renderRegistrations() string {
	active := 0
	var b strings.Builder
	for _, reg := range m.regs {
		if !reg.Active() {
			continue
		}
		active++
		fmt.Fprintf(&b, "\n  on %s (%d seen)", reg.EventName, reg.Occurrences())
	}
	if active == 0 {
		return "no active handlers"
	}
	return fmt.Sprintf("%d active handler(s)%s", active, b.String())
}

func (m replModel) renderDoc() string {
	var b strings.Builder
	var walk func(el *loka.Element, depth int)
	walk = func(el *loka.Element, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(el.String())
		if text := el.Text(); text != "" {
			b.WriteString(" " + mutedStyle.Render(fmt.Sprintf("%q", text)))
		}
		if el.Hidden() {
			b.WriteString(" " + mutedStyle.Render("(hidden)"))
		}
		b.WriteString("\n")
		for _, child := range el.Children() {
			walk(child, depth+1)
		}
	}
	walk(m.runtime.Document().Root(), 0)
	return b.String()
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	header := headerStyle.Render("LokaScript REPL")
	version := mutedStyle.Render("v" + serviceVersion)
	b.WriteString(header + " " + version + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", min(m.width-2, 60))) + "\n\n")

	reservedLines := 8
	if m.showHelp {
		reservedLines += 12
	}
	if m.showDoc {
		reservedLines += strings.Count(m.renderDoc(), "\n") + 3
	}
	availableHeight := m.height - reservedLines

	historyStart := 0
	if len(m.history) > availableHeight && availableHeight > 0 {
		historyStart = len(m.history) - availableHeight
	}
	for _, entry := range m.history[historyStart:] {
		if entry.input != "" {
			b.WriteString(promptStyle.Render("loka> ") + entry.input + "\n")
		}
		if entry.output != "" {
			style := resultStyle
			if entry.isErr {
				style = errorStyle
			}
			b.WriteString(style.Render(entry.output) + "\n")
		}
	}

	b.WriteString("\n" + m.textInput.View() + "\n")

	if m.showDoc {
		b.WriteString("\n" + headerStyle.Render("Document") + "\n")
		b.WriteString(m.renderDoc())
	}

	if m.showHelp {
		b.WriteString("\n" + headerStyle.Render("Help") + "\n")
		help := [][2]string{
			{"enter", "execute input as a script"},
			{":trigger <event>", "dispatch an event from #scratch"},
			{":regs", "list active handlers"},
			{":doc", "toggle the document tree"},
			{":reset", "fresh document and runtime"},
			{":clear", "clear history"},
			{":quit", "exit"},
			{"↑/↓", "command history"},
			{"tab", "autocomplete"},
			{"ctrl+k", "toggle this help"},
		}
		for _, h := range help {
			b.WriteString("  " + helpKeyStyle.Render(h[0]) + "  " + helpDescStyle.Render(h[1]) + "\n")
		}
	} else {
		b.WriteString("\n" + mutedStyle.Render("ctrl+k help · ctrl+v document · ctrl+c quit") + "\n")
	}

	return b.String()
}

package panel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Actions are the typed calls the panel can make toward the privileged
// side. The wiring behind them stays out of the UI.
type Actions struct {
	FetchItem func(ctx context.Context, id int) (string, error)
	LogLine   func(text string) error
}

// Push is a message the privileged side pushed to this panel. Feed pushes
// to the running program with program.Send; Run wires that up.
type Push struct {
	Action string
	Text   string
}

// Info carries static facts for the header line.
type Info struct {
	WindowID string
	HostName string
}

type entryKind int

const (
	kindCommand entryKind = iota
	kindItem
	kindHost
	kindError
)

type panelEntry struct {
	kind entryKind
	text string
}

type fetchResultMsg struct {
	id   int
	name string
	err  error
}

type model struct {
	ctx     context.Context
	actions Actions
	info    Info

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	entries   []panelEntry
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	followLog bool
	fetches   int
	pushes    int
}

func newModel(ctx context.Context, actions Actions, info Info) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "fetch <id>  ·  log <text>"
	in.Focus()
	in.CharLimit = 0

	vp := viewport.New(80, 12)

	return &model{
		ctx:       ctx,
		actions:   actions,
		info:      info,
		theme:     defaultTheme(),
		spinner:   spin,
		input:     in,
		viewport:  vp,
		width:     100,
		height:    28,
		followLog: true,
	}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if handled := m.handleViewportKey(typed); handled {
			return m, nil
		}

		if typed.String() == "enter" {
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if isExitCommand(line) {
				return m, tea.Quit
			}

			m.input.SetValue("")
			return m, m.dispatchCommand(line)
		}
	case Push:
		m.pushes++
		m.appendEntry(kindHost, fmt.Sprintf("%s · %s", typed.Action, typed.Text))
		return m, nil
	case fetchResultMsg:
		m.isLoading = false
		if typed.err != nil {
			m.lastErr = typed.err.Error()
			m.appendEntry(kindError, fmt.Sprintf("fetch %d failed: %s", typed.id, typed.err))
		} else {
			m.lastErr = ""
			m.fetches++
			m.appendEntry(kindItem, typed.name)
		}
		return m, nil
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatchCommand parses one input line and starts the matching action.
func (m *model) dispatchCommand(line string) tea.Cmd {
	fields := strings.Fields(line)

	switch fields[0] {
	case "fetch":
		if m.isLoading {
			m.appendEntry(kindError, "a fetch is already in flight")
			return nil
		}
		if len(fields) != 2 {
			m.appendEntry(kindError, "usage: fetch <id>")
			return nil
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			m.appendEntry(kindError, fmt.Sprintf("%q is not an item id", fields[1]))
			return nil
		}

		m.lastErr = ""
		m.isLoading = true
		m.appendEntry(kindCommand, line)
		return tea.Batch(m.spinner.Tick, fetchItemCmd(m.ctx, m.actions.FetchItem, id))
	case "log":
		text := strings.TrimSpace(strings.TrimPrefix(line, "log"))
		if text == "" {
			m.appendEntry(kindError, "usage: log <text>")
			return nil
		}

		// One-way hand-off: returns once the transport has the message.
		if err := m.actions.LogLine(text); err != nil {
			m.lastErr = err.Error()
			m.appendEntry(kindError, fmt.Sprintf("log failed: %s", err))
			return nil
		}

		m.lastErr = ""
		m.appendEntry(kindCommand, line)
		return nil
	default:
		m.appendEntry(kindError, fmt.Sprintf("unknown command %q (try: fetch <id>, log <text>, exit)", fields[0]))
		return nil
	}
}

func (m *model) appendEntry(kind entryKind, text string) {
	m.entries = append(m.entries, panelEntry{kind: kind, text: text})
	m.refreshViewport(kind == kindCommand)
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}

	header := m.theme.header.Width(m.width - 2).Render("⛓ Crosswire Panel")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"window:%s · host:%s · fetches:%d · pushes:%d",
		displayOrNA(m.info.WindowID),
		displayOrNA(m.info.HostName),
		m.fetches,
		m.pushes,
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("💡 Enter run  ·  PgUp/PgDn scroll  ·  End jump latest  ·  🛑 Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s ⚡ waiting for the host...", m.spinner.View()))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("🚨 last command failed - try again")
	}

	parts := []string{
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width - 2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("⌨ Command") + " " + m.theme.hint.Render("(type exit, quit, or :q)"),
		m.theme.input.Width(m.width - 2).Render(m.input.View()),
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *model) resizeComponents() {
	w := m.width - 6
	if w < 50 {
		w = 50
	}
	h := m.height - 10
	if h < 8 {
		h = 8
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	var sections []string
	for _, item := range m.entries {
		switch item.kind {
		case kindCommand:
			sections = append(sections, m.renderCard(
				m.theme.youTitle.Render("▛▚ [ YOU ] ▞▜"),
				m.theme.youBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.text)),
			))
		case kindItem:
			sections = append(sections, m.renderCard(
				m.theme.itemTitle.Render("▛▚ [ ITEM ] ▞▜"),
				m.theme.itemBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.text)),
			))
		case kindHost:
			sections = append(sections, m.renderCard(
				m.theme.hostTitle.Render("▛▚ [ HOST ] ▞▜"),
				m.theme.hostBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.text)),
			))
		case kindError:
			sections = append(sections, m.renderCard(
				m.theme.errorTitle.Render("▛▚ [ERROR] ▞▜"),
				m.theme.errorBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.text)),
			))
		}
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if previousOffset > maxOffset {
		previousOffset = maxOffset
	}
	m.viewport.SetYOffset(previousOffset)
}

func (m *model) renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func fetchItemCmd(ctx context.Context, fetch func(context.Context, int) (string, error), id int) tea.Cmd {
	return func() tea.Msg {
		name, err := fetch(ctx, id)
		return fetchResultMsg{id: id, name: name, err: err}
	}
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}

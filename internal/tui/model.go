// Package tui is the interactive chat surface. It renders the conversation
// as terminal scrollback, keeps the input line and status bar live, and runs
// every chat request as a background command so the event loop never blocks.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/collegebot-ai/collegebot/internal/api"
	"github.com/collegebot-ai/collegebot/internal/chat"
)

// ---------- messages ----------

// replyMsg carries the raw outcome of a chat request back into the event
// loop; the controller mutation happens in Update, never in the command
// goroutine.
type replyMsg struct {
	sessionID string
	answer    *api.ChatAnswer
	err       error
}

type redirectTickMsg struct{}

// ---------- styles ----------

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("108"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	statusRoleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("2")).
			Bold(true)

	pickerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)

	pickerSelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	welcomeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("8")).
				Padding(0, 1)

	welcomeTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("2")).
				Bold(true)

	welcomeLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("8"))

	welcomeValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
)

// botSpinner mirrors the thinking indicator character set used across the
// charm ecosystem.
var botSpinner = spinner.Spinner{
	Frames: []string{"·", "✢", "✳", "✶", "✻", "✽", "✻", "✶", "✳", "✢"},
	FPS:    120 * time.Millisecond,
}

// ---------- Model ----------

// Config carries display info for the welcome page and status bar.
type Config struct {
	Version string
	BaseURL string
	Role    string
}

// Model is the bubbletea model managing the chat TUI state.
type Model struct {
	ctrl   *chat.Controller
	client chat.Asker

	textinput textinput.Model
	spinner   spinner.Model
	width     int
	height    int

	picking   bool
	pickerSel int

	redirecting bool
	quitting    bool

	cfg Config

	mdRenderer      *glamour.TermRenderer
	mdRendererWidth int
}

// NewModel creates the initial chat model.
func NewModel(ctrl *chat.Controller, client chat.Asker, cfg Config) Model {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.Placeholder = "Message CollegeBot..."
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = botSpinner
	sp.Style = spinnerStyle

	return Model{
		ctrl:      ctrl,
		client:    client,
		textinput: ti,
		spinner:   sp,
		cfg:       cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.Println(renderWelcome(m.cfg)), textinput.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textinput.Width = m.width - 4

	case spinner.TickMsg:
		if m.ctrl.Pending() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		outcome := m.ctrl.Resolve(msg.sessionID, msg.answer, msg.err)
		if outcome.Reply != nil {
			cmds = append(cmds, tea.Println(m.renderAssistant(*outcome.Reply)))
		}
		if outcome.AuthExpired {
			m.redirecting = true
			cmds = append(cmds, tea.Tick(chat.RedirectDelay, func(time.Time) tea.Msg {
				return redirectTickMsg{}
			}))
		}

	case redirectTickMsg:
		m.quitting = true
		cmds = append(cmds,
			tea.Println(hintStyle.Render("Run 'collegebot login' to sign in again.")),
			tea.Quit)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := msg.String()

	if m.picking {
		return m.handlePickerKey(s)
	}

	switch s {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+n":
		m.ctrl.NewChat()
		return m, tea.Println(systemStyle.Render("— new chat —"))

	case "ctrl+s":
		if len(m.ctrl.Sessions()) > 0 {
			m.picking = true
			m.pickerSel = 0
		}
		return m, nil

	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	return m, cmd
}

func (m Model) handlePickerKey(s string) (tea.Model, tea.Cmd) {
	sessions := m.ctrl.Sessions()
	switch s {
	case "esc", "ctrl+s":
		m.picking = false
	case "up":
		if m.pickerSel > 0 {
			m.pickerSel--
		}
	case "down":
		if m.pickerSel < len(sessions)-1 {
			m.pickerSel++
		}
	case "d":
		if m.pickerSel < len(sessions) {
			m.ctrl.DeleteSession(sessions[m.pickerSel].ID)
			if m.pickerSel > 0 {
				m.pickerSel--
			}
			if len(m.ctrl.Sessions()) == 0 {
				m.picking = false
			}
		}
	case "enter":
		if m.pickerSel < len(sessions) {
			m.ctrl.SelectSession(sessions[m.pickerSel].ID)
			m.picking = false
			return m, m.replayCurrent()
		}
		m.picking = false
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// submit starts the optimistic send cycle for the typed query.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textinput.Value())
	if text == "" || m.redirecting {
		return m, nil
	}

	sid, err := m.ctrl.BeginSend(text)
	switch err {
	case nil:
	case chat.ErrBusy:
		return m, nil
	default:
		return m, tea.Println(errorStyle.Render("Error: " + err.Error()))
	}

	m.textinput.SetValue("")
	return m, tea.Batch(
		tea.Println(userStyle.Render("You: ")+text),
		m.spinner.Tick,
		askCmd(m.client, sid, text),
	)
}

// askCmd runs the chat request off the event loop. The originating session
// id travels with the result so a late reply can be matched (or discarded)
// by the controller.
func askCmd(client chat.Asker, sessionID, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := client.Chat(context.Background(), question)
		return replyMsg{sessionID: sessionID, answer: answer, err: err}
	}
}

// replayCurrent reprints the selected session's history into scrollback.
func (m *Model) replayCurrent() tea.Cmd {
	sess, ok := m.ctrl.Current()
	if !ok {
		return nil
	}
	var b strings.Builder
	b.WriteString(systemStyle.Render("— "+sess.Title+" —") + "\n")
	for _, msg := range sess.Messages {
		if msg.Role == chat.RoleUser {
			b.WriteString(userStyle.Render("You: ") + msg.Content + "\n")
		} else {
			b.WriteString(m.renderAssistant(msg) + "\n")
		}
	}
	return tea.Println(strings.TrimRight(b.String(), "\n"))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var live string
	if m.ctrl.Pending() {
		live = spinnerStyle.Render(m.spinner.View()) + hintStyle.Render(" Thinking…")
	}

	var input string
	if m.picking {
		input = m.renderPicker()
	} else {
		input = m.textinput.View()
	}

	bar := m.renderStatusBar()

	var parts []string
	if live != "" {
		parts = append(parts, live)
	}
	parts = append(parts, input, bar)
	return strings.Join(parts, "\n")
}

func (m Model) renderPicker() string {
	sessions := m.ctrl.Sessions()
	var lines []string
	lines = append(lines, hintStyle.Render("↑↓ select  enter open  d delete  esc close"))
	for i, s := range sessions {
		label := fmt.Sprintf("%s  %s", s.Timestamp.Format("Jan 02 15:04"), s.Title)
		if s.ID == m.ctrl.CurrentID() {
			label += " •"
		}
		if i == m.pickerSel {
			lines = append(lines, pickerSelStyle.Render("❯ "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}
	return pickerBorderStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatusBar() string {
	n := len(m.ctrl.Sessions())
	left := statusRoleStyle.Render(" "+m.cfg.Role+" ") +
		statusBarStyle.Render(fmt.Sprintf("%s · %d session(s)", m.cfg.BaseURL, n))
	right := statusBarStyle.Render("ctrl+n new · ctrl+s sessions · esc quit")
	return left + right
}

// ---------- assistant rendering ----------

func (m *Model) renderAssistant(msg chat.Message) string {
	body := m.renderMarkdown(msg.Content)
	if len(msg.Sources) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body + "\n")
	b.WriteString(sourceStyle.Render("Sources:") + "\n")
	for i, src := range msg.Sources {
		b.WriteString(sourceStyle.Render(fmt.Sprintf("  [%d] %s", i+1, src)) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) getMarkdownRenderer() *glamour.TermRenderer {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 4
	if m.mdRenderer != nil && m.mdRendererWidth == wrapWidth {
		return m.mdRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return nil
	}
	m.mdRenderer = r
	m.mdRendererWidth = wrapWidth
	return r
}

func (m *Model) renderMarkdown(text string) string {
	r := m.getMarkdownRenderer()
	if r == nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// ---------- welcome page ----------

func renderWelcome(cfg Config) string {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	lines := []string{
		welcomeLabelStyle.Render("Backend: ") + welcomeValueStyle.Render(cfg.BaseURL),
		welcomeLabelStyle.Render("Role:    ") + welcomeValueStyle.Render(cfg.Role),
		"",
		hintStyle.Render("Ask about your syllabus, regulations, or circulars."),
		hintStyle.Render("ctrl+n new chat  ctrl+s sessions  esc quit"),
	}

	title := welcomeTitleStyle.Render("collegebot v" + version)
	box := welcomeBorderStyle.Render(strings.Join(lines, "\n"))
	return title + "\n" + box
}

// Run starts the chat TUI and blocks until exit.
func Run(ctrl *chat.Controller, client chat.Asker, cfg Config) error {
	p := tea.NewProgram(NewModel(ctrl, client, cfg))
	_, err := p.Run()
	return err
}

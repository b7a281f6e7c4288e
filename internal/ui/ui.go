package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/ytcurator/internal/agent"
	"github.com/desertthunder/ytcurator/internal/session"
)

// Focus names the pane receiving key input.
type Focus int

const (
	ChatFocus Focus = iota
	CartFocus
)

const (
	noTextResponse = "(No text response)"
	minCartWidth   = 30
	chromeHeight   = 7
)

type role int

const (
	roleUser role = iota
	roleAgent
	roleInfo
	roleError
)

type entry struct {
	role role
	text string
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	session    *session.Session
	progress   <-chan string
	focus      Focus
	width      int
	height     int
	ready      bool
	waiting    bool
	transcript []entry
	viewport   viewport.Model
	input      textinput.Model
	cart       list.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap
}

// NewModel creates a chat model for sess. Checkout progress lines arrive on progress, which may be nil.
func NewModel(ctx context.Context, sess *session.Session, progress <-chan string) *Model {
	input := textinput.New()
	input.Placeholder = "Ask for an artist, a vibe, or a playlist..."
	input.Prompt = "You: "
	input.CharLimit = 500
	input.Focus()

	cart := list.New(songItems(sess.Cart()), list.NewDefaultDelegate(), minCartWidth, 10)
	cart.Title = "Cart"
	cart.SetShowHelp(false)
	cart.SetShowStatusBar(false)
	cart.SetFilteringEnabled(false)

	return &Model{
		ctx:      ctx,
		session:  sess,
		progress: progress,
		focus:    ChatFocus,
		input:    input,
		cart:     cart,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
		transcript: []entry{{
			role: roleInfo,
			text: "Tell me what you want to listen to. Songs are only added to your cart when you ask.",
		}},
	}
}

// Init starts the cursor blink and the progress listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgReply:
			r := msg.data.(reply)
			m.waiting = false
			switch {
			case r.err != nil:
				m.appendEntry(roleError, agent.Describe(r.err))
			case strings.TrimSpace(r.text) == "":
				m.appendEntry(roleAgent, noTextResponse)
			default:
				m.appendEntry(roleAgent, r.text)
			}
			cmd := m.cart.SetItems(songItems(r.songs))
			return m, cmd

		case MsgProgress:
			m.appendEntry(roleInfo, msg.data.(string))
			return m, m.waitForProgress()
		}

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.focus):
		if m.focus == ChatFocus {
			m.focus = CartFocus
			m.input.Blur()
		} else {
			m.focus = ChatFocus
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.scrollUp), key.Matches(msg, m.keys.scrollDn):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.reset):
		if m.waiting {
			return m, nil
		}
		m.session.Reset()
		m.appendEntry(roleInfo, "Started a new conversation. Your cart is empty.")
		return m, m.cart.SetItems(nil)
	}

	if m.focus == CartFocus {
		var cmd tea.Cmd
		m.cart, cmd = m.cart.Update(msg)
		return m, cmd
	}

	if key.Matches(msg, m.keys.send) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.waiting {
		return m, nil
	}

	switch strings.ToLower(text) {
	case "quit", "exit":
		return m, tea.Quit
	}

	m.input.SetValue("")
	m.appendEntry(roleUser, text)
	m.waiting = true
	return m, tea.Batch(m.send(text), m.spinner.Tick)
}

// send runs the message on the session outside the update loop.
func (m *Model) send(text string) tea.Cmd {
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		answer, songs, err := sess.Send(ctx, text)
		return replyMsg(answer, songs, err)
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	if m.progress == nil {
		return nil
	}
	ch := m.progress
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(line)
	}
}

func (m *Model) appendEntry(r role, text string) {
	m.transcript = append(m.transcript, entry{role: r, text: text})
	if m.ready {
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
	}
}

func (m *Model) layout() {
	cartWidth := max(minCartWidth, m.width/3)
	chatWidth := max(20, m.width-cartWidth-4)
	bodyHeight := max(5, m.height-chromeHeight)

	if !m.ready {
		m.viewport = viewport.New(chatWidth, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = bodyHeight
	}
	m.cart.SetSize(cartWidth, bodyHeight)
	m.input.Width = chatWidth - len(m.input.Prompt) - 1
	m.help.Width = m.width

	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(m.viewport.Width)

	var b strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		var line string
		switch e.role {
		case roleUser:
			line = styles.user.Render("You: ") + e.text
		case roleAgent:
			line = styles.agent.Render("Agent: ") + e.text
		case roleError:
			line = styles.err.Render(e.text)
		default:
			line = styles.help.Render(e.text)
		}
		b.WriteString(wrap.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// View renders the TUI based on the current state.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := styles.title.Render(fmt.Sprintf("ytcurator • %s", m.session.ID))

	chat := styles.panel.Render(m.viewport.View())
	cart := styles.panel.Render(m.cartView())
	body := lipgloss.JoinHorizontal(lipgloss.Top, chat, cart)

	var prompt string
	if m.waiting {
		prompt = m.spinner.View() + styles.warn.Render(" Thinking...")
	} else {
		prompt = m.input.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, body, prompt, m.help.View(m.keys))
}

func (m *Model) cartView() string {
	if len(m.cart.Items()) == 0 {
		return styles.ok.Render("Cart") + "\n\n" + styles.help.Render("Your cart is empty.")
	}
	return m.cart.View()
}

// Focused reports which pane receives key input.
func (m *Model) Focused() Focus { return m.focus }

// Run starts the TUI for sess and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session, progress <-chan string) error {
	p := tea.NewProgram(NewModel(ctx, sess, progress), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Package ui renders the terminal surface of a call: status, chat and
// input. It knows nothing about signaling or negotiation; it receives
// display events and emits the user's chat lines and mute toggles.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Display events, delivered with Program.Send.
type (
	statusMsg   string
	errorMsg    string
	peerMsg     bool // true joined, false left
	roomFullMsg struct{}
	chatMsg     chatEntry
	quitMsg     struct{}
)

type chatEntry struct {
	self bool
	text string
	at   time.Time
}

// CallHandlers receives what the user does in the UI.
type CallHandlers struct {
	// SendChat carries one outbound chat line.
	SendChat func(text string)
	// SetMuted toggles the local audio.
	SetMuted func(muted bool)
}

// Call wraps a running bubbletea program for one call.
type Call struct {
	program *tea.Program
}

// NewCall builds the UI for a room. Run blocks until the user quits or
// Quit is called.
func NewCall(code, role string, handlers CallHandlers) *Call {
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = 500
	input.Focus()

	m := callModel{
		code:     code,
		role:     role,
		status:   "Waiting for peer…",
		input:    input,
		handlers: handlers,
	}
	return &Call{program: tea.NewProgram(m)}
}

// Run blocks until the call UI exits.
func (c *Call) Run() error {
	_, err := c.program.Run()
	return err
}

// Status updates the status line.
func (c *Call) Status(text string) { c.program.Send(statusMsg(text)) }

// Error shows a non-fatal error in the status area.
func (c *Call) Error(text string) { c.program.Send(errorMsg(text)) }

// PeerJoined marks the peer as present.
func (c *Call) PeerJoined() { c.program.Send(peerMsg(true)) }

// PeerLeft marks the peer as gone.
func (c *Call) PeerLeft() { c.program.Send(peerMsg(false)) }

// RoomFull tells the user the room already had two members.
func (c *Call) RoomFull() { c.program.Send(roomFullMsg{}) }

// Chat appends an inbound chat line.
func (c *Call) Chat(text string, ts int64) {
	c.program.Send(chatMsg{text: text, at: time.UnixMilli(ts)})
}

// Quit ends the UI from outside, e.g. when the transport dies.
func (c *Call) Quit() { c.program.Send(quitMsg{}) }

type callModel struct {
	code     string
	role     string
	status   string
	lastErr  string
	peerHere bool
	muted    bool
	full     bool
	chat     []chatEntry
	input    textinput.Model
	handlers CallHandlers
	width    int
}

func (m callModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case errorMsg:
		m.lastErr = string(msg)
		return m, nil

	case peerMsg:
		m.peerHere = bool(msg)
		if m.peerHere {
			m.status = "Peer joined"
		} else {
			m.status = "Peer left"
		}
		return m, nil

	case roomFullMsg:
		m.full = true
		m.status = "Room is full"
		return m, tea.Quit

	case chatMsg:
		m.chat = append(m.chat, chatEntry(msg))
		return m, nil

	case quitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlT:
			m.muted = !m.muted
			if m.handlers.SetMuted != nil {
				m.handlers.SetMuted(m.muted)
			}
			return m, nil

		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.chat = append(m.chat, chatEntry{self: true, text: text, at: time.Now()})
			if m.handlers.SendChat != nil {
				m.handlers.SendChat(text)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

const chatWindow = 12

func (m callModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("paircall") + "  " + CodeStyle.Render(m.code) +
		MutedStyle.Render("  role "+m.role) + "\n")

	status := StatusStyle.Render(m.status)
	if m.muted {
		status += WarningStyle.Render("  [muted]")
	}
	if m.lastErr != "" {
		status += "  " + ErrorStyle.Render(m.lastErr)
	}
	b.WriteString(status + "\n\n")

	start := 0
	if len(m.chat) > chatWindow {
		start = len(m.chat) - chatWindow
	}
	for _, entry := range m.chat[start:] {
		who := ChatPeerStyle.Render("peer")
		if entry.self {
			who = ChatSelfStyle.Render("you")
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			MutedStyle.Render(entry.at.Format("15:04")), who, entry.text))
	}
	if len(m.chat) == 0 {
		b.WriteString(MutedStyle.Render("No messages yet.") + "\n")
	}

	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(MutedStyle.Render("enter send · ctrl+t mute · esc quit") + "\n")
	return b.String()
}

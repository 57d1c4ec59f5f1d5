package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	conversation "github.com/cuevox/cue-core/core"
	"github.com/cuevox/cue-core/core/turns"
)

// ageTickInterval is how often relative message ages are re-rendered. The
// stored timestamps never change; only the display strings do.
const ageTickInterval = 10 * time.Second

const noWidgetFocused = -1

type model struct {
	session *conversation.Session
	opts    Options
	styles  styles

	state    turns.State
	messages []conversation.Message
	// widgets maps directive IDs to their interactive state, in render order
	// via widgetOrder. Several may be pending at once; the session gate stays
	// held until the last of them resolves.
	widgets     map[string]*widget
	widgetOrder []string
	// focused indexes widgetOrder, or noWidgetFocused when the free-text
	// prompt has focus.
	focused int

	input   textinput.Model
	spinner spinner.Model

	interim     string
	connected   bool
	channelNote string
	captureNote string
	now         time.Time
	width       int
}

func newModel(session *conversation.Session, opts Options) *model {
	input := textinput.New()
	input.Placeholder = "Type a message... Ctrl+C to exit"
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &model{
		session: session,
		opts:    opts,
		styles:  defaultStyles(),
		state:   turns.StateIdle,
		widgets: map[string]*widget{},
		focused: noWidgetFocused,
		input:   input,
		spinner: sp,
		now:     time.Now(),
		width:   80,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, ageTick())
}

func ageTick() tea.Cmd {
	return tea.Tick(ageTickInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.input.Width = max(msg.Width-4, 20)
		}
		return m, nil

	case tickMsg:
		m.now = time.Now()
		return m, ageTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = msg.state
		if m.state != turns.StateRecording && m.state != turns.StateTranscribing {
			m.interim = ""
		}
		return m, nil

	case messageMsg:
		m.messages = append(m.messages, msg.message)
		return m, nil

	case inputRequestedMsg:
		w := newWidget(msg.directive)
		m.widgets[msg.directive.ID()] = w
		m.widgetOrder = append(m.widgetOrder, msg.directive.ID())
		// The newest request takes focus; the session gate has the free-text
		// prompt disabled anyway.
		m.blurFocused()
		m.focused = len(m.widgetOrder) - 1
		m.input.Blur()
		return m, w.focus()

	case inputResolvedMsg:
		if w, ok := m.widgets[msg.directiveID]; ok {
			w.resolved = true
			w.blur()
		}
		return m, m.refocus()

	case interimMsg:
		m.interim = msg.transcript
		return m, nil

	case captureFailedMsg:
		m.captureNote = "voice capture unavailable: " + msg.reason
		return m, nil

	case channelMsg:
		m.connected = msg.connected
		m.channelNote = msg.reason
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focused == noWidgetFocused {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	if w := m.focusedWidget(); w != nil {
		var cmd tea.Cmd
		w.input, cmd = w.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		if m.opts.VoiceEnabled {
			m.toggleCapture()
		}
		return m, nil
	case "ctrl+x":
		_ = m.session.Interrupt()
		return m, nil
	case "tab":
		return m, m.cycleFocus()
	}

	if w := m.focusedWidget(); w != nil {
		cmd, consumed := w.handleKey(msg, m.session)
		if consumed {
			return m, cmd
		}
		return m, nil
	}

	if msg.String() == "enter" {
		if m.gateHeld() {
			// The session would drop it anyway; keep the draft in the prompt.
			return m, nil
		}
		text := m.input.Value()
		m.input.SetValue("")
		_ = m.session.SubmitText(text)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// toggleCapture is the push-to-talk key: start while idle, stop while
// recording. Everything else is a no-op, mirroring the session rules.
func (m *model) toggleCapture() {
	if m.state == turns.StateRecording {
		_ = m.session.StopCapture()
		return
	}
	_ = m.session.StartCapture()
}

func (m *model) gateHeld() bool {
	return m.session.PendingInput() != nil
}

func (m *model) focusedWidget() *widget {
	if m.focused == noWidgetFocused || m.focused >= len(m.widgetOrder) {
		return nil
	}
	w := m.widgets[m.widgetOrder[m.focused]]
	if w == nil || w.resolved {
		return nil
	}
	return w
}

func (m *model) blurFocused() {
	if w := m.focusedWidget(); w != nil {
		w.blur()
	}
}

// cycleFocus moves focus to the next unresolved widget, wrapping back to the
// free-text prompt when there is none after the current one.
func (m *model) cycleFocus() tea.Cmd {
	m.blurFocused()

	start := m.focused
	for offset := 1; offset <= len(m.widgetOrder); offset++ {
		index := (start + offset + len(m.widgetOrder)+1) % (len(m.widgetOrder) + 1)
		if index == len(m.widgetOrder) {
			// Position past the last widget: the prompt itself.
			continue
		}
		if w := m.widgets[m.widgetOrder[index]]; w != nil && !w.resolved {
			m.focused = index
			m.input.Blur()
			return w.focus()
		}
	}

	return m.refocus()
}

// refocus picks the oldest unresolved widget, or returns focus to the
// free-text prompt when every widget has resolved.
func (m *model) refocus() tea.Cmd {
	for index, id := range m.widgetOrder {
		if w := m.widgets[id]; w != nil && !w.resolved {
			m.focused = index
			m.input.Blur()
			return w.focus()
		}
	}

	m.focused = noWidgetFocused
	return m.input.Focus()
}

var _ tea.Model = (*model)(nil)

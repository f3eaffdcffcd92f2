package main

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	council "github.com/kuware/council-core/core"
	"github.com/kuware/council-core/core/api"
	"github.com/kuware/council-core/core/conversations"
	"github.com/kuware/council-core/core/events"
	"github.com/kuware/council-core/internal/config"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusList
)

type model struct {
	client  *api.Client
	store   *council.ConversationStore
	reducer *council.StageReducer
	chat    *council.VoiceChat

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	conversations []conversations.Meta
	selected      int
	focus         focusArea

	processing   bool
	sessionState council.SessionState
	errText      string

	// external carries messages produced off the update loop: voice session
	// callbacks, reducer callbacks and the stream pump goroutine.
	external chan tea.Msg

	width  int
	height int
	ready  bool
}

type (
	conversationsMsg struct{ listing []conversations.Meta }
	conversationMsg  struct{ conversation *conversations.Conversation }
	stageEventMsg    struct{ event events.StageEvent }
	streamClosedMsg  struct{}
	processingMsg    struct{ active bool }
	refreshMsg       struct{}
	sessionStateMsg  struct{ state council.SessionState }
	errMsg           struct{ err error }
	statusErrMsg     struct{ text string }

	// externalMsg wraps a message pulled off the external channel. Exactly
	// one listener is armed at a time so channel order survives into the
	// update loop.
	externalMsg struct{ inner tea.Msg }
)

func newModel(client *api.Client, store *council.ConversationStore, cfg *config.Config, capture council.CaptureClient, player council.Player) *model {
	external := make(chan tea.Msg, 64)

	reducer := council.NewStageReducer(store, council.ReducerCallbacks{
		OnProcessingStarted:    func() { external <- processingMsg{active: true} },
		OnProcessingEnded:      func() { external <- processingMsg{active: false} },
		OnConversationsChanged: func() { external <- refreshMsg{} },
		OnError:                func(message string) { external <- statusErrMsg{text: message} },
	})

	chatOpts := []council.VoiceChatOption{
		council.WithHandshakeTimeout(cfg.Voice.GetHandshakeTimeout()),
		council.WithSessionCallbacks(council.SessionCallbacks{
			OnStateChanged: func(state council.SessionState) { external <- sessionStateMsg{state: state} },
			OnError:        func(message string) { external <- statusErrMsg{text: message} },
		}),
	}
	if capture != nil {
		chatOpts = append(chatOpts, council.WithCaptureClient(capture))
	}
	if player != nil {
		chatOpts = append(chatOpts, council.WithPlayer(player))
	}
	chat := council.NewVoiceChat(cfg.Server.BaseURL, client, reducer, chatOpts...)

	input := textarea.New()
	input.Placeholder = "Ask the council..."
	input.SetHeight(3)
	input.CharLimit = 0
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &model{
		client:       client,
		store:        store,
		reducer:      reducer,
		chat:         chat,
		input:        input,
		spin:         spin,
		sessionState: council.StateIdle,
		external:     external,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.loadConversations(), m.awaitExternal(), m.spin.Tick, textarea.Blink)
}

// awaitExternal forwards the next off-loop message into the update loop and
// is re-armed after every delivery.
func (m *model) awaitExternal() tea.Cmd {
	return func() tea.Msg {
		return externalMsg{inner: <-m.external}
	}
}

func (m *model) loadConversations() tea.Cmd {
	return func() tea.Msg {
		listing, err := m.client.Conversations.List(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		return conversationsMsg{listing: listing}
	}
}

func (m *model) openConversation(id string) tea.Cmd {
	return func() tea.Msg {
		conversation, err := m.client.Conversations.Get(context.Background(), id)
		if err != nil {
			return errMsg{err: err}
		}
		return conversationMsg{conversation: conversation}
	}
}

func (m *model) createConversation() tea.Cmd {
	return func() tea.Msg {
		conversation, err := m.client.Conversations.Create(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		return conversationMsg{conversation: conversation}
	}
}

// streamQuery opens the event stream and pumps every event into the update
// loop in arrival order.
func (m *model) streamQuery(conversationID, content string) tea.Cmd {
	return func() tea.Msg {
		stream, err := m.client.Conversations.StreamMessage(context.Background(), conversationID, content)
		if err != nil {
			return errMsg{err: err}
		}

		go func() {
			defer stream.Close()
			for event := range stream.Events {
				m.external <- stageEventMsg{event: event}
			}
			m.external <- streamClosedMsg{}
		}()

		return processingMsg{active: true}
	}
}

func (m *model) toggleRecording() tea.Cmd {
	conversationID := m.store.ActiveID()
	return func() tea.Msg {
		if err := m.chat.ToggleRecording(context.Background(), conversationID); err != nil {
			return statusErrMsg{text: err.Error()}
		}
		return nil
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case externalMsg:
		return m, tea.Batch(m.awaitExternal(), m.apply(msg.inner))

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)

	default:
		cmds = append(cmds, m.apply(msg))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// apply handles domain messages regardless of whether they arrived as a
// command result or off the external channel.
func (m *model) apply(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case conversationsMsg:
		m.conversations = msg.listing
		m.store.SetConversations(msg.listing)
		if m.selected >= len(m.conversations) {
			m.selected = 0
		}

	case conversationMsg:
		m.store.SetActive(msg.conversation)
		m.errText = ""
		m.renderConversation()
		return m.loadConversations()

	case stageEventMsg:
		m.reducer.Apply(msg.event)
		m.renderConversation()

	case streamClosedMsg:
		m.processing = false
		m.renderConversation()

	case processingMsg:
		m.processing = msg.active
		m.renderConversation()

	case refreshMsg:
		m.renderConversation()
		return m.loadConversations()

	case sessionStateMsg:
		m.sessionState = msg.state
		if msg.state == council.StateRecording {
			m.errText = ""
		}

	case statusErrMsg:
		m.errText = msg.text

	case errMsg:
		m.errText = msg.err.Error()
	}

	return nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.chat.Close()
		return tea.Quit, true

	case "tab":
		if m.focus == focusInput {
			m.focus = focusList
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return nil, true

	case "ctrl+n":
		return m.createConversation(), true

	case "ctrl+r":
		return m.toggleRecording(), true

	case "up", "k":
		if m.focus == focusList {
			if m.selected > 0 {
				m.selected--
			}
			return nil, true
		}

	case "down", "j":
		if m.focus == focusList {
			if m.selected < len(m.conversations)-1 {
				m.selected++
			}
			return nil, true
		}

	case "enter":
		if m.focus == focusList {
			if m.selected < len(m.conversations) {
				return m.openConversation(m.conversations[m.selected].ID), true
			}
			return nil, true
		}
		return m.submit(), true
	}

	return nil, false
}

func (m *model) submit() tea.Cmd {
	content := m.input.Value()
	if content == "" || m.processing {
		return nil
	}

	conversationID := m.store.ActiveID()
	if conversationID == "" {
		m.errText = council.ErrNoConversation.Error()
		return nil
	}

	// The text path has no transcription event; append the exchange locally
	// before the stream opens.
	m.store.AppendExchange(content)
	m.input.Reset()
	m.processing = true
	m.renderConversation()

	return m.streamQuery(conversationID, content)
}

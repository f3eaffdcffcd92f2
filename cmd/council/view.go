package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	council "github.com/kuware/council-core/core"
	"github.com/kuware/council-core/core/conversations"
	"github.com/muesli/reflow/wordwrap"
)

const listWidth = 28

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	listStyle     = lipgloss.NewStyle().Width(listWidth).Border(lipgloss.NormalBorder(), false, true, false, false).PaddingRight(1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	stageStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	finalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func (m *model) layout() {
	chatWidth := m.width - listWidth - 2
	if chatWidth < 20 {
		chatWidth = 20
	}
	chatHeight := m.height - m.input.Height() - 4
	if chatHeight < 5 {
		chatHeight = 5
	}

	if !m.ready {
		m.viewport = viewport.New(chatWidth, chatHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = chatHeight
	}
	m.input.SetWidth(chatWidth)
	m.renderConversation()
}

func (m *model) View() string {
	if !m.ready {
		return "loading..."
	}

	chat := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.input.View(),
		m.statusLine(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, m.listView(), " ", chat)
}

func (m *model) listView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Conversations"))
	b.WriteString("\n\n")

	activeID := m.store.ActiveID()
	for i, meta := range m.conversations {
		title := meta.Title
		if title == "" {
			title = "New Conversation"
		}
		if len(title) > listWidth-4 {
			title = title[:listWidth-4] + "…"
		}

		marker := "  "
		if meta.ID == activeID {
			marker = "* "
		}

		line := marker + title
		if m.focus == focusList && i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(m.conversations) == 0 {
		b.WriteString(statusStyle.Render("ctrl+n to start one"))
	}

	return listStyle.Height(m.height - 2).Render(b.String())
}

func (m *model) statusLine() string {
	if m.errText != "" {
		return errorStyle.Render(m.errText)
	}

	switch m.sessionState {
	case council.StateConnecting:
		return statusStyle.Render(m.spin.View() + " connecting...")
	case council.StateRecording:
		return errorStyle.Render("● recording (ctrl+r to stop)")
	case council.StateAwaitingResponse:
		return statusStyle.Render(m.spin.View() + " council deliberating...")
	case council.StatePlayingBack:
		return statusStyle.Render("▶ playing response")
	}

	if m.processing {
		return statusStyle.Render(m.spin.View() + " council deliberating...")
	}
	return statusStyle.Render("enter: send | ctrl+r: voice | ctrl+n: new | tab: switch | ctrl+c: quit")
}

func (m *model) renderConversation() {
	if !m.ready {
		return
	}

	active := m.store.Active()
	if active == nil {
		m.viewport.SetContent(statusStyle.Render("Select a conversation or press ctrl+n."))
		return
	}

	width := m.viewport.Width
	var sections []string
	for _, message := range active.Messages {
		sections = append(sections, renderMessage(message, width, m.spin.View()))
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	m.viewport.GotoBottom()
}

func renderMessage(message conversations.Message, width int, spinnerFrame string) string {
	if message.Role == conversations.RoleUser {
		return userStyle.Render("You") + "\n" + wordwrap.String(message.Content, width)
	}

	var parts []string
	if section := renderStage1(message, spinnerFrame); section != "" {
		parts = append(parts, stageStyle.Render(section))
	}
	if section := renderStage2(message, spinnerFrame); section != "" {
		parts = append(parts, stageStyle.Render(section))
	}
	if section := renderStage3(message, width, spinnerFrame); section != "" {
		parts = append(parts, section)
	}
	if len(parts) == 0 {
		return stageStyle.Render(spinnerFrame + " waiting for the council...")
	}
	return strings.Join(parts, "\n")
}

func renderStage1(message conversations.Message, spinnerFrame string) string {
	if message.Loading.Stage1 {
		return spinnerFrame + " stage 1: models answering..."
	}
	if message.Stage1 == nil {
		return ""
	}

	var responses []struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(message.Stage1, &responses); err != nil {
		return "stage 1: done"
	}

	models := make([]string, len(responses))
	for i, response := range responses {
		models[i] = response.Model
	}
	return fmt.Sprintf("stage 1: %d answers (%s)", len(responses), strings.Join(models, ", "))
}

func renderStage2(message conversations.Message, spinnerFrame string) string {
	if message.Loading.Stage2 {
		return spinnerFrame + " stage 2: peer review..."
	}
	if message.Stage2 == nil {
		return ""
	}

	if message.Metadata != nil && len(message.Metadata.LabelToModel) > 0 {
		return fmt.Sprintf("stage 2: rankings across %d models", len(message.Metadata.LabelToModel))
	}
	return "stage 2: rankings complete"
}

func renderStage3(message conversations.Message, width int, spinnerFrame string) string {
	if message.Loading.Stage3 {
		return stageStyle.Render(spinnerFrame + " stage 3: synthesizing...")
	}
	if message.Stage3 == nil {
		return ""
	}

	var synthesis struct {
		Model    string `json:"model"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(message.Stage3, &synthesis); err != nil || synthesis.Response == "" {
		return finalStyle.Render("Council") + "\n" + wordwrap.String(string(message.Stage3), width)
	}

	header := finalStyle.Render("Council") + stageStyle.Render(" (via "+synthesis.Model+")")
	return header + "\n" + wordwrap.String(synthesis.Response, width)
}

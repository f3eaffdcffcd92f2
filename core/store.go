package council

import (
	"sync"

	"github.com/jinzhu/copier"
	"github.com/kuware/council-core/core/conversations"
)

// ConversationStore holds the conversation list and the active
// conversation's message history. It is the single source of truth rendered
// by presentation collaborators; all mutation goes through its entry points
// so reducer application stays serialized.
type ConversationStore struct {
	mu sync.RWMutex

	conversations []conversations.Meta
	active        *conversations.Conversation
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

// SetConversations replaces the conversation list wholesale.
func (s *ConversationStore) SetConversations(metas []conversations.Meta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make([]conversations.Meta, len(metas))
	copy(s.conversations, metas)
}

// Conversations returns a copy of the conversation list.
func (s *ConversationStore) Conversations() []conversations.Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]conversations.Meta, len(s.conversations))
	copy(metas, s.conversations)
	return metas
}

// SetActive replaces the active conversation wholesale.
func (s *ConversationStore) SetActive(conversation *conversations.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = conversation
}

// ClearActive drops the active conversation.
func (s *ConversationStore) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = nil
}

// ActiveID returns the active conversation's identifier, empty when none is
// loaded.
func (s *ConversationStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return ""
	}
	return s.active.ID
}

// Active returns a point-in-time deep copy of the active conversation, or
// nil when none is loaded.
func (s *ConversationStore) Active() *conversations.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return nil
	}

	snapshot := &conversations.Conversation{}
	if err := copier.CopyWithOption(snapshot, s.active, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to snapshot active conversation", "error", err)
		return nil
	}
	return snapshot
}

// AppendExchange appends a user message and a fresh assistant shell to the
// active conversation. It reports false, without mutating anything, when no
// conversation is loaded.
func (s *ConversationStore) AppendExchange(userText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return false
	}

	s.active.Messages = append(s.active.Messages,
		conversations.NewUserMessage(userText),
		conversations.NewAssistantShell(),
	)
	return true
}

// UpdateLastAssistant applies update to the last message of the active
// conversation, only if that last message is an assistant message. It
// reports whether the update ran; anything else is a defensive no-op so a
// stray stage event can never mutate a user message.
func (s *ConversationStore) UpdateLastAssistant(update func(*conversations.Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || len(s.active.Messages) == 0 {
		return false
	}

	last := &s.active.Messages[len(s.active.Messages)-1]
	if last.Role != conversations.RoleAssistant {
		return false
	}

	update(last)
	return true
}

// Package conversations defines the conversation data model shared by the
// API client and the stage reducer.
package conversations

import "encoding/json"

// Meta is the list-view projection of a conversation.
type Meta struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
}

// Conversation is a full conversation with its ordered message history.
// Message order is insertion order and is never reordered.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt string    `json:"created_at"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation history: either a user message
// carrying text content, or an assistant message carrying up to three stage
// payloads plus ranking metadata.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	Stage1   json.RawMessage  `json:"stage1,omitempty"`
	Stage2   json.RawMessage  `json:"stage2,omitempty"`
	Stage3   json.RawMessage  `json:"stage3,omitempty"`
	Metadata *RankingMetadata `json:"metadata,omitempty"`

	// Loading tracks which stages are in flight. A stage's flag is true only
	// while that stage is pending and is cleared no later than the moment its
	// payload is set.
	Loading StageLoading `json:"-"`
}

// RankingMetadata carries ranking aggregates and the label-to-source mapping
// attached to a completed ranking stage.
type RankingMetadata struct {
	LabelToModel      map[string]string `json:"label_to_model"`
	AggregateRankings json.RawMessage   `json:"aggregate_rankings"`
}

// StageLoading holds the per-stage in-flight flags of an assistant message.
type StageLoading struct {
	Stage1 bool
	Stage2 bool
	Stage3 bool
}

// NewUserMessage creates a user message with the given text content.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantShell creates an empty assistant message: all stage payloads
// unset, all loading flags false.
func NewAssistantShell() Message {
	return Message{Role: RoleAssistant}
}

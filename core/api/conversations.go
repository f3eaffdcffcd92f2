package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/kuware/council-core/core/conversations"
	"github.com/kuware/council-core/core/events"
	"github.com/kuware/council-core/core/eventstream"
)

// ConversationsService covers the conversation endpoints.
type ConversationsService struct {
	client *Client
}

// List returns every conversation of the current user, newest first as the
// service orders them.
func (s *ConversationsService) List(ctx context.Context) ([]conversations.Meta, error) {
	var listing []conversations.Meta
	if err := s.client.do(ctx, http.MethodGet, "/api/conversations", nil, &listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Create starts an empty conversation.
func (s *ConversationsService) Create(ctx context.Context) (*conversations.Conversation, error) {
	var conversation conversations.Conversation
	if err := s.client.do(ctx, http.MethodPost, "/api/conversations", struct{}{}, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Get fetches a conversation with its full message history.
func (s *ConversationsService) Get(ctx context.Context, id string) (*conversations.Conversation, error) {
	var conversation conversations.Conversation
	if err := s.client.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

type messageRequest struct {
	Content string `json:"content"`
}

// MessageResult is the non-streaming response to a text query: all three
// stage payloads at once.
type MessageResult struct {
	Stage1   json.RawMessage         `json:"stage1"`
	Stage2   json.RawMessage         `json:"stage2"`
	Stage3   json.RawMessage         `json:"stage3"`
	Metadata *events.RankingMetadata `json:"metadata"`
}

// SendMessage runs the full pipeline and returns once every stage finished.
func (s *ConversationsService) SendMessage(ctx context.Context, id, content string) (*MessageResult, error) {
	var result MessageResult
	path := "/api/conversations/" + url.PathEscape(id) + "/message"
	if err := s.client.do(ctx, http.MethodPost, path, messageRequest{Content: content}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MessageStream is a live pipeline run. Iterate Events until it returns;
// Close releases the connection and is safe after exhaustion.
type MessageStream struct {
	body   io.ReadCloser
	reader *eventstream.Reader
}

// Events yields pipeline events in arrival order. Usable directly in a
// range-over-func loop.
func (s *MessageStream) Events(yield func(events.StageEvent) bool) {
	s.reader.Events(yield)
}

// Dropped reports how many malformed lines the stream discarded.
func (s *MessageStream) Dropped() int {
	return s.reader.Dropped()
}

func (s *MessageStream) Close() error {
	return s.body.Close()
}

// StreamMessage runs the pipeline and streams its events incrementally. The
// caller owns the returned stream and must close it.
func (s *ConversationsService) StreamMessage(ctx context.Context, id, content string) (*MessageStream, error) {
	path := "/api/conversations/" + url.PathEscape(id) + "/message/stream"
	resp, err := s.client.send(ctx, http.MethodPost, path, messageRequest{Content: content})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}

	return &MessageStream{
		body:   resp.Body,
		reader: eventstream.NewReader(resp.Body),
	}, nil
}

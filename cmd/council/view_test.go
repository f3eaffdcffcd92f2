package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kuware/council-core/core/conversations"
)

func TestRenderMessageUser(t *testing.T) {
	rendered := renderMessage(conversations.NewUserMessage("what is the answer"), 80, "*")
	if !strings.Contains(rendered, "what is the answer") {
		t.Fatalf("expected user content rendered, got %q", rendered)
	}
}

func TestRenderMessageStageProgression(t *testing.T) {
	message := conversations.NewAssistantShell()
	message.Loading.Stage1 = true

	rendered := renderMessage(message, 80, "*")
	if !strings.Contains(rendered, "stage 1") {
		t.Fatalf("expected stage 1 loading indicator, got %q", rendered)
	}

	message.Loading.Stage1 = false
	message.Stage1 = json.RawMessage(`[{"model":"gpt","response":"a"},{"model":"claude","response":"b"}]`)
	rendered = renderMessage(message, 80, "*")
	if !strings.Contains(rendered, "2 answers") {
		t.Fatalf("expected stage 1 summary, got %q", rendered)
	}

	message.Stage3 = json.RawMessage(`{"model":"claude","response":"the final synthesis"}`)
	rendered = renderMessage(message, 80, "*")
	if !strings.Contains(rendered, "the final synthesis") {
		t.Fatalf("expected synthesis text rendered, got %q", rendered)
	}
	if !strings.Contains(rendered, "claude") {
		t.Fatalf("expected synthesizing model named, got %q", rendered)
	}
}

func TestRenderStage3FallsBackToRawPayload(t *testing.T) {
	message := conversations.NewAssistantShell()
	message.Stage3 = json.RawMessage(`"plain text synthesis"`)

	rendered := renderStage3(message, 80, "*")
	if !strings.Contains(rendered, "plain text synthesis") {
		t.Fatalf("expected raw payload fallback, got %q", rendered)
	}
}

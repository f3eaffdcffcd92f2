package council

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kuware/council-core/core/audio"
	"github.com/kuware/council-core/core/conversations"
)

type fakeCapture struct {
	mu      sync.Mutex
	onAudio func([]byte)
	starts  int
	stops   int
}

func (f *fakeCapture) StartCapture(_ context.Context, onAudio func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onAudio = onAudio
	f.starts++
	return nil
}

func (f *fakeCapture) StopCapture() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeCapture) emit(frame []byte) {
	f.mu.Lock()
	onAudio := f.onAudio
	f.mu.Unlock()
	if onAudio != nil {
		onAudio(frame)
	}
}

func (f *fakeCapture) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeCapture) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// slowCapture models a device whose microphone grant takes a moment to come
// through, leaving a window between start_recording and capture running.
type slowCapture struct {
	fakeCapture
	delay time.Duration
}

func (s *slowCapture) StartCapture(ctx context.Context, onAudio func([]byte)) error {
	time.Sleep(s.delay)
	return s.fakeCapture.StartCapture(ctx, onAudio)
}

type fakePlayer struct {
	played chan []byte
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{played: make(chan []byte, 1)}
}

func (f *fakePlayer) Play(_ context.Context, audio []byte) error {
	f.played <- audio
	return nil
}

type staticCredentials string

func (c staticCredentials) Token() string { return string(c) }

type voiceMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// voiceServer accepts one duplex connection and records every inbound
// message, handing control to script once start_recording arrives.
type voiceServer struct {
	*httptest.Server

	mu       sync.Mutex
	received []voiceMessage
}

func newVoiceServer(t *testing.T, script func(conn *websocket.Conn, inbound <-chan voiceMessage)) *voiceServer {
	t.Helper()

	server := &voiceServer{}
	upgrader := websocket.Upgrader{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade: %v", err)
			return
		}
		defer conn.Close()

		inbound := make(chan voiceMessage, 64)
		go func() {
			defer close(inbound)
			for {
				var message voiceMessage
				if err := conn.ReadJSON(&message); err != nil {
					return
				}
				server.mu.Lock()
				server.received = append(server.received, message)
				server.mu.Unlock()
				inbound <- message
			}
		}()

		script(conn, inbound)
	}))
	t.Cleanup(server.Close)
	return server
}

func (s *voiceServer) messageTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, len(s.received))
	for i, message := range s.received {
		types[i] = message.Type
	}
	return types
}

func sendEvent(t *testing.T, conn *websocket.Conn, event map[string]any) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Errorf("failed to marshal event: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Errorf("failed to write event: %v", err)
	}
}

func awaitMessage(t *testing.T, inbound <-chan voiceMessage, expectedType string) {
	t.Helper()
	select {
	case message, ok := <-inbound:
		if !ok {
			t.Errorf("connection closed while waiting for %q", expectedType)
			return
		}
		if message.Type != expectedType {
			t.Errorf("expected %q message, got %q", expectedType, message.Type)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("timed out waiting for %q message", expectedType)
	}
}

func awaitState(t *testing.T, states <-chan SessionState, expected SessionState) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case state := <-states:
			if state == expected {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", expected)
		}
	}
}

func newTestVoiceChat(serverURL string, capture CaptureClient, player *fakePlayer) (*VoiceChat, *ConversationStore, chan SessionState, chan string) {
	store := NewConversationStore()
	store.SetActive(&conversations.Conversation{ID: "conv-1"})

	states := make(chan SessionState, 16)
	errors := make(chan string, 16)

	chat := NewVoiceChat(serverURL, staticCredentials("token-1"), NewStageReducer(store, ReducerCallbacks{}),
		WithCaptureClient(capture),
		WithPlayer(player),
		WithSessionCallbacks(SessionCallbacks{
			OnStateChanged: func(state SessionState) { states <- state },
			OnError:        func(message string) { errors <- message },
		}),
	)
	return chat, store, states, errors
}

func TestStartRecordingWithoutConversation(t *testing.T) {
	chat, _, _, errorMessages := newTestVoiceChat("http://127.0.0.1:0", &fakeCapture{}, newFakePlayer())

	err := chat.StartRecording(t.Context(), "")
	if err != ErrNoConversation {
		t.Fatalf("expected ErrNoConversation, got %v", err)
	}
	if state := chat.State(); state != StateIdle {
		t.Fatalf("expected state to stay idle, got %q", state)
	}

	select {
	case message := <-errorMessages:
		if message != ErrNoConversation.Error() {
			t.Fatalf("expected no-conversation error surfaced, got %q", message)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an error callback")
	}
}

func TestVoiceSessionFullCycle(t *testing.T) {
	response := audio.Quantize([]float32{0.25, -0.25, 0.5})

	server := newVoiceServer(t, func(conn *websocket.Conn, inbound <-chan voiceMessage) {
		awaitMessage(t, inbound, "start_recording")
		sendEvent(t, conn, map[string]any{"type": "recording_started"})

		awaitMessage(t, inbound, "audio")
		awaitMessage(t, inbound, "stop_recording")

		sendEvent(t, conn, map[string]any{"type": "transcription", "text": "hello there"})
		sendEvent(t, conn, map[string]any{"type": "stage1_start"})
		sendEvent(t, conn, map[string]any{"type": "stage1_complete", "data": []any{map[string]any{"model": "a", "response": "alpha"}}})
		sendEvent(t, conn, map[string]any{"type": "stage3_complete", "data": "final answer"})
		sendEvent(t, conn, map[string]any{"type": "audio_start"})
		sendEvent(t, conn, map[string]any{"type": "audio_response", "data": audio.EncodeBytes(response[:2])})
		sendEvent(t, conn, map[string]any{"type": "audio_response", "data": audio.EncodeBytes(response[2:])})
		sendEvent(t, conn, map[string]any{"type": "complete"})
		sendEvent(t, conn, map[string]any{"type": "audio_complete"})

		// Hold the connection open; the client closes once playback starts.
		<-inbound
	})

	capture := &fakeCapture{}
	player := newFakePlayer()
	chat, store, states, _ := newTestVoiceChat(server.URL, capture, player)
	defer chat.Close()

	if err := chat.StartRecording(t.Context(), "conv-1"); err != nil {
		t.Fatalf("failed to start recording: %v", err)
	}
	awaitState(t, states, StateRecording)

	capture.emit(response)
	if err := chat.StopRecording(); err != nil {
		t.Fatalf("failed to stop recording: %v", err)
	}
	awaitState(t, states, StateAwaitingResponse)
	awaitState(t, states, StatePlayingBack)

	select {
	case played := <-player.played:
		if len(played) != len(response) {
			t.Fatalf("expected %d bytes of assembled audio, got %d", len(response), len(played))
		}
		for i := range played {
			if played[i] != response[i] {
				t.Fatalf("expected chunks reassembled in order, mismatch at byte %d", i)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for playback")
	}

	active := store.Active()
	if len(active.Messages) != 2 {
		t.Fatalf("expected transcription to append an exchange, got %d messages", len(active.Messages))
	}
	assistant := active.Messages[1]
	if assistant.Stage1 == nil || assistant.Stage3 == nil {
		t.Fatalf("expected stage payloads applied through the session, got %+v", assistant)
	}
	if assistant.Loading != (conversations.StageLoading{}) {
		t.Fatalf("expected no loading flags after completion, got %+v", assistant.Loading)
	}
}

func TestVoiceSessionStopsFramesImmediately(t *testing.T) {
	server := newVoiceServer(t, func(conn *websocket.Conn, inbound <-chan voiceMessage) {
		awaitMessage(t, inbound, "start_recording")
		awaitMessage(t, inbound, "stop_recording")
		sendEvent(t, conn, map[string]any{"type": "complete"})
		sendEvent(t, conn, map[string]any{"type": "audio_complete"})
		<-inbound
	})

	capture := &fakeCapture{}
	chat, _, states, _ := newTestVoiceChat(server.URL, capture, newFakePlayer())
	defer chat.Close()

	if err := chat.StartRecording(t.Context(), "conv-1"); err != nil {
		t.Fatalf("failed to start recording: %v", err)
	}
	awaitState(t, states, StateRecording)

	if err := chat.StopRecording(); err != nil {
		t.Fatalf("failed to stop recording: %v", err)
	}

	// A frame the device delivers after stop must never reach the wire.
	capture.emit([]byte{1, 2})
	awaitState(t, states, StatePlayingBack)

	for _, messageType := range server.messageTypes() {
		if messageType == "audio" {
			t.Fatalf("expected no audio frames on the wire, got message sequence %v", server.messageTypes())
		}
	}
	if capture.stopCount() == 0 {
		t.Fatalf("expected the capture device to be released on stop")
	}
}

func TestVoiceSessionAccessDenied(t *testing.T) {
	server := newVoiceServer(t, func(conn *websocket.Conn, inbound <-chan voiceMessage) {
		awaitMessage(t, inbound, "start_recording")
		awaitMessage(t, inbound, "stop_recording")

		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeCodeAccessDenied, "forbidden"), deadline)
	})

	chat, _, states, errorMessages := newTestVoiceChat(server.URL, &fakeCapture{}, newFakePlayer())
	defer chat.Close()

	if err := chat.StartRecording(t.Context(), "conv-1"); err != nil {
		t.Fatalf("failed to start recording: %v", err)
	}
	awaitState(t, states, StateRecording)

	if err := chat.StopRecording(); err != nil {
		t.Fatalf("failed to stop recording: %v", err)
	}
	awaitState(t, states, StateFailed)

	select {
	case message := <-errorMessages:
		if message != ErrAccessDenied.Error() {
			t.Fatalf("expected access-denied cause, got %q", message)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the error callback")
	}
}

func TestVoiceSessionAuthRequired(t *testing.T) {
	server := newVoiceServer(t, func(conn *websocket.Conn, inbound <-chan voiceMessage) {
		awaitMessage(t, inbound, "start_recording")

		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeCodeAuthRequired, "token expired"), deadline)
	})

	chat, _, states, errorMessages := newTestVoiceChat(server.URL, &fakeCapture{}, newFakePlayer())
	defer chat.Close()

	if err := chat.StartRecording(t.Context(), "conv-1"); err != nil {
		t.Fatalf("failed to start recording: %v", err)
	}
	awaitState(t, states, StateFailed)

	select {
	case message := <-errorMessages:
		if message != ErrAuthRequired.Error() {
			t.Fatalf("expected auth-required cause, got %q", message)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the error callback")
	}
}

func TestVoiceSessionRejectedWhileCaptureStarting(t *testing.T) {
	server := newVoiceServer(t, func(conn *websocket.Conn, inbound <-chan voiceMessage) {
		awaitMessage(t, inbound, "start_recording")

		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeCodeAuthRequired, "token expired"), deadline)
	})

	capture := &slowCapture{delay: 300 * time.Millisecond}
	chat, _, states, errorMessages := newTestVoiceChat(server.URL, capture, newFakePlayer())
	defer chat.Close()

	if err := chat.StartRecording(t.Context(), "conv-1"); err != ErrAuthRequired {
		t.Fatalf("expected ErrAuthRequired from the rejected session, got %v", err)
	}
	if state := chat.State(); state != StateFailed {
		t.Fatalf("expected the session to stay failed, got %q", state)
	}
	awaitState(t, states, StateFailed)

	select {
	case message := <-errorMessages:
		if message != ErrAuthRequired.Error() {
			t.Fatalf("expected auth-required cause, got %q", message)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the error callback")
	}

	if starts, stops := capture.startCount(), capture.stopCount(); stops < starts {
		t.Fatalf("expected the late capture start to be released, starts=%d stops=%d", starts, stops)
	}
}

func TestStartRecordingTearsDownPreviousSession(t *testing.T) {
	script := func(conn *websocket.Conn, inbound <-chan voiceMessage) {
		awaitMessage(t, inbound, "start_recording")
		for range inbound {
		}
	}
	server := newVoiceServer(t, script)

	capture := &fakeCapture{}
	chat, _, states, _ := newTestVoiceChat(server.URL, capture, newFakePlayer())
	defer chat.Close()

	if err := chat.StartRecording(t.Context(), "conv-1"); err != nil {
		t.Fatalf("failed to start first recording: %v", err)
	}
	awaitState(t, states, StateRecording)

	if err := chat.StartRecording(t.Context(), "conv-1"); err != nil {
		t.Fatalf("failed to start replacement recording: %v", err)
	}
	awaitState(t, states, StateRecording)

	if stops := capture.stopCount(); stops != 1 {
		t.Fatalf("expected exactly one capture release from the teardown, got %d", stops)
	}
}

func TestToggleRecordingStopsWhileRecording(t *testing.T) {
	server := newVoiceServer(t, func(conn *websocket.Conn, inbound <-chan voiceMessage) {
		awaitMessage(t, inbound, "start_recording")
		awaitMessage(t, inbound, "stop_recording")
		for range inbound {
		}
	})

	chat, _, states, _ := newTestVoiceChat(server.URL, &fakeCapture{}, newFakePlayer())
	defer chat.Close()

	if err := chat.ToggleRecording(t.Context(), "conv-1"); err != nil {
		t.Fatalf("failed to toggle recording on: %v", err)
	}
	awaitState(t, states, StateRecording)

	if err := chat.ToggleRecording(t.Context(), "conv-1"); err != nil {
		t.Fatalf("failed to toggle recording off: %v", err)
	}
	awaitState(t, states, StateAwaitingResponse)
}

func TestDuplexURL(t *testing.T) {
	sessionURL, err := duplexURL("https://council.example.com", "conv-9", staticCredentials("secret"))
	if err != nil {
		t.Fatalf("failed to build URL: %v", err)
	}
	if sessionURL != "wss://council.example.com/api/conversations/conv-9/voice?token=secret" {
		t.Fatalf("unexpected duplex URL %q", sessionURL)
	}

	sessionURL, err = duplexURL("http://localhost:8000", "conv-9", nil)
	if err != nil {
		t.Fatalf("failed to build URL: %v", err)
	}
	if sessionURL != "ws://localhost:8000/api/conversations/conv-9/voice" {
		t.Fatalf("unexpected duplex URL %q", sessionURL)
	}
}

package council

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kuware/council-core/core/audio"
	"github.com/kuware/council-core/core/events"
)

// SessionState is the single authoritative busy/lifecycle value of a voice
// session.
type SessionState string

const (
	StateIdle             SessionState = "idle"
	StateConnecting       SessionState = "connecting"
	StateRecording        SessionState = "recording"
	StateAwaitingResponse SessionState = "awaiting_response"
	StatePlayingBack      SessionState = "playing_back"
	StateFailed           SessionState = "failed"
)

const defaultHandshakeTimeout = 15 * time.Second

// VoiceChat owns at most one live voice session at a time. Starting a new
// recording always tears down any prior session first, regardless of its
// state, so the microphone grant and the duplex connection can never leak
// across sessions.
type VoiceChat struct {
	baseURL     string
	credentials Credentials
	reducer     *StageReducer

	capture   CaptureClient
	player    Player
	dialer    *websocket.Dialer
	callbacks SessionCallbacks

	mu      sync.Mutex
	session *voiceSession
}

func NewVoiceChat(baseURL string, credentials Credentials, reducer *StageReducer, opts ...VoiceChatOption) *VoiceChat {
	chat := &VoiceChat{
		baseURL:     baseURL,
		credentials: credentials,
		reducer:     reducer,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
	}

	for _, opt := range opts {
		opt(chat)
	}

	return chat
}

// State reports the current session state; StateIdle when no session exists.
func (v *VoiceChat) State() SessionState {
	v.mu.Lock()
	session := v.session
	v.mu.Unlock()

	if session == nil {
		return StateIdle
	}
	return session.State()
}

// StartRecording opens a duplex session for the conversation, sends the
// start_recording control message and begins microphone capture. It fails
// immediately with ErrNoConversation when no conversation is selected.
func (v *VoiceChat) StartRecording(ctx context.Context, conversationID string) error {
	v.mu.Lock()
	previous := v.session
	v.session = nil
	v.mu.Unlock()

	if previous != nil {
		previous.teardown()
	}

	if conversationID == "" {
		v.reportError(ErrNoConversation.Error())
		return ErrNoConversation
	}

	session := newVoiceSession(v, conversationID)
	v.mu.Lock()
	v.session = session
	v.mu.Unlock()

	return session.connect(ctx)
}

// StopRecording stops capture and asks the server for the response. It is a
// no-op unless the current session is recording.
func (v *VoiceChat) StopRecording() error {
	v.mu.Lock()
	session := v.session
	v.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.stop()
}

// ToggleRecording stops when recording and starts otherwise. Toggling while
// recording must stop, never restart, regardless of timing.
func (v *VoiceChat) ToggleRecording(ctx context.Context, conversationID string) error {
	if v.State() == StateRecording {
		return v.StopRecording()
	}
	return v.StartRecording(ctx, conversationID)
}

// Close tears down the current session, releasing the microphone and the
// connection.
func (v *VoiceChat) Close() {
	v.mu.Lock()
	session := v.session
	v.session = nil
	v.mu.Unlock()

	if session != nil {
		session.teardown()
	}
}

func (v *VoiceChat) reportError(message string) {
	if v.callbacks.OnError != nil {
		v.callbacks.OnError(message)
	}
}

func (v *VoiceChat) reportState(state SessionState) {
	if v.callbacks.OnStateChanged != nil {
		v.callbacks.OnStateChanged(state)
	}
}

// voiceSession owns one duplex connection lifecycle: connect, capture,
// send, receive, teardown.
type voiceSession struct {
	chat           *VoiceChat
	conversationID string
	sessionID      string

	mu      sync.Mutex
	state   SessionState
	failure error
	conn    *websocket.Conn

	// writeMu serializes writes; frames and control messages come from
	// different goroutines.
	writeMu sync.Mutex

	// capturing gates outbound frames so stopping cuts them off immediately,
	// before the capture device has finished releasing.
	capturing atomic.Bool

	// closed marks a torn-down session so the transport close that teardown
	// itself provokes is not treated as a connection loss.
	closed atomic.Bool

	buffer audioBuffer

	baseContext  context.Context
	teardownOnce sync.Once

	events chan events.StageEvent
}

func newVoiceSession(chat *VoiceChat, conversationID string) *voiceSession {
	return &voiceSession{
		chat:           chat,
		conversationID: conversationID,
		sessionID:      uuid.NewString(),
		state:          StateIdle,
		baseContext:    context.Background(),
	}
}

type controlEnvelope struct {
	Type string `json:"type"`
}

type audioEnvelope struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

const (
	controlStartRecording = "start_recording"
	controlStopRecording  = "stop_recording"
	messageTypeAudio      = "audio"
)

func (s *voiceSession) connect(ctx context.Context) error {
	s.baseContext = ctx
	s.setState(StateConnecting)

	ctx, span := tracer.Start(ctx, "open voice session")
	defer span.End()

	sessionURL, err := duplexURL(s.chat.baseURL, s.conversationID, s.chat.credentials)
	if err != nil {
		s.fail(ErrConnectionFailed)
		return err
	}

	conn, _, err := s.chat.dialer.DialContext(ctx, sessionURL, nil)
	if err != nil {
		span.RecordError(err)
		s.fail(ErrConnectionFailed)
		return fmt.Errorf("failed to open voice session: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.events = make(chan events.StageEvent, 16)
	s.mu.Unlock()

	go s.readMessages(conn)
	go s.processEvents()

	if err := s.writeJSON(controlEnvelope{Type: controlStartRecording}); err != nil {
		s.teardown()
		s.fail(ErrConnectionFailed)
		return fmt.Errorf("failed to send start_recording: %w", err)
	}

	s.capturing.Store(true)
	if s.chat.capture != nil {
		if err := s.chat.capture.StartCapture(s.baseContext, s.sendFrame); err != nil {
			s.teardown()
			s.fail(fmt.Errorf("failed to start microphone capture: %w", err))
			return fmt.Errorf("failed to start microphone capture: %w", err)
		}
	}

	// The server may reject the session while capture is still starting; the
	// read pump fails the session in that window. Only a still-live session
	// may enter Recording, otherwise the capture just started must be
	// released again and the failure surfaced to the caller.
	s.mu.Lock()
	live := !s.closed.Load() && s.state != StateFailed
	if live {
		s.state = StateRecording
	}
	cause := s.failure
	s.mu.Unlock()

	if !live {
		s.capturing.Store(false)
		s.releaseCapture()
		if cause == nil {
			cause = ErrConnectionLost
		}
		return cause
	}

	s.chat.reportState(StateRecording)
	logger.Info("voice session recording", "session_id", s.sessionID, "conversation_id", s.conversationID)
	return nil
}

// sendFrame forwards one captured frame as it arrives. No batching delay;
// backpressure is left to the transport's own flow control.
func (s *voiceSession) sendFrame(frame []byte) {
	if !s.capturing.Load() {
		return
	}

	if err := s.writeJSON(audioEnvelope{Type: messageTypeAudio, Data: audio.EncodeBytes(frame)}); err != nil {
		logger.Warn("failed to send audio frame", "error", err)
	}
}

// stop tears down capture and delivers the stop_recording control message
// before the session transitions away from Recording. Frames stop
// immediately; nothing in flight is flushed afterwards.
func (s *voiceSession) stop() error {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.capturing.Store(false)
	s.releaseCapture()

	if err := s.writeJSON(controlEnvelope{Type: controlStopRecording}); err != nil {
		s.fail(ErrConnectionLost)
		return fmt.Errorf("failed to send stop_recording: %w", err)
	}

	s.setState(StateAwaitingResponse)
	return nil
}

func (s *voiceSession) readMessages(conn *websocket.Conn) {
	defer close(s.events)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.handleTransportClose(err)
			return
		}

		event, parseErr := events.ParseEnvelope(message)
		if parseErr != nil {
			logger.Warn("dropping malformed voice event", "error", parseErr)
			continue
		}

		s.events <- event
	}
}

// processEvents consumes the typed event channel. Running on one goroutine
// keeps reducer application order identical to event arrival order.
func (s *voiceSession) processEvents() {
	for event := range s.events {
		s.handleEvent(event)
	}
}

func (s *voiceSession) handleEvent(event events.StageEvent) {
	switch typedEvent := event.(type) {
	case events.RecordingStarted:
		// Upstream acknowledgement; capture is already running.

	case events.AudioStarted:
		s.buffer.Reset()

	case events.AudioChunk:
		chunk, err := audio.DecodeChunk(typedEvent.Data)
		if err != nil {
			logger.Warn("dropping undecodable audio chunk", "error", err)
			return
		}
		s.buffer.Append(chunk)

	case events.AudioCompleted:
		s.completePlayback(event)

	default:
		s.chat.reducer.Apply(event)
	}
}

func (s *voiceSession) completePlayback(event events.StageEvent) {
	assembled := s.buffer.Take()
	s.setState(StatePlayingBack)
	s.chat.reducer.Apply(event)

	// The server does not close the session after the audio response; close
	// it proactively.
	s.closeConn()

	if s.chat.player != nil && len(assembled) > 0 {
		if err := s.chat.player.Play(s.baseContext, assembled); err != nil {
			logger.Warn("playback failed", "session_id", s.sessionID, "error", err)
		}
	}
}

func (s *voiceSession) handleTransportClose(err error) {
	if s.closed.Load() {
		return
	}

	s.mu.Lock()
	pending := s.state == StateConnecting || s.state == StateRecording || s.state == StateAwaitingResponse
	s.mu.Unlock()

	if !pending {
		// Expected close after playback or explicit teardown.
		return
	}

	s.capturing.Store(false)
	s.releaseCapture()
	s.fail(closeCauseError(err))
}

// teardown releases every owned resource. Safe to call from any state and
// any goroutine; runs at most once.
func (s *voiceSession) teardown() {
	s.teardownOnce.Do(func() {
		s.closed.Store(true)
		s.capturing.Store(false)
		s.releaseCapture()
		s.closeConn()
	})
}

func (s *voiceSession) releaseCapture() {
	if s.chat.capture == nil {
		return
	}
	if err := s.chat.capture.StopCapture(); err != nil {
		logger.Warn("failed to release microphone capture", "error", err)
	}
}

// closeConn closes the connection exactly once; later calls see nil.
func (s *voiceSession) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = conn.Close()
}

func (s *voiceSession) writeJSON(message any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("voice session connection is closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(message)
}

func (s *voiceSession) fail(cause error) {
	s.mu.Lock()
	if s.failure == nil {
		s.failure = cause
	}
	s.mu.Unlock()

	s.setState(StateFailed)
	s.chat.reportError(cause.Error())
}

func (s *voiceSession) setState(state SessionState) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	s.chat.reportState(state)
}

func (s *voiceSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// duplexURL builds the voice endpoint address from the API origin: http maps
// to ws and https to wss. The bearer credential travels as a query parameter
// because the duplex handshake cannot carry custom headers from the client
// environment.
func duplexURL(baseURL, conversationID string, credentials Credentials) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = path.Join(parsed.Path, "api", "conversations", conversationID, "voice")

	query := parsed.Query()
	if credentials != nil {
		query.Set("token", credentials.Token())
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

package council

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

type VoiceChatOption func(*VoiceChat)

// CaptureClient is the microphone capture port. Implementations deliver
// linear16 PCM frames to onAudio as they are captured; StopCapture releases
// the device and stops the callbacks.
type CaptureClient interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

// Player is the playback port. It receives the fully assembled audio
// response; ownership of the bytes transfers to the player.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Credentials supplies the bearer token attached to every network-issuing
// operation. Its lifecycle (set at login, cleared at logout) lives on the
// implementing client, never in ambient state.
type Credentials interface {
	Token() string
}

// SessionCallbacks notify the presentation collaborator about session-level
// facts the conversation store does not carry. Anything needing the "is
// busy" fact should read the session state, not track a shadow flag.
type SessionCallbacks struct {
	OnStateChanged func(state SessionState)
	OnError        func(message string)
}

func WithCaptureClient(client CaptureClient) VoiceChatOption {
	return func(v *VoiceChat) { v.capture = client }
}

func WithPlayer(player Player) VoiceChatOption {
	return func(v *VoiceChat) { v.player = player }
}

func WithDialer(dialer *websocket.Dialer) VoiceChatOption {
	return func(v *VoiceChat) { v.dialer = dialer }
}

// WithHandshakeTimeout overrides how long a duplex handshake may take
// before the session fails with a connection error.
func WithHandshakeTimeout(timeout time.Duration) VoiceChatOption {
	return func(v *VoiceChat) { v.dialer.HandshakeTimeout = timeout }
}

func WithSessionCallbacks(callbacks SessionCallbacks) VoiceChatOption {
	return func(v *VoiceChat) { v.callbacks = callbacks }
}

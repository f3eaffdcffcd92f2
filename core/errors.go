package council

import (
	"errors"

	"github.com/gorilla/websocket"
)

var (
	// ErrNoConversation reports a recording request without a selected
	// conversation.
	ErrNoConversation = errors.New("no conversation selected")
	// ErrConnectionFailed reports a duplex handshake that never completed.
	ErrConnectionFailed = errors.New("failed to connect to voice service")
	// ErrConnectionLost reports a connection dropped while a response was
	// pending.
	ErrConnectionLost = errors.New("connection lost while awaiting response")

	// ErrAuthRequired reports a close with the reserved credential/upstream
	// configuration code.
	ErrAuthRequired = errors.New("authentication required for voice chat")
	// ErrAccessDenied reports a close with the reserved access denial code.
	ErrAccessDenied = errors.New("access to this conversation was denied")
	// ErrConversationNotFound reports a close with the reserved unknown
	// conversation code.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Reserved close codes sent by the server on a rejected voice session.
const (
	closeCodeAuthRequired         = 4001
	closeCodeAccessDenied         = 4003
	closeCodeConversationNotFound = 4004
)

// closeCauseError maps a transport-level close to its user-facing cause.
// Reserved codes produce distinct causes; everything else is generic loss.
func closeCauseError(err error) error {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return ErrConnectionLost
	}

	switch closeErr.Code {
	case closeCodeAuthRequired:
		return ErrAuthRequired
	case closeCodeAccessDenied:
		return ErrAccessDenied
	case closeCodeConversationNotFound:
		return ErrConversationNotFound
	}
	return ErrConnectionLost
}

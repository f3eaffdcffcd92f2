package events

const (
	// KindAudioStarted identifies the start of a synthesized audio response.
	KindAudioStarted Kind = "audio_start"
	// KindAudioChunk identifies one wire-safe encoded audio chunk.
	KindAudioChunk Kind = "audio_response"
	// KindAudioCompleted identifies the end of the synthesized audio response.
	KindAudioCompleted Kind = "audio_complete"
)

// AudioStarted marks the beginning of a buffered audio response. Any
// previously buffered chunks are discarded on this event.
type AudioStarted struct{ Base }

// NewAudioStarted creates an audio started event.
func NewAudioStarted() AudioStarted {
	return AudioStarted{Base: NewBase(KindAudioStarted)}
}

// AudioChunk carries one wire-safe encoded audio chunk to buffer.
type AudioChunk struct {
	Base
	Data string
}

// NewAudioChunk creates an audio chunk event.
func NewAudioChunk(data string) AudioChunk {
	return AudioChunk{Base: NewBase(KindAudioChunk), Data: data}
}

// AudioCompleted marks the audio response as fully delivered; buffered
// chunks are handed to playback.
type AudioCompleted struct{ Base }

// NewAudioCompleted creates an audio completed event.
func NewAudioCompleted() AudioCompleted {
	return AudioCompleted{Base: NewBase(KindAudioCompleted)}
}

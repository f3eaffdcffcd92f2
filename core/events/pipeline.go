package events

const (
	// KindTranscription identifies the final transcript of a voice utterance.
	KindTranscription Kind = "transcription"
	// KindTitleCompleted identifies a finished conversation title generation.
	KindTitleCompleted Kind = "title_complete"
	// KindRecordingStarted identifies upstream confirmation that recording began.
	KindRecordingStarted Kind = "recording_started"
	// KindPipelineCompleted identifies the end of the full pipeline run.
	KindPipelineCompleted Kind = "complete"
	// KindUpstreamError identifies a server-reported failure.
	KindUpstreamError Kind = "error"
)

// Transcription carries the transcribed user utterance that triggers a new
// exchange.
type Transcription struct {
	Base
	Text string
}

// NewTranscription creates a transcription event.
func NewTranscription(text string) Transcription {
	return Transcription{Base: NewBase(KindTranscription), Text: text}
}

// TitleCompleted carries the generated conversation title.
type TitleCompleted struct {
	Base
	Title string
}

// NewTitleCompleted creates a title completed event.
func NewTitleCompleted(title string) TitleCompleted {
	return TitleCompleted{Base: NewBase(KindTitleCompleted), Title: title}
}

// RecordingStarted marks upstream acknowledgement of a start_recording
// control message. It appears on the duplex transport only.
type RecordingStarted struct{ Base }

// NewRecordingStarted creates a recording started event.
func NewRecordingStarted() RecordingStarted {
	return RecordingStarted{Base: NewBase(KindRecordingStarted)}
}

// PipelineCompleted marks the end of a full pipeline run on the event-stream
// transport.
type PipelineCompleted struct{ Base }

// NewPipelineCompleted creates a pipeline completed event.
func NewPipelineCompleted() PipelineCompleted {
	return PipelineCompleted{Base: NewBase(KindPipelineCompleted)}
}

// UpstreamError carries a server-reported error message, surfaced verbatim.
type UpstreamError struct {
	Base
	Message string
}

// NewUpstreamError creates an upstream error event.
func NewUpstreamError(message string) UpstreamError {
	return UpstreamError{Base: NewBase(KindUpstreamError), Message: message}
}

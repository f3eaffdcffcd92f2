package council

import (
	"github.com/jinzhu/copier"
	"github.com/kuware/council-core/core/conversations"
	"github.com/kuware/council-core/core/events"
)

// ReducerCallbacks notify collaborators about state the message history does
// not carry: pipeline progress, list refreshes, and surfaced errors.
type ReducerCallbacks struct {
	// OnProcessingStarted fires when a transcription opens a new exchange.
	OnProcessingStarted func()
	// OnProcessingEnded fires when the pipeline run finishes or fails.
	OnProcessingEnded func()
	// OnConversationsChanged asks the collaborator to refresh the
	// conversation list, e.g. after a title lands server-side.
	OnConversationsChanged func()
	// OnError surfaces a server-reported error message verbatim.
	OnError func(message string)
}

// StageReducer folds stage events from either transport into the
// conversation store. Events must be applied in arrival order; both
// transports guarantee serialized delivery, so the reducer takes no locks of
// its own beyond the store's.
type StageReducer struct {
	store     *ConversationStore
	callbacks ReducerCallbacks
}

func NewStageReducer(store *ConversationStore, callbacks ReducerCallbacks) *StageReducer {
	return &StageReducer{store: store, callbacks: callbacks}
}

// Apply folds one stage event into the store. Replaying a completed-stage
// event is a pure overwrite: applying it twice yields the same state.
func (r *StageReducer) Apply(event events.StageEvent) {
	switch typedEvent := event.(type) {
	case events.Transcription:
		if !r.store.AppendExchange(typedEvent.Text) {
			// No conversation loaded; the transcript has nowhere to go.
			return
		}
		r.invokeProcessingStarted()

	case events.StageStarted:
		r.store.UpdateLastAssistant(func(message *conversations.Message) {
			setStageLoading(message, typedEvent.Stage)
		})

	case events.StageCompleted:
		r.store.UpdateLastAssistant(func(message *conversations.Message) {
			completeStage(message, typedEvent)
		})

	case events.TitleCompleted:
		r.invokeConversationsChanged()

	case events.PipelineCompleted:
		r.invokeProcessingEnded()
		r.invokeConversationsChanged()

	case events.AudioCompleted:
		// Buffering and playback are the session's concern; conversation
		// state only sees the pipeline finish here.
		r.invokeProcessingEnded()
		r.invokeConversationsChanged()

	case events.UpstreamError:
		r.store.UpdateLastAssistant(func(message *conversations.Message) {
			message.Loading = conversations.StageLoading{}
		})
		r.invokeProcessingEnded()
		if r.callbacks.OnError != nil {
			r.callbacks.OnError(typedEvent.Message)
		}
	}
}

// setStageLoading marks a stage in flight. A start arriving after its
// completion is ignored so loading never regresses once the payload is set.
func setStageLoading(message *conversations.Message, stage events.Stage) {
	switch stage {
	case events.StageResponses:
		if message.Stage1 == nil {
			message.Loading.Stage1 = true
		}
	case events.StageRankings:
		if message.Stage2 == nil {
			message.Loading.Stage2 = true
		}
	case events.StageSynthesis:
		if message.Stage3 == nil {
			message.Loading.Stage3 = true
		}
	}
}

func completeStage(message *conversations.Message, event events.StageCompleted) {
	switch event.Stage {
	case events.StageResponses:
		message.Stage1 = event.Payload
		message.Loading.Stage1 = false
	case events.StageRankings:
		message.Stage2 = event.Payload
		message.Loading.Stage2 = false
		if event.Metadata != nil {
			metadata := &conversations.RankingMetadata{}
			if err := copier.Copy(metadata, event.Metadata); err == nil {
				message.Metadata = metadata
			}
		}
	case events.StageSynthesis:
		message.Stage3 = event.Payload
		message.Loading.Stage3 = false
	}
}

func (r *StageReducer) invokeProcessingStarted() {
	if r.callbacks.OnProcessingStarted != nil {
		r.callbacks.OnProcessingStarted()
	}
}

func (r *StageReducer) invokeProcessingEnded() {
	if r.callbacks.OnProcessingEnded != nil {
		r.callbacks.OnProcessingEnded()
	}
}

func (r *StageReducer) invokeConversationsChanged() {
	if r.callbacks.OnConversationsChanged != nil {
		r.callbacks.OnConversationsChanged()
	}
}

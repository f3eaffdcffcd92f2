package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind reports an envelope whose type field names no known event.
var ErrUnknownKind = errors.New("unknown event kind")

// envelope is the inbound JSON shape shared by both transports: a type
// selector plus transport-specific payload fields.
type envelope struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Text     string          `json:"text,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// ParseEnvelope decodes one JSON event envelope into its typed StageEvent.
func ParseEnvelope(data []byte) (StageEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	switch Kind(env.Type) {
	case KindTranscription:
		return NewTranscription(env.Text), nil

	case KindStage1Started:
		return NewStageStarted(StageResponses), nil
	case KindStage2Started:
		return NewStageStarted(StageRankings), nil
	case KindStage3Started:
		return NewStageStarted(StageSynthesis), nil

	case KindStage1Completed:
		return NewStageCompleted(StageResponses, env.Data, nil), nil
	case KindStage2Completed:
		var metadata *RankingMetadata
		if len(env.Metadata) > 0 {
			metadata = &RankingMetadata{}
			if err := json.Unmarshal(env.Metadata, metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ranking metadata: %w", err)
			}
		}
		return NewStageCompleted(StageRankings, env.Data, metadata), nil
	case KindStage3Completed:
		return NewStageCompleted(StageSynthesis, env.Data, nil), nil

	case KindTitleCompleted:
		var payload struct {
			Title string `json:"title"`
		}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal title payload: %w", err)
			}
		}
		return NewTitleCompleted(payload.Title), nil

	case KindRecordingStarted:
		return NewRecordingStarted(), nil
	case KindPipelineCompleted:
		return NewPipelineCompleted(), nil

	case KindAudioStarted:
		return NewAudioStarted(), nil
	case KindAudioChunk:
		var chunk string
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &chunk); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audio chunk payload: %w", err)
			}
		}
		return NewAudioChunk(chunk), nil
	case KindAudioCompleted:
		return NewAudioCompleted(), nil

	case KindUpstreamError:
		return NewUpstreamError(env.Message), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
}

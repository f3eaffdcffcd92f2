package events

import (
	"encoding/json"
	"fmt"
)

const (
	// KindStage1Started identifies the start of independent response collection.
	KindStage1Started Kind = "stage1_start"
	// KindStage1Completed identifies completed independent responses.
	KindStage1Completed Kind = "stage1_complete"
	// KindStage2Started identifies the start of peer ranking.
	KindStage2Started Kind = "stage2_start"
	// KindStage2Completed identifies completed rankings plus ranking metadata.
	KindStage2Completed Kind = "stage2_complete"
	// KindStage3Started identifies the start of final synthesis.
	KindStage3Started Kind = "stage3_start"
	// KindStage3Completed identifies the completed synthesized answer.
	KindStage3Completed Kind = "stage3_complete"
)

// Stage numbers one phase of the three-phase answer pipeline.
type Stage int

const (
	StageResponses Stage = 1
	StageRankings  Stage = 2
	StageSynthesis Stage = 3
)

func (s Stage) startKind() Kind {
	return Kind(fmt.Sprintf("stage%d_start", int(s)))
}

func (s Stage) completeKind() Kind {
	return Kind(fmt.Sprintf("stage%d_complete", int(s)))
}

// RankingMetadata carries the label-to-source mapping and ranking aggregates
// attached to a completed ranking stage.
type RankingMetadata struct {
	LabelToModel      map[string]string `json:"label_to_model"`
	AggregateRankings json.RawMessage   `json:"aggregate_rankings"`
}

// StageStarted marks a pipeline stage as in flight.
type StageStarted struct {
	Base
	Stage Stage
}

// NewStageStarted creates a stage started event.
func NewStageStarted(stage Stage) StageStarted {
	return StageStarted{Base: NewBase(stage.startKind()), Stage: stage}
}

// StageCompleted carries the payload of a finished pipeline stage. Metadata
// is set for the ranking stage only.
type StageCompleted struct {
	Base
	Stage    Stage
	Payload  json.RawMessage
	Metadata *RankingMetadata
}

// NewStageCompleted creates a stage completed event.
func NewStageCompleted(stage Stage, payload json.RawMessage, metadata *RankingMetadata) StageCompleted {
	return StageCompleted{Base: NewBase(stage.completeKind()), Stage: stage, Payload: payload, Metadata: metadata}
}

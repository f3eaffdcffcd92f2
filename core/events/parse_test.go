package events

import (
	"errors"
	"testing"
)

func TestParseEnvelopeTranscription(t *testing.T) {
	event, err := ParseEnvelope([]byte(`{"type":"transcription","text":"hello there"}`))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}

	transcription, ok := event.(Transcription)
	if !ok {
		t.Fatalf("expected Transcription, got %T", event)
	}
	if transcription.Text != "hello there" {
		t.Fatalf("expected transcript %q, got %q", "hello there", transcription.Text)
	}
	if transcription.Kind() != KindTranscription {
		t.Fatalf("expected kind %q, got %q", KindTranscription, transcription.Kind())
	}
}

func TestParseEnvelopeStageStarted(t *testing.T) {
	for kind, stage := range map[string]Stage{
		"stage1_start": StageResponses,
		"stage2_start": StageRankings,
		"stage3_start": StageSynthesis,
	} {
		event, err := ParseEnvelope([]byte(`{"type":"` + kind + `"}`))
		if err != nil {
			t.Fatalf("expected %s to parse, got %v", kind, err)
		}

		started, ok := event.(StageStarted)
		if !ok {
			t.Fatalf("expected StageStarted for %s, got %T", kind, event)
		}
		if started.Stage != stage {
			t.Fatalf("expected stage %d for %s, got %d", stage, kind, started.Stage)
		}
	}
}

func TestParseEnvelopeStage2CompletedCarriesMetadata(t *testing.T) {
	payload := `{"type":"stage2_complete","data":[{"model":"a","ranking":"1"}],` +
		`"metadata":{"label_to_model":{"A":"model-a"},"aggregate_rankings":[{"model":"model-a","rank":1}]}}`

	event, err := ParseEnvelope([]byte(payload))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}

	completed, ok := event.(StageCompleted)
	if !ok {
		t.Fatalf("expected StageCompleted, got %T", event)
	}
	if completed.Stage != StageRankings {
		t.Fatalf("expected ranking stage, got %d", completed.Stage)
	}
	if completed.Metadata == nil {
		t.Fatalf("expected ranking metadata to be set")
	}
	if completed.Metadata.LabelToModel["A"] != "model-a" {
		t.Fatalf("expected label mapping to survive parsing, got %v", completed.Metadata.LabelToModel)
	}
	if len(completed.Payload) == 0 {
		t.Fatalf("expected stage payload to be retained")
	}
}

func TestParseEnvelopeStage3CompletedHasNoMetadata(t *testing.T) {
	event, err := ParseEnvelope([]byte(`{"type":"stage3_complete","data":{"model":"m","response":"final"}}`))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}

	completed := event.(StageCompleted)
	if completed.Metadata != nil {
		t.Fatalf("expected no metadata on synthesis stage, got %v", completed.Metadata)
	}
}

func TestParseEnvelopeTitleCompleted(t *testing.T) {
	event, err := ParseEnvelope([]byte(`{"type":"title_complete","data":{"title":"Greetings"}}`))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}

	title, ok := event.(TitleCompleted)
	if !ok {
		t.Fatalf("expected TitleCompleted, got %T", event)
	}
	if title.Title != "Greetings" {
		t.Fatalf("expected title %q, got %q", "Greetings", title.Title)
	}
}

func TestParseEnvelopeAudioChunk(t *testing.T) {
	event, err := ParseEnvelope([]byte(`{"type":"audio_response","data":"AAEC"}`))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}

	chunk, ok := event.(AudioChunk)
	if !ok {
		t.Fatalf("expected AudioChunk, got %T", event)
	}
	if chunk.Data != "AAEC" {
		t.Fatalf("expected chunk data %q, got %q", "AAEC", chunk.Data)
	}
}

func TestParseEnvelopeUpstreamError(t *testing.T) {
	event, err := ParseEnvelope([]byte(`{"type":"error","message":"no speech detected"}`))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}

	upstream, ok := event.(UpstreamError)
	if !ok {
		t.Fatalf("expected UpstreamError, got %T", event)
	}
	if upstream.Message != "no speech detected" {
		t.Fatalf("expected message to be surfaced verbatim, got %q", upstream.Message)
	}
}

func TestParseEnvelopeUnknownKind(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"type":"mystery"}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestParseEnvelopeMalformedJSON(t *testing.T) {
	if _, err := ParseEnvelope([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected malformed envelope to fail parsing")
	}
}

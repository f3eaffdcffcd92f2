// Package events defines the typed stage event vocabulary shared by both
// transports.
//
// Kind values match the wire `type` field verbatim; the event-stream reader
// and the voice session parse inbound envelopes through [ParseEnvelope] so a
// stage reducer never needs to know which transport produced an event.
//
// Pipeline events
//
//   - Transcription (transcription): final transcript of a voice utterance;
//     triggers a new user/assistant exchange.
//   - StageStarted (stage1_start, stage2_start, stage3_start): a pipeline
//     stage went in flight.
//   - StageCompleted (stage1_complete, stage2_complete, stage3_complete):
//     a pipeline stage finished; the ranking stage additionally carries
//     [RankingMetadata].
//   - TitleCompleted (title_complete): conversation title generation
//     finished.
//   - PipelineCompleted (complete): full pipeline run ended (event-stream
//     transport only).
//   - UpstreamError (error): server-reported failure, surfaced verbatim.
//
// Playback events (duplex transport only)
//
//   - AudioStarted (audio_start): synthesized audio response begins; resets
//     the playback buffer.
//   - AudioChunk (audio_response): one wire-safe encoded audio chunk.
//   - AudioCompleted (audio_complete): audio response fully delivered.
//
// Session events (duplex transport only)
//
//   - RecordingStarted (recording_started): upstream acknowledged the
//     start_recording control message.
package events

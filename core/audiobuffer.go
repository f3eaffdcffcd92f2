package council

import "sync"

// audioBuffer accumulates encoded audio chunks between audio_start and
// audio_complete. It is owned by the voice session; the assembled block is
// handed to playback by value and never retained afterwards.
type audioBuffer struct {
	mu sync.Mutex

	chunks [][]byte
}

// Reset discards any buffered chunks. Called on every audio_start.
func (b *audioBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = nil
}

// Append adds one decoded chunk in arrival order.
func (b *audioBuffer) Append(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk)
}

// Take concatenates all buffered chunks into one block and clears the
// buffer, transferring ownership of the bytes to the caller.
func (b *audioBuffer) Take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	assembled := make([]byte, 0, audioLen(b.chunks))
	for _, chunk := range b.chunks {
		assembled = append(assembled, chunk...)
	}
	b.chunks = nil
	return assembled
}

// Len reports the number of buffered bytes.
func (b *audioBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return audioLen(b.chunks)
}

func audioLen(chunks [][]byte) int {
	chunksTotalLength := 0
	for _, chunk := range chunks {
		chunksTotalLength += len(chunk)
	}
	return chunksTotalLength
}

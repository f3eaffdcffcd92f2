package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// Quantize converts normalized float samples into little-endian signed
// 16-bit PCM bytes. Samples outside [-1, 1] are clamped before scaling.
//
// Negative values scale by 32768 and non-negative values by 32767 so both
// extremes map onto the int16 range without overflow.
func Quantize(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(quantizeSample(sample)))
	}
	return pcm
}

func quantizeSample(sample float32) int16 {
	v := float64(sample)
	if v < -1 {
		v = -1
	} else if v > 1 {
		v = 1
	}

	if v < 0 {
		return int16(math.Round(v * 32768))
	}
	return int16(math.Round(v * 32767))
}

// EncodeFrame quantizes captured samples and wraps the PCM bytes in the
// wire-safe alphabet used by the audio message envelope.
func EncodeFrame(samples []float32) string {
	return EncodeBytes(Quantize(samples))
}

// EncodeBytes wraps an already-encoded audio byte block for embedding in a
// textual envelope.
func EncodeBytes(audio []byte) string {
	return base64.StdEncoding.EncodeToString(audio)
}

// DecodeChunk reverses the wire-safe encoding back into raw bytes. The
// result is treated as an opaque audio byte block: playback chunks arrive in
// a compressed container format and are never reinterpreted as samples.
func DecodeChunk(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}

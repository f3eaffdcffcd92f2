package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestQuantizeProducesTwoBytesPerSample(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.5, -0.5, 1, -1}
	pcm := Quantize(samples)

	if len(pcm) != len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(pcm))
	}
}

func TestQuantizeMapsExtremesWithoutOverflow(t *testing.T) {
	pcm := Quantize([]float32{-1, 1})

	low := int16(binary.LittleEndian.Uint16(pcm[0:2]))
	high := int16(binary.LittleEndian.Uint16(pcm[2:4]))

	if low != -32768 {
		t.Fatalf("expected -1.0 to quantize to -32768, got %d", low)
	}
	if high != 32767 {
		t.Fatalf("expected 1.0 to quantize to 32767, got %d", high)
	}
}

func TestQuantizeClampsOutOfRangeSamples(t *testing.T) {
	pcm := Quantize([]float32{-2.5, 3.1})

	low := int16(binary.LittleEndian.Uint16(pcm[0:2]))
	high := int16(binary.LittleEndian.Uint16(pcm[2:4]))

	if low != -32768 {
		t.Fatalf("expected below-range sample to clamp to -32768, got %d", low)
	}
	if high != 32767 {
		t.Fatalf("expected above-range sample to clamp to 32767, got %d", high)
	}
}

func TestQuantizeRoundsToNearest(t *testing.T) {
	pcm := Quantize([]float32{0.5})

	got := int16(binary.LittleEndian.Uint16(pcm))
	if got != 16384 {
		t.Fatalf("expected 0.5 to quantize to 16384, got %d", got)
	}
}

func TestEncodeFrameRoundTripsThroughDecodeChunk(t *testing.T) {
	samples := []float32{0, 0.1, -0.1, 0.9999, -0.9999}

	decoded, err := DecodeChunk(EncodeFrame(samples))
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	if !bytes.Equal(decoded, Quantize(samples)) {
		t.Fatalf("expected decoded bytes to match quantized PCM")
	}
	if len(decoded) != len(samples)*2 {
		t.Fatalf("expected %d decoded bytes, got %d", len(samples)*2, len(decoded))
	}
}

func TestDecodeChunkRejectsInvalidAlphabet(t *testing.T) {
	if _, err := DecodeChunk("not!!valid%%"); err == nil {
		t.Fatalf("expected invalid wire-safe text to fail decoding")
	}
}

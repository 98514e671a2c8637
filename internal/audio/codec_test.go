package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func samplesToPCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestMulawRoundTripWithinTolerance(t *testing.T) {
	samples := []int16{0, 1, -1, 100, -100, 1000, -1000, 16000, -16000, 32767, -32768}
	pcm := samplesToPCM(samples)

	roundTripped := MulawToPcm16(Pcm16ToMulaw(pcm))

	for i, want := range samples {
		got := int16(binary.LittleEndian.Uint16(roundTripped[i*2:]))
		diff := int(want) - int(got)
		if diff < 0 {
			diff = -diff
		}
		// µ-law is lossy; the encode/decode table only guarantees
		// proportional precision near zero, so tolerate larger error at
		// the extremes of the 16-bit range.
		tolerance := 2 + int(want)/256
		if tolerance < 0 {
			tolerance = -tolerance
		}
		assert.LessOrEqualf(t, diff, tolerance+2, "sample %d: want %d got %d", i, want, got)
	}
}

func TestResampleLinearIdentity(t *testing.T) {
	samples := []int16{10, -10, 200, -200, 0, 32000}
	pcm := samplesToPCM(samples)

	out := ResampleLinear(pcm, 16000, 16000)
	assert.Equal(t, pcm, out)
}

func TestResampleLinearLengthFormula(t *testing.T) {
	samples := make([]int16, 160) // 20ms @ 8kHz
	pcm := samplesToPCM(samples)

	out := ResampleLinear(pcm, 8000, 16000)
	assert.Equal(t, 320, len(out)/2)

	out = ResampleLinear(pcm, 16000, 8000)
	assert.Equal(t, 80, len(out)/2)
}

func TestBase64MulawRoundTrip(t *testing.T) {
	samples := []int16{500, -500, 1200, -1200}
	pcm := samplesToPCM(samples)

	b64 := Pcm16ToBase64Mulaw(pcm, 16000, 8000)
	back, err := Base64MulawToPcm16(b64, 8000, 16000)
	assert.NoError(t, err)
	assert.Equal(t, len(pcm), len(back))
}

package audio

import (
	"math"
	"testing"
)

func TestPCM16LERoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 127, -128, 32767, -32768, 12345, -12345}

	got := PCM16LEToShorts(ShortsToPCM16LE(samples))

	if len(got) != len(samples) {
		t.Fatalf("expected %d samples after round trip, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d changed in round trip: expected %d, got %d", i, samples[i], got[i])
		}
	}
}

func TestPCM16LEToShortsDropsTrailingByte(t *testing.T) {
	if got := PCM16LEToShorts([]byte{0x01, 0x02, 0x03}); len(got) != 1 {
		t.Fatalf("expected one sample from 3 bytes, got %d", len(got))
	}
}

func TestRMSOfSilenceIsZero(t *testing.T) {
	if got := RMS(make([]byte, FrameBytes)); got != 0 {
		t.Fatalf("expected zero RMS for silence, got %f", got)
	}
}

func TestRMSOfConstantSignal(t *testing.T) {
	samples := make([]int16, FrameSamples)
	for i := range samples {
		samples[i] = 1000
	}

	got := RMS(ShortsToPCM16LE(samples))
	if math.Abs(got-1000) > 1e-9 {
		t.Fatalf("expected RMS 1000 for constant signal, got %f", got)
	}
}

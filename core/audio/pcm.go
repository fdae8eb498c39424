package audio

import (
	"encoding/binary"
	"math"
)

// ShortsToPCM16LE packs int16 samples into little-endian PCM bytes.
func ShortsToPCM16LE(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
	}
	return data
}

// PCM16LEToShorts unpacks little-endian PCM bytes into int16 samples. A
// trailing odd byte is dropped.
func PCM16LEToShorts(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// RMS computes the root-mean-square energy of a linear16 frame.
func RMS(frame []byte) float64 {
	samples := PCM16LEToShorts(frame)
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

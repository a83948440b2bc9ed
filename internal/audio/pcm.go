package audio

import (
	"encoding/binary"
	"math"
)

// DecodePCM16LE converts signed 16-bit little-endian samples to [-1, 1).
// A trailing odd byte is ignored.
func DecodePCM16LE(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(b[2*i:]))
		out[i] = float32(v) / 32768
	}
	return out
}

// DecodePCMF32LE converts 32-bit little-endian IEEE float samples.
// Trailing bytes that do not form a full sample are ignored.
func DecodePCMF32LE(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func toInt16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		out[i] = int(math.Round(float64(s) * 32767))
	}
	return out
}

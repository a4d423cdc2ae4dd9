package compressor

import (
	"math"
	"testing"
)

func benchmarkProcessInPlace(b *testing.B, blockSize int) {
	c, _ := New(48000, 1)
	_ = c.SetThreshold(-20)
	_ = c.SetRatio(4)

	buf := make([]float64, blockSize)
	for i := range buf {
		buf[i] = 0.7 * math.Sin(2*math.Pi*1000*float64(i)/48000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ProcessInPlace(buf)
	}
}

func BenchmarkProcessInPlace64(b *testing.B)   { benchmarkProcessInPlace(b, 64) }
func BenchmarkProcessInPlace128(b *testing.B)  { benchmarkProcessInPlace(b, 128) }
func BenchmarkProcessInPlace256(b *testing.B)  { benchmarkProcessInPlace(b, 256) }
func BenchmarkProcessInPlace512(b *testing.B)  { benchmarkProcessInPlace(b, 512) }
func BenchmarkProcessInPlace1024(b *testing.B) { benchmarkProcessInPlace(b, 1024) }

func BenchmarkProcessBlockStereo512(b *testing.B) {
	c, _ := New(48000, 2)
	_ = c.SetThreshold(-20)
	_ = c.SetRatio(4)
	_ = c.SetKnee(6)

	channels := [][]float64{make([]float64, 512), make([]float64, 512)}
	for i := range channels[0] {
		channels[0][i] = 0.7 * math.Sin(2*math.Pi*1000*float64(i)/48000)
		channels[1][i] = channels[0][i]
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ProcessBlock(channels)
	}
}

func BenchmarkComputeGain(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ComputeGain(-10, -20, 4, 6)
	}
}

package thd

import (
	"math"
	"testing"
)

func benchmarkAnalyzeSignal(b *testing.B, n int) {
	const sr = 48000.0

	freq := 64 * sr / float64(n)
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * freq * float64(i) / sr)
	}

	cfg := Config{SampleRate: sr, FFTSize: n, FundamentalFreq: freq}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AnalyzeSignal(signal, cfg)
	}
}

func BenchmarkAnalyzeSignal1024(b *testing.B)  { benchmarkAnalyzeSignal(b, 1024) }
func BenchmarkAnalyzeSignal4096(b *testing.B)  { benchmarkAnalyzeSignal(b, 4096) }
func BenchmarkAnalyzeSignal16384(b *testing.B) { benchmarkAnalyzeSignal(b, 16384) }

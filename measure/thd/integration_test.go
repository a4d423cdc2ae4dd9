package thd_test

import (
	"testing"

	"github.com/cwbudde/algo-compressor/dsp/compressor"
	"github.com/cwbudde/algo-compressor/dsp/core"
	"github.com/cwbudde/algo-compressor/dsp/signal"
	"github.com/cwbudde/algo-compressor/measure/thd"
)

// TestCompressorAddsHarmonicDistortion runs a steady tone through a hard
// compressor with fast time constants and verifies the gain ripple shows up
// as measurable harmonic content, well above the clean tone's floor.
func TestCompressorAddsHarmonicDistortion(t *testing.T) {
	const (
		sr  = 48000.0
		n   = 4096
		bin = 64
	)

	freq := float64(bin) * sr / float64(n)

	gen := signal.NewGenerator(core.WithSampleRate(sr))

	clean, err := gen.Sine(freq, 0.9, 2*n)
	if err != nil {
		t.Fatal(err)
	}

	comp, err := compressor.New(sr, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := comp.SetThreshold(-20); err != nil {
		t.Fatal(err)
	}
	if err := comp.SetRatio(10); err != nil {
		t.Fatal(err)
	}
	if err := comp.SetAttack(0.02); err != nil {
		t.Fatal(err)
	}
	if err := comp.SetRelease(10); err != nil {
		t.Fatal(err)
	}

	compressed := make([]float64, len(clean))
	copy(compressed, clean)
	comp.ProcessInPlace(compressed)

	cfg := thd.Config{
		SampleRate:      sr,
		FFTSize:         n,
		FundamentalFreq: freq,
	}

	// Analyze the second half of each signal, past the attack transient.
	cleanRes, err := thd.AnalyzeSignal(clean[n:], cfg)
	if err != nil {
		t.Fatal(err)
	}
	compRes, err := thd.AnalyzeSignal(compressed[n:], cfg)
	if err != nil {
		t.Fatal(err)
	}

	if cleanRes.THD > 1e-3 {
		t.Fatalf("clean THD = %g, want below 1e-3", cleanRes.THD)
	}
	if compRes.THD <= cleanRes.THD {
		t.Fatalf("compressed THD %g not above clean THD %g", compRes.THD, cleanRes.THD)
	}
}

// TestSoftKneeMeasuresLowerDistortion drives a tone whose detected level
// sits right at the threshold, where the hard knee's slope discontinuity
// produces the strongest gain ripple. A wide knee interpolates the slope
// through that region and must measure less harmonic content.
func TestSoftKneeMeasuresLowerDistortion(t *testing.T) {
	const (
		sr  = 48000.0
		n   = 4096
		bin = 64
	)

	freq := float64(bin) * sr / float64(n)

	gen := signal.NewGenerator(core.WithSampleRate(sr))

	// Amplitude 0.45 puts the RMS level near -10 dB, matching the threshold.
	input, err := gen.Sine(freq, 0.45, 2*n)
	if err != nil {
		t.Fatal(err)
	}

	process := func(kneeDB float64) []float64 {
		comp, err := compressor.New(sr, 1)
		if err != nil {
			t.Fatal(err)
		}
		if err := comp.SetThreshold(-10); err != nil {
			t.Fatal(err)
		}
		if err := comp.SetRatio(10); err != nil {
			t.Fatal(err)
		}
		if err := comp.SetKnee(kneeDB); err != nil {
			t.Fatal(err)
		}
		if err := comp.SetAttack(0.02); err != nil {
			t.Fatal(err)
		}
		if err := comp.SetRelease(10); err != nil {
			t.Fatal(err)
		}

		out := make([]float64, len(input))
		copy(out, input)
		comp.ProcessInPlace(out)
		return out
	}

	cfg := thd.Config{
		SampleRate:      sr,
		FFTSize:         n,
		FundamentalFreq: freq,
	}

	hardRes, err := thd.AnalyzeSignal(process(0)[n:], cfg)
	if err != nil {
		t.Fatal(err)
	}
	softRes, err := thd.AnalyzeSignal(process(12)[n:], cfg)
	if err != nil {
		t.Fatal(err)
	}

	if softRes.THD >= hardRes.THD {
		t.Fatalf("soft-knee THD %g not below hard-knee THD %g", softRes.THD, hardRes.THD)
	}
}

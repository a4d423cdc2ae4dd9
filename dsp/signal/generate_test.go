package signal

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-compressor/dsp/core"
)

func TestSineLength(t *testing.T) {
	g := NewGenerator(core.WithSampleRate(48000))
	s, err := g.Sine(1000, 1, 64)
	if err != nil {
		t.Fatalf("Sine() error = %v", err)
	}
	if len(s) != 64 {
		t.Fatalf("len = %d, want 64", len(s))
	}
}

func TestSineValidation(t *testing.T) {
	g := NewGenerator(core.WithSampleRate(48000))
	if _, err := g.Sine(1000, 1, 0); err == nil {
		t.Fatal("expected error for zero samples")
	}

	noRate := &Generator{}
	if _, err := noRate.Sine(1000, 1, 64); err == nil {
		t.Fatal("expected error for missing sample rate")
	}
}

func TestBurstLayout(t *testing.T) {
	g := NewGenerator(core.WithSampleRate(48000))
	out, err := g.Burst(1000, 0.5, 16, 32, 8)
	if err != nil {
		t.Fatalf("Burst() error = %v", err)
	}
	if len(out) != 56 {
		t.Fatalf("len = %d, want 56", len(out))
	}

	for i := 0; i < 16; i++ {
		if out[i] != 0 {
			t.Fatalf("lead-in sample %d = %v, want 0", i, out[i])
		}
	}
	for i := 48; i < 56; i++ {
		if out[i] != 0 {
			t.Fatalf("tail sample %d = %v, want 0", i, out[i])
		}
	}

	peak := 0.0
	for _, v := range out[16:48] {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		t.Fatal("burst body is silent")
	}
}

func TestBurstValidation(t *testing.T) {
	g := NewGenerator(core.WithSampleRate(48000))
	if _, err := g.Burst(1000, 1, -1, 32, 0); err == nil {
		t.Fatal("expected error for negative lead-in")
	}
	if _, err := g.Burst(1000, 1, 0, 0, 0); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestStep(t *testing.T) {
	g := NewGenerator()
	out, err := g.Step(0.75, 8, 3)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	for i, v := range out {
		want := 0.0
		if i >= 3 {
			want = 0.75
		}
		if v != want {
			t.Fatalf("out[%d]=%v, want %v", i, v, want)
		}
	}
}

func TestStepValidation(t *testing.T) {
	g := NewGenerator()
	if _, err := g.Step(1, 0, 0); err == nil {
		t.Fatal("expected error for zero samples")
	}
	if _, err := g.Step(1, 8, 9); err == nil {
		t.Fatal("expected error for onset past end")
	}
}

func TestWhiteNoiseDeterministic(t *testing.T) {
	g1 := NewGeneratorWithOptions(nil, WithSeed(42))
	g2 := NewGeneratorWithOptions(nil, WithSeed(42))

	n1, err := g1.WhiteNoise(1, 16)
	if err != nil {
		t.Fatalf("WhiteNoise() error = %v", err)
	}
	n2, err := g2.WhiteNoise(1, 16)
	if err != nil {
		t.Fatalf("WhiteNoise() error = %v", err)
	}

	for i := range n1 {
		if n1[i] != n2[i] {
			t.Fatalf("noise mismatch at %d: %v != %v", i, n1[i], n2[i])
		}
	}
}

func TestWhiteNoiseSeedsDiffer(t *testing.T) {
	a, err := NewGeneratorWithOptions(nil, WithSeed(1)).WhiteNoise(1, 8)
	if err != nil {
		t.Fatalf("WhiteNoise() error = %v", err)
	}
	b, err := NewGeneratorWithOptions(nil, WithSeed(2)).WhiteNoise(1, 8)
	if err != nil {
		t.Fatalf("WhiteNoise() error = %v", err)
	}

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different seeds to produce different noise")
	}
}

func TestNormalize(t *testing.T) {
	out, err := Normalize([]float64{-0.5, 1.0, -0.25}, 0.5)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out[1] != 0.5 {
		t.Fatalf("peak = %v, want 0.5", out[1])
	}
}

func TestNormalizeSilence(t *testing.T) {
	out, err := Normalize([]float64{0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d]=%v, want 0", i, v)
		}
	}
}

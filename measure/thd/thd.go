// Package thd measures total harmonic distortion of a time-domain signal.
//
// The analyzer windows the signal with a Hann window, transforms it with an
// FFT, locates the fundamental, and sums the energy found at integer
// multiples of the fundamental bin. It is intended for verifying how much
// distortion a dynamics processor adds to a steady test tone.
package thd

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	defaultRangeLowerHz = 20.0
	defaultRangeUpperHz = 20000.0

	// The Hann main lobe spans two bins to the first minimum.
	hannCaptureBins = 2
)

// Config holds analysis parameters. Zero values select sensible defaults:
// the FFT size grows to the next power of two covering the signal, the
// fundamental is auto-detected as the strongest in-range bin, and the
// capture width matches the Hann main lobe.
type Config struct {
	SampleRate      float64
	FFTSize         int
	FundamentalFreq float64
	RangeLowerFreq  float64
	RangeUpperFreq  float64
	CaptureBins     int
	MaxHarmonics    int
}

// Result holds distortion measurement results. Ratios are linear relative to
// the fundamental level; SINAD is in dB.
type Result struct {
	FundamentalFreq  float64
	FundamentalLevel float64
	THD              float64
	THDN             float64
	THDdB            float64
	THDNdB           float64
	OddHD            float64
	EvenHD           float64
	Noise            float64
	Harmonics        []float64
	SINAD            float64
}

// Analyzer performs harmonic distortion analysis.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an analyzer with normalized configuration.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: normalizeConfig(cfg)}
}

// AnalyzeSignal is a one-shot analysis of a real-valued time-domain signal.
func AnalyzeSignal(signal []float64, cfg Config) (Result, error) {
	return NewAnalyzer(cfg).AnalyzeSignal(signal)
}

// AnalyzeSignal windows the signal, transforms it, and evaluates the
// distortion metrics.
func (a *Analyzer) AnalyzeSignal(signal []float64) (Result, error) {
	if len(signal) == 0 {
		return Result{}, nil
	}

	cfg := a.cfg

	fftSize := cfg.FFTSize
	if fftSize <= 0 {
		fftSize = nextPowerOf2(len(signal))
	}
	if fftSize <= 1 {
		return Result{}, nil
	}

	inData := make([]complex128, fftSize)
	applyHann(inData, signal)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Result{}, err
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, inData); err != nil {
		return Result{}, err
	}

	cfg.FFTSize = fftSize
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = float64(fftSize)
	}

	return Analyzer{cfg: cfg}.fromSpectrum(out), nil
}

// fromSpectrum computes the metrics from a full complex spectrum.
func (a Analyzer) fromSpectrum(spectrum []complex128) Result {
	binCount := len(spectrum)/2 + 1
	if binCount <= 1 {
		return Result{}
	}

	mag := make([]float64, binCount)
	for i := range mag {
		mag[i] = math.Hypot(real(spectrum[i]), imag(spectrum[i]))
	}

	return a.fromMagnitude(mag)
}

// fromMagnitude computes the metrics from the non-negative-frequency
// magnitude bins [0..Nyquist].
func (a Analyzer) fromMagnitude(mag []float64) Result {
	cfg := a.cfg

	binCount := len(mag)
	maxBin := binCount - 1

	binHz := cfg.SampleRate / float64(cfg.FFTSize)
	if binHz <= 0 {
		return Result{}
	}

	lowerBin := clampInt(int(math.Round(cfg.RangeLowerFreq/binHz)), 1, maxBin)
	upperBin := clampInt(int(math.Round(cfg.RangeUpperFreq/binHz)), lowerBin, maxBin)

	fundamentalBin := a.findFundamentalBin(mag, lowerBin, upperBin, binHz)
	if fundamentalBin < 1 || fundamentalBin > maxBin {
		return Result{}
	}

	captureBins := cfg.CaptureBins
	if captureBins*2 > fundamentalBin {
		captureBins = fundamentalBin / 2
	}

	fundamentalLevel := binValue(mag, fundamentalBin, captureBins)
	if fundamentalLevel <= 0 {
		return Result{FundamentalFreq: float64(fundamentalBin) * binHz}
	}

	thdAbs := 0.0
	oddAbs := 0.0
	evenAbs := 0.0
	harmonics := make([]float64, 0, 8)

	for k := 2; ; k++ {
		if cfg.MaxHarmonics > 0 && len(harmonics) >= cfg.MaxHarmonics {
			break
		}

		bin := k * fundamentalBin
		if bin > upperBin || bin > maxBin {
			break
		}
		if bin < lowerBin {
			continue
		}

		value := binValue(mag, bin, captureBins)

		thdAbs += value
		if k%2 == 0 {
			evenAbs += value
		} else {
			oddAbs += value
		}

		harmonics = append(harmonics, value/fundamentalLevel)
	}

	totalAbs := 0.0
	for i := lowerBin; i <= upperBin; i++ {
		totalAbs += mag[i]
	}

	thdnAbs := totalAbs - fundamentalLevel
	if thdnAbs < 0 {
		thdnAbs = 0
	}

	noiseAbs := thdnAbs - thdAbs
	if noiseAbs < 0 {
		noiseAbs = 0
	}

	thd := thdAbs / fundamentalLevel
	thdn := thdnAbs / fundamentalLevel

	sinad := math.Inf(1)
	if thdn > 0 {
		sinad = 20 * math.Log10(1/thdn)
	}

	return Result{
		FundamentalFreq:  float64(fundamentalBin) * binHz,
		FundamentalLevel: fundamentalLevel,
		THD:              thd,
		THDN:             thdn,
		THDdB:            ratioToDB(thd),
		THDNdB:           ratioToDB(thdn),
		OddHD:            oddAbs / fundamentalLevel,
		EvenHD:           evenAbs / fundamentalLevel,
		Noise:            noiseAbs / fundamentalLevel,
		Harmonics:        harmonics,
		SINAD:            sinad,
	}
}

func (a Analyzer) findFundamentalBin(mag []float64, lowerBin, upperBin int, binHz float64) int {
	if a.cfg.FundamentalFreq > 0 {
		bin := int(math.Round(a.cfg.FundamentalFreq / binHz))
		return clampInt(bin, lowerBin, upperBin)
	}

	bestBin := lowerBin
	bestVal := -1.0

	for i := lowerBin; i <= upperBin; i++ {
		if mag[i] > bestVal {
			bestVal = mag[i]
			bestBin = i
		}
	}

	return bestBin
}

// applyHann copies the signal into the complex buffer with a Hann window,
// zero-padding the remainder.
func applyHann(dst []complex128, signal []float64) {
	n := len(signal)
	if n == 1 {
		dst[0] = complex(signal[0], 0)
		return
	}

	scale := 2 * math.Pi / float64(n-1)
	for i, v := range signal {
		w := 0.5 * (1 - math.Cos(scale*float64(i)))
		dst[i] = complex(v*w, 0)
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.RangeLowerFreq <= 0 {
		cfg.RangeLowerFreq = defaultRangeLowerHz
	}
	if cfg.RangeUpperFreq <= 0 {
		cfg.RangeUpperFreq = defaultRangeUpperHz
	}
	if cfg.RangeUpperFreq < cfg.RangeLowerFreq {
		cfg.RangeUpperFreq = cfg.RangeLowerFreq
	}
	if cfg.CaptureBins <= 0 {
		cfg.CaptureBins = hannCaptureBins
	}
	if cfg.MaxHarmonics < 0 {
		cfg.MaxHarmonics = 0
	}

	return cfg
}

// binValue sums the magnitude across a bin and its capture neighbourhood.
func binValue(mag []float64, bin, captureBins int) float64 {
	if bin < 0 || bin >= len(mag) {
		return 0
	}

	lo := bin - captureBins
	if lo < 0 {
		lo = 0
	}

	hi := bin + captureBins
	if hi >= len(mag) {
		hi = len(mag) - 1
	}

	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += mag[i]
	}

	return sum
}

func ratioToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v)
}

func clampInt(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}

	return val
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

package envelope

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-compressor/dsp/core"
)

// Mode selects how the raw sample is conditioned before smoothing.
type Mode int32

const (
	// ModePeak smooths the absolute sample value.
	ModePeak Mode = iota
	// ModeMeanSquare smooths the squared sample value.
	ModeMeanSquare
	// ModeRMS smooths the squared sample value and square-roots the result.
	ModeRMS
)

const (
	// LogFloorDB is returned in log-domain mode when the envelope is zero,
	// instead of -Inf. It corresponds to the 16-bit noise floor.
	LogFloorDB = -96.0

	// Time-constant scaling exponents from the classic level-detector
	// design: digital targets 1% residual, analogue 36.7%, approximating
	// the capacitor discharge curve of analogue hardware.
	digitalTC = -2.0                // log10(1%)
	analogTC  = -0.4353339357479107 // log10(36.7%)

	// minTimeMs guards the coefficient derivation against division by zero.
	minTimeMs = 0.01

	maxTimeMs = 10000.0
)

// Config holds the initial detector settings.
type Config struct {
	SampleRate float64
	AttackMs   float64
	ReleaseMs  float64
	AnalogTC   bool
	Mode       Mode
	LogDomain  bool
}

// Detector is a one-pole envelope follower with independent attack and
// release time constants.
//
// The envelope field is written only by the thread calling Detect. All
// configuration that crosses the control/audio thread boundary is stored in
// atomic fields, so setters are safe to call while Detect runs and take
// effect on the next sample without resetting the envelope.
type Detector struct {
	// Control-thread-owned configuration (read only by setters).
	sampleRate float64
	attackMs   float64
	releaseMs  float64
	analogTC   bool

	// Shared, crossed by atomic access.
	attackCoeff  core.AtomicFloat64
	releaseCoeff core.AtomicFloat64
	mode         atomic.Int32
	logDomain    atomic.Bool

	// Audio-thread-owned running state.
	envelope float64
}

// New creates a detector from cfg. Sample rate and both time constants must
// be positive and finite.
func New(cfg Config) (*Detector, error) {
	if cfg.SampleRate <= 0 || !core.IsFinite(cfg.SampleRate) {
		return nil, fmt.Errorf("envelope sample rate must be positive and finite: %f", cfg.SampleRate)
	}
	if cfg.AttackMs <= 0 || !core.IsFinite(cfg.AttackMs) {
		return nil, fmt.Errorf("envelope attack must be positive and finite: %f", cfg.AttackMs)
	}
	if cfg.ReleaseMs <= 0 || !core.IsFinite(cfg.ReleaseMs) {
		return nil, fmt.Errorf("envelope release must be positive and finite: %f", cfg.ReleaseMs)
	}
	if cfg.Mode != ModePeak && cfg.Mode != ModeMeanSquare && cfg.Mode != ModeRMS {
		return nil, fmt.Errorf("invalid detect mode: %d", cfg.Mode)
	}

	d := &Detector{
		sampleRate: cfg.SampleRate,
		attackMs:   cfg.AttackMs,
		releaseMs:  cfg.ReleaseMs,
		analogTC:   cfg.AnalogTC,
	}
	d.mode.Store(int32(cfg.Mode))
	d.logDomain.Store(cfg.LogDomain)
	d.recalculateCoefficients()

	return d, nil
}

// SetSampleRate updates the sample rate and recomputes both coefficients.
// The running envelope is preserved.
func (d *Detector) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("envelope sample rate must be positive and finite: %f", sampleRate)
	}

	d.sampleRate = sampleRate
	d.recalculateCoefficients()

	return nil
}

// SetAttack updates the attack time constant in milliseconds.
func (d *Detector) SetAttack(ms float64) error {
	if ms <= 0 || ms > maxTimeMs || !core.IsFinite(ms) {
		return fmt.Errorf("envelope attack must be in (0, %f]: %f", maxTimeMs, ms)
	}

	d.attackMs = ms
	d.attackCoeff.Store(d.coefficient(ms))

	return nil
}

// SetRelease updates the release time constant in milliseconds.
func (d *Detector) SetRelease(ms float64) error {
	if ms <= 0 || ms > maxTimeMs || !core.IsFinite(ms) {
		return fmt.Errorf("envelope release must be in (0, %f]: %f", maxTimeMs, ms)
	}

	d.releaseMs = ms
	d.releaseCoeff.Store(d.coefficient(ms))

	return nil
}

// SetAnalogTC switches between analogue and digital time-constant curves.
func (d *Detector) SetAnalogTC(analog bool) {
	d.analogTC = analog
	d.recalculateCoefficients()
}

// SetMode switches the detection pre-processing.
func (d *Detector) SetMode(mode Mode) error {
	if mode != ModePeak && mode != ModeMeanSquare && mode != ModeRMS {
		return fmt.Errorf("invalid detect mode: %d", mode)
	}

	d.mode.Store(int32(mode))

	return nil
}

// SetLogDomain toggles dB-scaled output.
func (d *Detector) SetLogDomain(enabled bool) {
	d.logDomain.Store(enabled)
}

// Mode returns the current detection mode.
func (d *Detector) Mode() Mode { return Mode(d.mode.Load()) }

// LogDomain reports whether dB-scaled output is enabled.
func (d *Detector) LogDomain() bool { return d.logDomain.Load() }

// AnalogTC reports whether the analogue time-constant curve is selected.
func (d *Detector) AnalogTC() bool { return d.analogTC }

// Attack returns the attack time constant in milliseconds.
func (d *Detector) Attack() float64 { return d.attackMs }

// Release returns the release time constant in milliseconds.
func (d *Detector) Release() float64 { return d.releaseMs }

// SampleRate returns the configured sample rate in Hz.
func (d *Detector) SampleRate() float64 { return d.sampleRate }

// Envelope returns the current envelope value (linear, pre log conversion).
func (d *Detector) Envelope() float64 { return d.envelope }

// Reset clears the running envelope.
func (d *Detector) Reset() {
	d.envelope = 0
}

// Detect consumes one sample and returns the updated level estimate.
//
// In log-domain mode the result is in dB, floored at LogFloorDB so a silent
// input never produces -Inf or NaN. Non-finite input samples are treated as
// silence rather than poisoning the filter state.
func (d *Detector) Detect(input float64) float64 {
	v := math.Abs(input)
	if !core.IsFinite(v) {
		v = 0
	}

	mode := Mode(d.mode.Load())
	if mode != ModePeak {
		v *= v
	}

	if v > d.envelope {
		coeff := d.attackCoeff.Load()
		d.envelope = coeff*(d.envelope-v) + v
	} else {
		coeff := d.releaseCoeff.Load()
		d.envelope = coeff*(d.envelope-v) + v
	}

	d.envelope = core.FlushDenormals(d.envelope)
	if d.envelope < 0 {
		d.envelope = 0
	}

	level := d.envelope
	if mode == ModeRMS {
		level = mathSqrt(level)
	}

	if !d.logDomain.Load() {
		return level
	}

	if level <= 0 {
		return LogFloorDB
	}

	db := 20 * mathLog10(level)
	if db < LogFloorDB || math.IsNaN(db) {
		db = LogFloorDB
	}

	return db
}

// coefficient derives the one-pole smoothing coefficient for a millisecond
// time constant at the current sample rate.
func (d *Detector) coefficient(ms float64) float64 {
	if ms < minTimeMs {
		ms = minTimeMs
	}

	tc := digitalTC
	if d.analogTC {
		tc = analogTC
	}

	return math.Exp(tc / (ms * 0.001 * d.sampleRate))
}

func (d *Detector) recalculateCoefficients() {
	d.attackCoeff.Store(d.coefficient(d.attackMs))
	d.releaseCoeff.Store(d.coefficient(d.releaseMs))
}

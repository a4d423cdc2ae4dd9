package compressor

import (
	"fmt"

	"github.com/cwbudde/algo-compressor/dsp/core"
	"github.com/cwbudde/algo-compressor/dsp/envelope"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// Defaults match the original hardware-style control surface.
	defaultThresholdDB    = 0.0
	defaultRatio          = 4.0
	defaultKneeDB         = 0.0
	defaultAttackMs       = 10.0
	defaultReleaseMs      = 200.0
	defaultDetectorGainDB = 0.0
	defaultOutputGainDB   = 0.0

	// Control-surface parameter ranges.
	minThresholdDB    = -60.0
	maxThresholdDB    = 0.0
	minRatio          = 1.0
	maxRatio          = 20.0
	minKneeDB         = 0.0
	maxKneeDB         = 20.0
	minAttackMs       = 0.02
	maxAttackMs       = 300.0
	minReleaseMs      = 10.0
	maxReleaseMs      = 5000.0
	minDetectorGainDB = -12.0
	maxDetectorGainDB = 12.0
	minOutputGainDB   = 0.0
	maxOutputGainDB   = 40.0
)

// Params is a value snapshot of the control-surface parameters. The audio
// thread takes one snapshot per block and passes it by value into the
// per-sample computation, so a mid-block parameter write never tears a
// single sample's calculation.
type Params struct {
	ThresholdDB  float64
	Ratio        float64
	KneeDB       float64
	DetectorGain float64 // linear
	OutputGain   float64 // linear
}

// Compressor is a multi-channel dynamics processor: per-channel envelope
// detection feeding the static gain curve, with detector-gain input staging
// and output-gain makeup.
//
// ProcessBlock and Reset belong to the audio thread. All Set* methods may be
// called concurrently from a control thread; each parameter is stored in an
// atomic field. Channel 0 is the canonical telemetry channel for the
// gain-reduction and input-peak meters.
type Compressor struct {
	sampleRate float64
	detectors  []*envelope.Detector

	// Control-thread-owned mirrors for getters.
	attackMs  float64
	releaseMs float64
	analogTC  bool

	// Shared parameter block, crossed by atomic access.
	thresholdDB  core.AtomicFloat64
	ratio        core.AtomicFloat64
	kneeDB       core.AtomicFloat64
	detectorGain core.AtomicFloat64
	outputGain   core.AtomicFloat64

	// Telemetry, written by the audio thread once per block.
	gainReductionDB core.AtomicFloat64
	inputPeak       core.AtomicFloat64

	// Audio-thread-owned scratch.
	gains []float64
	mono  [1][]float64
}

// New creates a compressor for the given sample rate and channel count.
//
// Detection defaults to RMS with log-domain output and digital time
// constants; the gain computer assumes dB-scale detected levels, so the
// detectors always run in log-domain mode.
func New(sampleRate float64, numChannels int) (*Compressor, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}
	if numChannels < 1 {
		return nil, fmt.Errorf("compressor needs at least one channel: %d", numChannels)
	}

	c := &Compressor{
		sampleRate: sampleRate,
		detectors:  make([]*envelope.Detector, numChannels),
		attackMs:   defaultAttackMs,
		releaseMs:  defaultReleaseMs,
	}

	for i := range c.detectors {
		det, err := envelope.New(envelope.Config{
			SampleRate: sampleRate,
			AttackMs:   defaultAttackMs,
			ReleaseMs:  defaultReleaseMs,
			Mode:       envelope.ModeRMS,
			LogDomain:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("compressor detector %d: %w", i, err)
		}

		c.detectors[i] = det
	}

	c.thresholdDB.Store(defaultThresholdDB)
	c.ratio.Store(defaultRatio)
	c.kneeDB.Store(defaultKneeDB)
	c.detectorGain.Store(core.DBToLinear(defaultDetectorGainDB))
	c.outputGain.Store(core.DBToLinear(defaultOutputGainDB))

	return c, nil
}

// SetThreshold sets the compression threshold in dB. Range: -60 to 0.
func (c *Compressor) SetThreshold(dB float64) error {
	if dB < minThresholdDB || dB > maxThresholdDB || !core.IsFinite(dB) {
		return fmt.Errorf("compressor threshold must be in [%f, %f]: %f", minThresholdDB, maxThresholdDB, dB)
	}

	c.thresholdDB.Store(dB)

	return nil
}

// SetRatio sets the compression ratio. Range: 1 to 20; ratio 1 means no
// compression.
func (c *Compressor) SetRatio(ratio float64) error {
	if ratio < minRatio || ratio > maxRatio || !core.IsFinite(ratio) {
		return fmt.Errorf("compressor ratio must be in [%f, %f]: %f", minRatio, maxRatio, ratio)
	}

	c.ratio.Store(ratio)

	return nil
}

// SetKnee sets the soft-knee width in dB. Range: 0 to 20; 0 is a hard knee.
func (c *Compressor) SetKnee(kneeDB float64) error {
	if kneeDB < minKneeDB || kneeDB > maxKneeDB || !core.IsFinite(kneeDB) {
		return fmt.Errorf("compressor knee must be in [%f, %f]: %f", minKneeDB, maxKneeDB, kneeDB)
	}

	c.kneeDB.Store(kneeDB)

	return nil
}

// SetAttack sets the detector attack time in milliseconds for every
// channel. Range: 0.02 to 300. The running envelopes are preserved.
func (c *Compressor) SetAttack(ms float64) error {
	if ms < minAttackMs || ms > maxAttackMs || !core.IsFinite(ms) {
		return fmt.Errorf("compressor attack must be in [%f, %f]: %f", minAttackMs, maxAttackMs, ms)
	}

	for _, det := range c.detectors {
		if err := det.SetAttack(ms); err != nil {
			return err
		}
	}

	c.attackMs = ms

	return nil
}

// SetRelease sets the detector release time in milliseconds for every
// channel. Range: 10 to 5000. The running envelopes are preserved.
func (c *Compressor) SetRelease(ms float64) error {
	if ms < minReleaseMs || ms > maxReleaseMs || !core.IsFinite(ms) {
		return fmt.Errorf("compressor release must be in [%f, %f]: %f", minReleaseMs, maxReleaseMs, ms)
	}

	for _, det := range c.detectors {
		if err := det.SetRelease(ms); err != nil {
			return err
		}
	}

	c.releaseMs = ms

	return nil
}

// SetAnalogTC switches every detector between analogue and digital
// time-constant curves.
func (c *Compressor) SetAnalogTC(analog bool) {
	for _, det := range c.detectors {
		det.SetAnalogTC(analog)
	}

	c.analogTC = analog
}

// SetDetectMode switches the detection pre-processing for every channel.
func (c *Compressor) SetDetectMode(mode envelope.Mode) error {
	for _, det := range c.detectors {
		if err := det.SetMode(mode); err != nil {
			return err
		}
	}

	return nil
}

// SetDetectorGain sets the pre-detector input gain in dB. Range: -12 to +12.
// Stored and applied as a linear factor.
func (c *Compressor) SetDetectorGain(dB float64) error {
	if dB < minDetectorGainDB || dB > maxDetectorGainDB || !core.IsFinite(dB) {
		return fmt.Errorf("compressor detector gain must be in [%f, %f] dB: %f", minDetectorGainDB, maxDetectorGainDB, dB)
	}

	c.detectorGain.Store(core.DBToLinear(dB))

	return nil
}

// SetOutputGain sets the make-up output gain in dB. Range: 0 to 40.
// Stored and applied as a linear factor.
func (c *Compressor) SetOutputGain(dB float64) error {
	if dB < minOutputGainDB || dB > maxOutputGainDB || !core.IsFinite(dB) {
		return fmt.Errorf("compressor output gain must be in [%f, %f] dB: %f", minOutputGainDB, maxOutputGainDB, dB)
	}

	c.outputGain.Store(core.DBToLinear(dB))

	return nil
}

// SetSampleRate updates the sample rate for every channel and recomputes
// detector coefficients. Intended for stream restarts, not mid-stream use.
func (c *Compressor) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}

	for _, det := range c.detectors {
		if err := det.SetSampleRate(sampleRate); err != nil {
			return err
		}
	}

	c.sampleRate = sampleRate

	return nil
}

// Threshold returns the threshold in dB.
func (c *Compressor) Threshold() float64 { return c.thresholdDB.Load() }

// Ratio returns the compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio.Load() }

// Knee returns the knee width in dB.
func (c *Compressor) Knee() float64 { return c.kneeDB.Load() }

// Attack returns the attack time in milliseconds.
func (c *Compressor) Attack() float64 { return c.attackMs }

// Release returns the release time in milliseconds.
func (c *Compressor) Release() float64 { return c.releaseMs }

// AnalogTC reports whether the analogue time-constant curve is selected.
func (c *Compressor) AnalogTC() bool { return c.analogTC }

// DetectMode returns the current detection mode.
func (c *Compressor) DetectMode() envelope.Mode { return c.detectors[0].Mode() }

// SampleRate returns the sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// NumChannels returns the number of configured channels.
func (c *Compressor) NumChannels() int { return len(c.detectors) }

// Snapshot returns the current parameter block as a value.
func (c *Compressor) Snapshot() Params {
	return Params{
		ThresholdDB:  c.thresholdDB.Load(),
		Ratio:        c.ratio.Load(),
		KneeDB:       c.kneeDB.Load(),
		DetectorGain: c.detectorGain.Load(),
		OutputGain:   c.outputGain.Load(),
	}
}

// GainReduction returns the most recent block's maximum gain reduction on
// the telemetry channel, in dB (<= 0; 0 means no reduction). Safe to poll
// from a meter at any rate.
func (c *Compressor) GainReduction() float64 { return c.gainReductionDB.Load() }

// InputPeak returns the most recent block's peak absolute input level on
// the telemetry channel, after detector-gain staging.
func (c *Compressor) InputPeak() float64 { return c.inputPeak.Load() }

// ProcessBlock compresses one block of audio in place. channels holds one
// sample slice per channel; channels beyond the configured count are left
// untouched.
//
// Per channel the block is staged through the detector gain, each sample is
// run through the channel's envelope detector and the static gain curve,
// and the resulting gain curve plus output gain is applied.
func (c *Compressor) ProcessBlock(channels [][]float64) {
	n := min(len(channels), len(c.detectors))
	if n == 0 {
		return
	}

	p := c.Snapshot()
	minGain := 1.0

	for ch := 0; ch < n; ch++ {
		buf := channels[ch]
		if len(buf) == 0 {
			continue
		}

		vecmath.ScaleBlockInPlace(buf, p.DetectorGain)

		if ch == 0 {
			c.inputPeak.Store(vecmath.MaxAbs(buf))
		}

		det := c.detectors[ch]

		gains := core.EnsureLen(c.gains, len(buf))
		c.gains = gains

		for i, x := range buf {
			level := det.Detect(x)
			gains[i] = ComputeGain(level, p.ThresholdDB, p.Ratio, p.KneeDB)
		}

		if ch == 0 {
			for _, g := range gains {
				if g < minGain {
					minGain = g
				}
			}
		}

		vecmath.MulBlockInPlace(buf, gains)
		vecmath.ScaleBlockInPlace(buf, p.OutputGain)
	}

	c.gainReductionDB.Store(core.LinearToDB(minGain))
}

// ProcessInPlace compresses a mono buffer in place using channel 0.
func (c *Compressor) ProcessInPlace(buf []float64) {
	c.mono[0] = buf
	c.ProcessBlock(c.mono[:])
	c.mono[0] = nil
}

// Reset clears every detector envelope and the telemetry values.
func (c *Compressor) Reset() {
	for _, det := range c.detectors {
		det.Reset()
	}

	c.gainReductionDB.Store(0)
	c.inputPeak.Store(0)
}

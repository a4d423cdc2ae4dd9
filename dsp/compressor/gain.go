package compressor

import (
	"math"

	"github.com/cwbudde/algo-compressor/dsp/core"
)

// ComputeGain maps a detected level in dB plus static-curve parameters to a
// linear gain multiplier. It is pure and stateless.
//
// The compression slope is CS = 1 - 1/ratio. Outside the knee region the
// hard-knee curve applies: reduction = CS * (threshold - level), clamped so
// the stage never boosts. Inside [threshold-knee/2, threshold+knee/2] the
// slope is interpolated with a 2-point Lagrange polynomial between the knee
// boundary points (threshold-knee/2, 0) and (min(0, threshold+knee/2), CS),
// which makes the curve continuous at both boundaries.
//
// The result is always finite and in (0, 1]; non-finite or out-of-domain
// parameters are treated as their nearest safe value.
func ComputeGain(levelDB, thresholdDB, ratio, kneeDB float64) float64 {
	if !core.IsFinite(levelDB) || !core.IsFinite(thresholdDB) {
		return 1.0
	}
	if ratio < 1 || !core.IsFinite(ratio) {
		ratio = 1
	}
	if kneeDB < 0 || !core.IsFinite(kneeDB) {
		kneeDB = 0
	}

	slope := 1.0 - 1.0/ratio

	if kneeDB > 0 && levelDB > thresholdDB-kneeDB/2 && levelDB < thresholdDB+kneeDB/2 {
		x0 := thresholdDB - kneeDB/2
		x1 := math.Min(0, thresholdDB+kneeDB/2)
		if x1 > x0 {
			slope = lagrange2(x0, x1, 0, slope, levelDB)
		}
	}

	reductionDB := slope * (thresholdDB - levelDB)
	if reductionDB > 0 {
		reductionDB = 0
	}

	gain := mathPower10(reductionDB / 20)
	if gain > 1 {
		gain = 1
	}

	return gain
}

// lagrange2 evaluates the 2-point Lagrange polynomial through (x0, y0) and
// (x1, y1) at x. Callers must ensure x0 != x1.
func lagrange2(x0, x1, y0, y1, x float64) float64 {
	return y0*(x-x1)/(x0-x1) + y1*(x-x0)/(x1-x0)
}

// Package compressor implements a sample-accurate dynamic range compressor.
//
// The static compression curve lives in ComputeGain, a pure function mapping
// a dB-scaled detected level plus threshold/ratio/knee parameters to a linear
// gain multiplier, with optional soft-knee interpolation. Compressor wires
// one envelope.Detector per channel to that curve and applies the resulting
// gain per sample.
//
// ProcessBlock is designed for a real-time audio callback: it never blocks,
// performs no I/O, and allocates only when the host grows the block size.
// Parameter setters are meant for a separate control thread; every parameter
// crossing the thread boundary is a word-sized atomic, and the audio thread
// works from a value snapshot taken once per block. Gain-reduction telemetry
// flows back to the control side the same way.
package compressor

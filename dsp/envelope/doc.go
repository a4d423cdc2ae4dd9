// Package envelope provides a per-channel signal level estimator for
// dynamics processing.
//
// The Detector smooths the instantaneous input magnitude with a one-pole
// filter using separate attack and release time constants, selectable
// peak / mean-square / RMS detection, and digital or analogue time-constant
// curves. Output is linear amplitude or dB.
//
// Detect is real-time safe: it never allocates, blocks, or returns errors.
// Configuration setters may be called from a non-real-time control thread
// while Detect runs; coefficient and mode fields are atomic, and the running
// envelope value is owned exclusively by the processing thread.
package envelope

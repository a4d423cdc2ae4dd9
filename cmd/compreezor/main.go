// Command compreezor applies dynamics compression to a WAV file.
//
// The input file's sample rate and channel count drive the processor
// configuration; each channel gets its own envelope detector. Processing
// runs in fixed-size blocks and the peak gain reduction across the file is
// reported afterwards.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-compressor/dsp/compressor"
	"github.com/cwbudde/algo-compressor/dsp/envelope"
	"github.com/cwbudde/algo-compressor/measure/thd"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func main() {
	input := flag.String("input", "", "Input WAV file path")
	output := flag.String("output", "output.wav", "Output WAV file path")
	threshold := flag.Float64("threshold", -20.0, "Compression threshold in dB (-60 to 0)")
	ratio := flag.Float64("ratio", 4.0, "Compression ratio (1 to 20)")
	knee := flag.Float64("knee", 0.0, "Soft-knee width in dB (0 to 20)")
	attack := flag.Float64("attack", 10.0, "Attack time in ms (0.02 to 300)")
	release := flag.Float64("release", 200.0, "Release time in ms (10 to 5000)")
	detectorGain := flag.Float64("detector-gain", 0.0, "Pre-detector input gain in dB (-12 to 12)")
	outputGain := flag.Float64("output-gain", 0.0, "Make-up output gain in dB (0 to 40)")
	detect := flag.String("detect", "rms", "Detection mode: peak, ms, or rms")
	analogTC := flag.Bool("analog-tc", false, "Use analogue time-constant curves")
	blockSize := flag.Int("block-size", 512, "Processing block size in frames")
	analyze := flag.Bool("analyze", false, "Report THD of channel 0 after processing")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		flag.Usage()
		os.Exit(1)
	}
	if *blockSize < 1 {
		fmt.Fprintln(os.Stderr, "Error: -block-size must be at least 1")
		os.Exit(1)
	}

	channels, sampleRate, err := readWAV(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", *input, err)
		os.Exit(1)
	}

	comp, err := compressor.New(float64(sampleRate), len(channels))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating compressor: %v\n", err)
		os.Exit(1)
	}

	if err := configure(comp, *threshold, *ratio, *knee, *attack, *release, *detectorGain, *outputGain, *detect, *analogTC); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	frames := 0
	if len(channels) > 0 {
		frames = len(channels[0])
	}

	fmt.Printf("Compressing %s: %d channels, %d frames at %d Hz\n", *input, len(channels), frames, sampleRate)
	fmt.Printf("Threshold %.1f dB, ratio %.1f:1, knee %.1f dB, attack %.2f ms, release %.1f ms\n",
		*threshold, *ratio, *knee, *attack, *release)

	maxReduction := processFile(comp, channels, *blockSize)

	fmt.Printf("Peak gain reduction: %.2f dB\n", maxReduction)

	if *analyze && len(channels) > 0 {
		res, err := thd.AnalyzeSignal(channels[0], thd.Config{SampleRate: float64(sampleRate)})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error analyzing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Output THD: %.4f%% (fundamental %.0f Hz)\n", res.THD*100, res.FundamentalFreq)
	}

	if err := writeWAV(*output, channels, sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", *output, err)
		os.Exit(1)
	}

	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, frames)
}

func configure(comp *compressor.Compressor, threshold, ratio, knee, attack, release, detectorGain, outputGain float64, detect string, analogTC bool) error {
	if err := comp.SetThreshold(threshold); err != nil {
		return err
	}
	if err := comp.SetRatio(ratio); err != nil {
		return err
	}
	if err := comp.SetKnee(knee); err != nil {
		return err
	}
	if err := comp.SetAttack(attack); err != nil {
		return err
	}
	if err := comp.SetRelease(release); err != nil {
		return err
	}
	if err := comp.SetDetectorGain(detectorGain); err != nil {
		return err
	}
	if err := comp.SetOutputGain(outputGain); err != nil {
		return err
	}

	var mode envelope.Mode
	switch strings.ToLower(detect) {
	case "peak":
		mode = envelope.ModePeak
	case "ms":
		mode = envelope.ModeMeanSquare
	case "rms":
		mode = envelope.ModeRMS
	default:
		return fmt.Errorf("unknown detect mode %q (want peak, ms, or rms)", detect)
	}
	if err := comp.SetDetectMode(mode); err != nil {
		return err
	}

	comp.SetAnalogTC(analogTC)

	return nil
}

// processFile runs the whole file through the compressor block by block and
// returns the worst gain reduction observed, in dB.
func processFile(comp *compressor.Compressor, channels [][]float64, blockSize int) float64 {
	frames := 0
	if len(channels) > 0 {
		frames = len(channels[0])
	}

	block := make([][]float64, len(channels))
	maxReduction := 0.0

	for off := 0; off < frames; off += blockSize {
		end := off + blockSize
		if end > frames {
			end = frames
		}

		for ch := range channels {
			block[ch] = channels[ch][off:end]
		}

		comp.ProcessBlock(block)

		if gr := comp.GainReduction(); gr < maxReduction {
			maxReduction = gr
		}
	}

	return maxReduction
}

// readWAV decodes a WAV file into per-channel float64 slices.
func readWAV(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}

	numChannels := buf.Format.NumChannels
	frames := len(buf.Data) / numChannels

	channels := make([][]float64, numChannels)
	for ch := range channels {
		channels[ch] = make([]float64, frames)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			channels[ch][i] = float64(buf.Data[i*numChannels+ch])
		}
	}

	return channels, buf.Format.SampleRate, nil
}

// writeWAV encodes per-channel float64 slices as 16-bit PCM.
func writeWAV(path string, channels [][]float64, sampleRate int) error {
	if len(channels) == 0 {
		return fmt.Errorf("no channels to write")
	}

	frames := len(channels[0])
	numChannels := len(channels)

	samples := make([]float32, frames*numChannels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			samples[i*numChannels+ch] = float32(channels[ch][i])
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, numChannels, 1)
	defer encoder.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: numChannels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}

	return encoder.Write(buf)
}

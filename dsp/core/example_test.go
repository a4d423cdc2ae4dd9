package core_test

import (
	"fmt"

	"github.com/cwbudde/algo-compressor/dsp/core"
)

func ExampleApplyProcessorOptions() {
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(44100),
		core.WithBlockSize(256),
	)

	fmt.Printf("sampleRate=%.0f blockSize=%d\n", cfg.SampleRate, cfg.BlockSize)

	// Output:
	// sampleRate=44100 blockSize=256
}

func ExampleDBToLinear() {
	fmt.Printf("%.4f\n", core.DBToLinear(-6.0206))
	fmt.Printf("%.4f\n", core.DBToLinear(0))

	// Output:
	// 0.5000
	// 1.0000
}

func ExampleAtomicFloat64() {
	var threshold core.AtomicFloat64
	threshold.Store(-20)

	fmt.Printf("%.1f dB\n", threshold.Load())

	// Output:
	// -20.0 dB
}

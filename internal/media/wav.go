package media

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ReadWAVMono16k decodes a 16 kHz mono PCM WAV file into float32 samples
// normalized to [-1, 1], the layout the whisper bindings consume.
func ReadWAVMono16k(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if dec.SampleRate != SampleRate {
		return nil, fmt.Errorf("wav sample rate is %d, want %d", dec.SampleRate, SampleRate)
	}
	if dec.NumChans != 1 {
		return nil, fmt.Errorf("wav has %d channels, want mono", dec.NumChans)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / 32768.0
	}
	return samples, nil
}

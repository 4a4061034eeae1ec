// Package audio turns decoded PCM into bounded, overlapping windows sized
// for one transcription call each. Decoding compressed formats is not done
// here; callers hand in WAV (via the ffmpeg collaborator when needed) and
// get back window files plus their global time ranges.
package audio

import (
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// OracleRate is the sample rate the transcription oracle expects.
// Whisper-family models are trained on 16 kHz mono input.
const OracleRate = 16000

// Signal is decoded mono PCM at a known rate. Samples are normalized to
// [-1, 1]; precision beyond what survives a 16-bit round trip is not
// guaranteed and not needed, since resampling here only affects segment
// boundary timing, never playback fidelity.
type Signal struct {
	Samples []float64
	Rate    int
}

// Duration returns the total play time of the signal.
func (s Signal) Duration() time.Duration {
	if s.Rate == 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.Rate)
}

// DecodeWAVFile reads a WAV file into a mono Signal at its source rate.
// Multi-channel input is downmixed by averaging.
func DecodeWAVFile(path string) (Signal, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-provided media path
	if err != nil {
		return Signal{}, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return Signal{}, fmt.Errorf("%w: missing format", ErrInvalidWAV)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth == 0 {
		bitDepth = 16
	}

	return Signal{
		Samples: downmix(buf.Data, buf.Format.NumChannels, bitDepth),
		Rate:    buf.Format.SampleRate,
	}, nil
}

// downmix converts interleaved integer PCM to normalized mono by averaging
// all channels per frame.
func downmix(data []int, channels, bitDepth int) []float64 {
	scale := float64(int64(1) << (bitDepth - 1))
	frames := len(data) / channels

	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c])
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

// Resample converts the signal to the target rate using linear
// interpolation. Interpolation quality only matters for where window
// boundaries land in time, so anything smoother would be wasted work.
func (s Signal) Resample(targetRate int) Signal {
	if targetRate <= 0 || s.Rate == targetRate || len(s.Samples) == 0 {
		return Signal{Samples: s.Samples, Rate: targetRate}
	}

	ratio := float64(s.Rate) / float64(targetRate)
	outLen := int(float64(len(s.Samples)) / ratio)
	if outLen < 1 {
		outLen = 1
	}

	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(s.Samples)-1 {
			out[i] = s.Samples[len(s.Samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = s.Samples[j]*(1-frac) + s.Samples[j+1]*frac
	}
	return Signal{Samples: out, Rate: targetRate}
}

// writeWAV materializes a sample slice as a 16-bit mono WAV file.
func writeWAV(path string, samples []float64, rate int) error {
	f, err := os.Create(path) // #nosec G304 -- path is inside our own temp dir
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, v := range samples {
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		buf.Data[i] = int(v * 32767)
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

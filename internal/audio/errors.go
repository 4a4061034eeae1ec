package audio

import "errors"

// Sentinel errors for audio decoding and chunking.
var (
	// ErrInvalidWAV indicates the input could not be decoded as WAV audio.
	ErrInvalidWAV = errors.New("invalid WAV audio")

	// ErrChunkingFailed indicates a window could not be materialized on disk.
	// Wrap with context: fmt.Errorf("chunk %d: %w", i, ErrChunkingFailed)
	ErrChunkingFailed = errors.New("audio chunking failed")
)

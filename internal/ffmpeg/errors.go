package ffmpeg

import "errors"

// ErrNotFound indicates no usable ffmpeg binary could be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrDecodeFailed indicates ffmpeg ran but could not transcode the input.
var ErrDecodeFailed = errors.New("ffmpeg decode failed")

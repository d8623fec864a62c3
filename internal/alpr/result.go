// Package alpr bridges analysis requests to an external Python worker. Each
// request spawns one worker process: the request document goes to stdin,
// the structured result comes back on stdout.
package alpr

import (
	"fmt"
	"strings"

	"github.com/therealtin05/SmartParking/internal/domain"
)

type DetectRequest struct {
	ImageData string `json:"imageData"`
}

// TrackOptions are the tunables forwarded verbatim to the tracking worker.
type TrackOptions struct {
	FrameSkip     int     `json:"frameSkip"`
	ConfThreshold float64 `json:"confThreshold"`
	IoUThreshold  float64 `json:"iouThreshold"`
}

func DefaultTrackOptions() TrackOptions {
	return TrackOptions{FrameSkip: 1, ConfThreshold: 0.25, IoUThreshold: 0.45}
}

type TrackRequest struct {
	VideoData string `json:"videoData"`
	TrackOptions
}

type DetectResult struct {
	Plates         []domain.Plate `json:"plates"`
	AnnotatedImage string         `json:"annotatedImage,omitempty"`
}

type TrackResult struct {
	UniqueTracks    int    `json:"unique_tracks"`
	FramesProcessed int    `json:"frames_processed"`
	AnnotatedVideo  string `json:"annotatedVideo,omitempty"`
}

// LaunchError: the worker process could not be started at all (interpreter
// missing, permission denied, admission refused).
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string { return "worker launch: " + e.Err.Error() }
func (e *LaunchError) Unwrap() error { return e.Err }

// ExecError: the worker started but exited non-zero. Message carries the
// captured stderr when there is any.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	return fmt.Sprintf("worker exited with code %d", e.ExitCode)
}

// ProtocolError: the worker exited zero but its stdout is not the expected
// structured format, e.g. truncated output from a crash mid-write.
type ProtocolError struct {
	Err    error
	Output string
}

func (e *ProtocolError) Error() string { return "worker output not parseable: " + e.Err.Error() }
func (e *ProtocolError) Unwrap() error { return e.Err }

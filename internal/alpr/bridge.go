package alpr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/therealtin05/SmartParking/internal/config"
)

// Bridge runs one worker process per analysis request. A weighted semaphore
// caps how many worker processes may run at once; a request that cannot be
// admitted before its context expires fails fast instead of queuing
// unboundedly.
type Bridge struct {
	python      string
	plateScript string
	trackScript string
	timeout     time.Duration
	sem         *semaphore.Weighted
}

func NewBridge(cfg config.Worker) *Bridge {
	python := cfg.PythonPath
	if python == "" {
		python = PythonPath(filepath.Dir(cfg.PlateScript))
	}
	maxProcs := cfg.MaxProcs
	if maxProcs <= 0 {
		maxProcs = 4
	}
	log.Info().Str("module", "alpr").Str("python", python).Int64("max_procs", maxProcs).Msg("worker bridge ready")
	return &Bridge{
		python:      python,
		plateScript: cfg.PlateScript,
		trackScript: cfg.TrackScript,
		timeout:     cfg.Timeout,
		sem:         semaphore.NewWeighted(maxProcs),
	}
}

// PythonPath prefers a venv interpreter next to the worker scripts and
// falls back to the system Python.
func PythonPath(scriptDir string) string {
	candidates := []string{
		filepath.Join(scriptDir, "venv", "bin", "python"),
		filepath.Join(scriptDir, "venv", "Scripts", "python.exe"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

func (b *Bridge) DetectPlates(ctx context.Context, imageData string) (*DetectResult, error) {
	var res DetectResult
	if err := b.run(ctx, b.plateScript, DetectRequest{ImageData: imageData}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (b *Bridge) TrackObjects(ctx context.Context, videoData string, opts TrackOptions) (*TrackResult, error) {
	var res TrackResult
	req := TrackRequest{VideoData: videoData, TrackOptions: opts}
	if err := b.run(ctx, b.trackScript, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (b *Bridge) run(ctx context.Context, script string, req any, out any) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return &LaunchError{Err: err}
	}
	defer b.sem.Release(1)

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	doc, err := json.Marshal(req)
	if err != nil {
		return &LaunchError{Err: err}
	}

	cmd := exec.CommandContext(ctx, b.python, script)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(doc)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return &LaunchError{Err: err}
	}
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Warn().Str("module", "alpr").Str("script", script).Int("code", exitErr.ExitCode()).Msg("worker failed")
			return &ExecError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return &ExecError{ExitCode: -1, Stderr: err.Error()}
	}

	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return &ProtocolError{Err: err, Output: stdout.String()}
	}
	log.Debug().Str("module", "alpr").Str("script", script).Dur("took", time.Since(started)).Msg("worker done")
	return nil
}

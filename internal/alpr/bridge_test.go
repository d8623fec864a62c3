package alpr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"
)

// testBridge wires a Bridge to a shell stand-in for the Python worker.
func testBridge(t *testing.T, script string) *Bridge {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell worker stand-in requires a unix shell")
	}
	path := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return &Bridge{
		python:      "/bin/sh",
		plateScript: path,
		trackScript: path,
		timeout:     5 * time.Second,
		sem:         semaphore.NewWeighted(2),
	}
}

func TestDetectPlatesSuccess(t *testing.T) {
	b := testBridge(t, "cat >/dev/null\necho '{\"plates\":[{\"text\":\"ABC123\",\"confidence\":0.92}]}'\n")

	res, err := b.DetectPlates(context.Background(), "ZGF0YQ==")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Plates) != 1 || res.Plates[0].Text != "ABC123" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestWorkerExecutionError(t *testing.T) {
	b := testBridge(t, "cat >/dev/null\necho 'model load failed' >&2\nexit 3\n")

	_, err := b.DetectPlates(context.Background(), "x")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %T: %v", err, err)
	}
	if execErr.ExitCode != 3 || !strings.Contains(execErr.Error(), "model load failed") {
		t.Fatalf("exec error should carry stderr and exit code, got %+v", execErr)
	}
}

func TestWorkerExecutionErrorEmptyStderr(t *testing.T) {
	b := testBridge(t, "cat >/dev/null\nexit 1\n")

	_, err := b.DetectPlates(context.Background(), "x")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %T: %v", err, err)
	}
	if !strings.Contains(execErr.Error(), "exited with code 1") {
		t.Fatalf("empty stderr should fall back to a generic message, got %q", execErr.Error())
	}
}

func TestWorkerProtocolError(t *testing.T) {
	// Truncated output, e.g. a worker that crashed mid-write.
	b := testBridge(t, "cat >/dev/null\nprintf '{\"plates\":['\n")

	_, err := b.DetectPlates(context.Background(), "x")
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %T: %v", err, err)
	}
}

func TestWorkerLaunchError(t *testing.T) {
	b := testBridge(t, "true\n")
	b.python = filepath.Join(t.TempDir(), "no-such-interpreter")

	_, err := b.DetectPlates(context.Background(), "x")
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected *LaunchError, got %T: %v", err, err)
	}
}

func TestAdmissionFailsFastWhenSaturated(t *testing.T) {
	b := testBridge(t, "cat >/dev/null\necho '{}'\n")
	b.sem = semaphore.NewWeighted(1)
	if err := b.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer b.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := b.DetectPlates(ctx, "x")
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("saturated bridge should fail admission as a launch error, got %T: %v", err, err)
	}
}

func TestTrackObjectsForwardsRequestDocument(t *testing.T) {
	// The worker echoes its stdin back; the request document itself is not a
	// valid result, which also proves stdin was fully delivered and closed.
	b := testBridge(t, "cat\n")

	_, err := b.TrackObjects(context.Background(), "dmlkZW8=", DefaultTrackOptions())
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		t.Fatalf("request document should be valid JSON for the worker: %v", err)
	}
	if err != nil {
		t.Fatal(err)
	}
}

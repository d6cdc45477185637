package pipeline

import (
	"os"
	"testing"
	"time"

	"murmur/audio"
)

func TestSegmentRecordsArtifact(t *testing.T) {
	actx := audio.NewFakeContext()
	actx.BlockInterval = 2 * time.Millisecond
	dir := t.TempDir()
	levels := make(chan float64, 64)

	seg := newSegment(40 * time.Millisecond)
	go seg.record(actx, nil, dir, levels)

	select {
	case <-seg.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("segment never finished")
	}

	path, ok := seg.Artifact()
	if !ok {
		t.Fatal("segment produced no artifact")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Error("artifact is not a FLAC file")
	}

	select {
	case level := <-levels:
		if level <= 0 || level > 1 {
			t.Errorf("level = %v, want (0,1]", level)
		}
	default:
		t.Error("no loudness samples emitted")
	}
}

func TestSegmentZeroBlocksYieldsNoArtifact(t *testing.T) {
	actx := audio.NewFakeContext()
	actx.Mute = true

	seg := newSegment(20 * time.Millisecond)
	go seg.record(actx, nil, t.TempDir(), nil)

	select {
	case <-seg.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("segment never finished")
	}

	if path, ok := seg.Artifact(); ok {
		t.Errorf("muted segment produced artifact %q", path)
	}
}

func TestSegmentStopSignal(t *testing.T) {
	actx := audio.NewFakeContext()
	actx.BlockInterval = 2 * time.Millisecond

	seg := newSegment(10 * time.Second)
	start := time.Now()
	go seg.record(actx, nil, t.TempDir(), nil)

	time.Sleep(20 * time.Millisecond)
	seg.Stop()
	seg.Stop() // idempotent

	select {
	case <-seg.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("segment ignored stop signal")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("segment took %v to stop", elapsed)
	}
	if _, ok := seg.Artifact(); !ok {
		t.Error("force-stopped segment with captured audio should still produce an artifact")
	}
}

func TestSegmentCaptureFailureTolerated(t *testing.T) {
	actx := audio.NewFakeContext()
	actx.StartErr = os.ErrPermission

	seg := newSegment(20 * time.Millisecond)
	go seg.record(actx, nil, t.TempDir(), nil)

	select {
	case <-seg.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("segment never finished")
	}
	if _, ok := seg.Artifact(); ok {
		t.Error("failed capture should yield no artifact")
	}
}

package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"murmur/transcriber"
)

func workerTestConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Gap:             30 * time.Millisecond,
		SegmentDuration: 50 * time.Millisecond,
		MaxRetries:      3,
		RateLimitDelay:  4 * time.Millisecond,
		TransientDelay:  2 * time.Millisecond,
		PopTimeout:      10 * time.Millisecond,
		ArtifactDir:     t.TempDir(),
		TranscriptPath:  filepath.Join(t.TempDir(), "transcript.txt"),
	}.withDefaults()
}

func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fLaC-test-bytes"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// drainWorker runs the loop over whatever is queued and waits for it to
// exit via the drain+empty+idle condition.
func drainWorker(t *testing.T, rec *Recorder) {
	t.Helper()
	run := newRunState()
	go rec.transcribeLoop(run)
	run.requestDrain()
	if !waitClosed(run.workerDone, 5*time.Second) {
		t.Fatal("worker loop did not drain")
	}
}

func TestWorkerTranscribesAndDeletesArtifact(t *testing.T) {
	cfg := workerTestConfig(t)
	client := transcriber.NewFake("hello", nil)
	asm := NewAssembler(cfg.TranscriptPath)
	rec := newRecorder(nil, nil, client, asm, cfg)

	path := writeArtifact(t, cfg.ArtifactDir, "seg_one.flac")
	rec.queue.push(pendingItem{startedAt: time.Now(), segID: "one", artifact: path})

	drainWorker(t, rec)

	if got := asm.Text(); got != "hello" {
		t.Errorf("transcript = %q, want hello", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact not deleted after transcription")
	}
}

func TestWorkerDropsAfterExhaustedRetriesAndContinues(t *testing.T) {
	cfg := workerTestConfig(t)

	var calls atomic.Int32
	client := &transcriber.FakeClient{
		TranscribeFn: func([]byte, string) (string, error) {
			if calls.Add(1) <= 3 {
				return "", errors.New("connection reset")
			}
			return "ok", nil
		},
	}
	asm := NewAssembler(cfg.TranscriptPath)
	rec := newRecorder(nil, nil, client, asm, cfg)

	base := time.Now()
	first := writeArtifact(t, cfg.ArtifactDir, "seg_first.flac")
	second := writeArtifact(t, cfg.ArtifactDir, "seg_second.flac")
	rec.queue.push(pendingItem{startedAt: base, segID: "first", artifact: first})
	rec.queue.push(pendingItem{startedAt: base.Add(time.Second), segID: "second", artifact: second})

	drainWorker(t, rec)

	// First item burns exactly maxRetries attempts and is dropped; the
	// second is processed normally afterwards.
	if n := calls.Load(); n != 4 {
		t.Errorf("transcribe calls = %d, want 4", n)
	}
	if got := asm.Text(); got != "ok" {
		t.Errorf("transcript = %q, want ok", got)
	}
	for _, path := range []string{first, second} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("artifact %s not deleted", filepath.Base(path))
		}
	}
}

func TestWorkerEmptyTextProducesNoResult(t *testing.T) {
	cfg := workerTestConfig(t)
	client := transcriber.NewFake("", nil)
	asm := NewAssembler(cfg.TranscriptPath)
	rec := newRecorder(nil, nil, client, asm, cfg)

	path := writeArtifact(t, cfg.ArtifactDir, "seg_silent.flac")
	rec.queue.push(pendingItem{startedAt: time.Now(), segID: "silent", artifact: path})

	drainWorker(t, rec)

	if asm.Count() != 0 {
		t.Errorf("results = %d, want 0 for empty transcription", asm.Count())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact not deleted")
	}
}

func TestWorkerKeysExhaustedCountsAsOneAttempt(t *testing.T) {
	cfg := workerTestConfig(t)

	var calls atomic.Int32
	client := &transcriber.FakeClient{
		TranscribeFn: func([]byte, string) (string, error) {
			calls.Add(1)
			return "", transcriber.ErrKeysExhausted
		},
	}
	asm := NewAssembler(cfg.TranscriptPath)
	rec := newRecorder(nil, nil, client, asm, cfg)

	path := writeArtifact(t, cfg.ArtifactDir, "seg_exhausted.flac")
	rec.queue.push(pendingItem{startedAt: time.Now(), segID: "exhausted", artifact: path})

	drainWorker(t, rec)

	if n := calls.Load(); n != int32(cfg.MaxRetries) {
		t.Errorf("attempts = %d, want %d", n, cfg.MaxRetries)
	}
	if asm.Count() != 0 {
		t.Error("exhausted item should produce no result")
	}
}

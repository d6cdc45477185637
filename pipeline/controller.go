package pipeline

import (
	"fmt"
	"os"
	"sync"

	"murmur/audio"
	"murmur/log"
	"murmur/transcriber"
)

type State int

const (
	Idle State = iota
	Recording
	Paused
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Processing:
		return "processing"
	}
	return "unknown"
}

// Controller is the public face of the pipeline: a state machine over the
// recorder and assembler that serializes start/pause/stop/cancel against
// each other.
type Controller struct {
	mu    sync.Mutex
	state State
	rec   *Recorder
	asm   *Assembler
}

func NewController(actx audio.Context, device *audio.DeviceInfo, client transcriber.Client, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	asm := NewAssembler(cfg.TranscriptPath)
	return &Controller{
		rec: newRecorder(actx, device, client, asm, cfg),
		asm: asm,
	}
}

// Start begins a fresh session, or resumes a paused one in place without
// clearing what was already transcribed. Already recording is a no-op.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Recording, Processing:
		return nil
	case Paused:
		c.rec.start()
		c.state = Recording
		log.Info("session_resumed")
		return nil
	}

	// Fresh session: drop anything left over from the last one.
	c.asm.Clear()
	c.rec.removeQueued()
	c.rec.segments.Store(0)
	c.rec.start()
	c.state = Recording
	return nil
}

// Resume is Start from Paused.
func (c *Controller) Resume() error { return c.Start() }

// Pause stops spawning new segments and commits everything captured so far:
// in-flight segments are force-stopped, queued and transcribed before Pause
// returns. Not a true pause of the audio.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return fmt.Errorf("pause: state is %s, not recording", c.state)
	}
	c.rec.stopAndDrain(false)
	c.state = Paused
	log.Info("session_paused")
	return nil
}

// Stop ends the session, drains every pending transcription and returns the
// final ordered transcript. Calling it with nothing active is a no-op.
func (c *Controller) Stop() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording && c.state != Paused {
		return c.asm.Text(), nil
	}
	c.state = Processing
	c.rec.stopAndDrain(false)
	text := c.asm.Text()
	log.SessionEnd(int(c.rec.segments.Load()))
	c.state = Idle
	return text, nil
}

// Cancel stops everything and discards all artifacts, queue contents and
// transcript without transcribing anything further.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording && c.state != Paused {
		return nil
	}
	c.rec.stopAndDrain(true)
	c.asm.Clear()
	c.state = Idle
	log.Info("session_cancelled")
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the current ordered transcript text.
func (c *Controller) Transcript() string { return c.asm.Text() }

// SinkPath is where the transcript file is materialized.
func (c *Controller) SinkPath() string { return c.asm.SinkPath() }

// Levels is the lossy amplitude stream for a UI meter.
func (c *Controller) Levels() <-chan float64 { return c.rec.Levels() }

// TranscriptExists reports whether the sink file is present on disk.
func (c *Controller) TranscriptExists() bool {
	_, err := os.Stat(c.asm.SinkPath())
	return err == nil
}

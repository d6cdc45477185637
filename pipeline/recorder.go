package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/log"
	"murmur/transcriber"
)

type Config struct {
	// Gap is how long the scheduler waits between spawning segments. It is
	// shorter than SegmentDuration so captures overlap and no audio falls
	// between segments.
	Gap             time.Duration
	SegmentDuration time.Duration

	MaxRetries     int
	RateLimitDelay time.Duration // retry wait after a rate-limit failure
	TransientDelay time.Duration // retry wait after any other failure
	PopTimeout     time.Duration // queue wait before re-checking shutdown

	ArtifactDir    string
	TranscriptPath string

	// Bounded joins so a misbehaving remote call cannot hang control calls.
	SchedulerJoin time.Duration
	SegmentJoin   time.Duration
	WorkerJoin    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Gap <= 0 {
		c.Gap = 12 * time.Second
	}
	if c.SegmentDuration <= 0 {
		c.SegmentDuration = 15 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RateLimitDelay <= 0 {
		c.RateLimitDelay = 5 * time.Second
	}
	if c.TransientDelay <= 0 {
		c.TransientDelay = time.Second
	}
	if c.PopTimeout <= 0 {
		c.PopTimeout = 500 * time.Millisecond
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = os.TempDir()
	}
	if c.TranscriptPath == "" {
		c.TranscriptPath = filepath.Join(os.TempDir(), "murmur_transcript.txt")
	}
	if c.SegmentJoin <= 0 {
		c.SegmentJoin = 3 * time.Second
	}
	if c.SchedulerJoin <= 0 {
		// schedDone closes only after stopActive has joined every active
		// segment sequentially, and the overlap cadence keeps two active.
		c.SchedulerJoin = 3*c.SegmentJoin + time.Second
	}
	if c.WorkerJoin <= 0 {
		c.WorkerJoin = 30 * time.Second
	}
	return c
}

// runState is one start..drain cycle of the recorder. Channels live here so
// goroutines from a finished run never observe a later run's state. The
// scheduler and the worker get separate stop signals: the worker's drain may
// only begin once the scheduler has enqueued every force-stopped artifact,
// otherwise the worker can see an empty queue and exit with the final
// segment stranded.
type runState struct {
	stopAll    chan struct{}
	workerStop chan struct{}
	abort      chan struct{}
	schedDone  chan struct{}
	workerDone chan struct{}
	discard    atomic.Bool
	stopOnce   sync.Once
	drainOnce  sync.Once
	abortOnce  sync.Once
}

func newRunState() *runState {
	return &runState{
		stopAll:    make(chan struct{}),
		workerStop: make(chan struct{}),
		abort:      make(chan struct{}),
		schedDone:  make(chan struct{}),
		workerDone: make(chan struct{}),
	}
}

func (rs *runState) requestStop()  { rs.stopOnce.Do(func() { close(rs.stopAll) }) }
func (rs *runState) requestDrain() { rs.drainOnce.Do(func() { close(rs.workerStop) }) }
func (rs *runState) requestAbort() { rs.abortOnce.Do(func() { close(rs.abort) }) }

func (rs *runState) drainRequested() bool {
	select {
	case <-rs.workerStop:
		return true
	default:
		return false
	}
}

// Recorder owns the overlap scheduler, the active-segment set and the
// transcription worker loop.
type Recorder struct {
	actx   audio.Context
	device *audio.DeviceInfo
	client transcriber.Client
	asm    *Assembler
	cfg    Config

	queue  *pendingQueue
	levels chan float64

	mu     sync.Mutex
	active []*Segment
	run    *runState

	inFlight atomic.Int32
	segments atomic.Int64
}

func newRecorder(actx audio.Context, device *audio.DeviceInfo, client transcriber.Client, asm *Assembler, cfg Config) *Recorder {
	return &Recorder{
		actx:   actx,
		device: device,
		client: client,
		asm:    asm,
		cfg:    cfg,
		queue:  newPendingQueue(),
		levels: make(chan float64, 256),
	}
}

func (r *Recorder) start() {
	r.mu.Lock()
	if r.run != nil {
		r.mu.Unlock()
		return
	}
	run := newRunState()
	r.run = run
	r.mu.Unlock()

	go r.transcribeLoop(run)
	go r.scheduleLoop(run)
}

// scheduleLoop spawns a segment immediately, then every Gap until stopped.
// Because Gap < SegmentDuration several segments record at once.
func (r *Recorder) scheduleLoop(run *runState) {
	defer close(run.schedDone)
	for {
		seg := newSegment(r.cfg.SegmentDuration)
		r.mu.Lock()
		r.active = append(r.active, seg)
		r.mu.Unlock()
		r.segments.Add(1)

		go seg.record(r.actx, r.device, r.cfg.ArtifactDir, r.levels)
		go r.watch(run, seg)
		log.Info("segment_started: " + seg.id)

		select {
		case <-run.stopAll:
			r.stopActive(run)
			return
		case <-time.After(r.cfg.Gap):
		}
	}
}

// watch enqueues a naturally finished segment. The active-set membership
// check is the race guard against stopActive having already force-stopped
// and handled this segment; the push happens under the same lock so a
// cancel that clears the active set cannot interleave between the check
// and the enqueue.
func (r *Recorder) watch(run *runState, seg *Segment) {
	<-seg.Done()

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, s := range r.active {
		if s == seg {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	r.active = append(r.active[:idx], r.active[idx+1:]...)
	if path, ok := seg.Artifact(); ok {
		r.queue.push(pendingItem{startedAt: seg.startedAt, segID: seg.id, artifact: path})
	}
}

// stopActive force-stops everything still recording. Clearing the active
// list first makes this mutually exclusive with the watcher path, so each
// artifact is queued at most once.
func (r *Recorder) stopActive(run *runState) {
	r.mu.Lock()
	active := r.active
	r.active = nil
	r.mu.Unlock()

	for _, seg := range active {
		seg.Stop()
		if !waitClosed(seg.Done(), r.cfg.SegmentJoin) {
			log.Warnf("segment %s did not stop in time", seg.id)
			continue
		}
		path, ok := seg.Artifact()
		if !ok {
			continue
		}
		if run.discard.Load() {
			os.Remove(path)
			continue
		}
		r.queue.push(pendingItem{startedAt: seg.startedAt, segID: seg.id, artifact: path})
	}
}

// stopAndDrain stops the scheduler, settles active segments and waits for
// the worker loop to finish. With discard set, artifacts and queue contents
// are deleted instead of transcribed.
func (r *Recorder) stopAndDrain(discard bool) {
	r.mu.Lock()
	run := r.run
	r.mu.Unlock()

	if run == nil {
		if discard {
			r.removeQueued()
		}
		return
	}

	if discard {
		run.discard.Store(true)
		run.requestAbort()
	}
	run.requestStop()

	if !waitClosed(run.schedDone, r.cfg.SchedulerJoin) {
		log.Warn("scheduler did not stop in time")
	}
	if discard {
		r.removeQueued()
	}
	// Only now may the worker begin its stop checks: schedDone closing means
	// every force-stopped artifact has been enqueued.
	run.requestDrain()
	if !waitClosed(run.workerDone, r.cfg.WorkerJoin) {
		log.Warn("worker loop did not drain in time")
	}
	if discard {
		// A watcher that lost the race may have queued one more artifact.
		r.removeQueued()
	}

	r.mu.Lock()
	if r.run == run {
		r.run = nil
	}
	r.mu.Unlock()
}

func (r *Recorder) removeQueued() {
	for _, item := range r.queue.drain() {
		os.Remove(item.artifact)
	}
}

// Levels is the lossy amplitude stream for the UI.
func (r *Recorder) Levels() <-chan float64 { return r.levels }

func waitClosed(ch <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

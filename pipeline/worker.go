package pipeline

import (
	"os"
	"time"

	"murmur/log"
	"murmur/transcriber"
)

// transcribeLoop is the single draining consumer of the pending queue. One
// consumer is deliberate: throughput is bound by the remote service's rate
// limits, not local CPU. The loop exits only once a drain was requested AND
// the queue is empty AND nothing is in flight. Drain is requested only after
// the scheduler has settled every active segment, so an artifact pushed by a
// force-stop is never stranded behind an early exit.
func (r *Recorder) transcribeLoop(run *runState) {
	defer close(run.workerDone)
	for {
		if run.drainRequested() && r.queue.len() == 0 && r.inFlight.Load() == 0 {
			return
		}
		item, ok := r.queue.pop(r.cfg.PopTimeout)
		if !ok {
			if run.drainRequested() && r.queue.len() == 0 {
				return
			}
			continue
		}
		r.inFlight.Add(1)
		r.process(run, item)
		r.inFlight.Add(-1)
	}
}

// process transcribes one artifact with bounded retries, records the result
// and deletes the artifact whatever the outcome.
func (r *Recorder) process(run *runState, item pendingItem) {
	defer os.Remove(item.artifact)

	audioData, err := os.ReadFile(item.artifact)
	if err != nil {
		log.SegmentDropped(item.segID, 0, err)
		return
	}

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		start := time.Now()
		text, err := r.client.Transcribe(audioData, "flac")
		if err == nil {
			if text != "" {
				if aerr := r.asm.Record(item.startedAt, text); aerr != nil {
					log.Errorf("transcript write: %v", aerr)
				}
				log.SegmentTranscribed(item.segID, attempt, float64(time.Since(start).Milliseconds()))
				log.TranscriptionText(text)
			}
			return
		}

		if attempt == r.cfg.MaxRetries {
			log.SegmentDropped(item.segID, attempt, err)
			return
		}

		delay := r.cfg.TransientDelay
		if transcriber.IsRateLimited(err) {
			delay = r.cfg.RateLimitDelay
		}
		select {
		case <-run.abort:
			log.SegmentDropped(item.segID, attempt, err)
			return
		case <-time.After(delay):
		}
	}
}

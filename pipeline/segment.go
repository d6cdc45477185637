package pipeline

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"murmur/audio"
	"murmur/encoder"
	"murmur/log"
)

// Segment records one bounded slice of audio on its own capture stream. It
// is owned by the scheduler until its artifact is handed to the pending
// queue; after transcription the artifact is deleted.
type Segment struct {
	id        string
	startedAt time.Time
	maxDur    time.Duration

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	artifact string
	frames   uint64
	stopped  bool
}

func newSegment(maxDur time.Duration) *Segment {
	return &Segment{
		id:        ulid.Make().String(),
		startedAt: time.Now(),
		maxDur:    maxDur,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (s *Segment) ID() string { return s.id }

func (s *Segment) StartedAt() time.Time { return s.startedAt }

// Stop raises the segment's stop signal. Safe to call more than once.
func (s *Segment) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.stopCh)
	})
}

// Done closes once the record loop has exited and the artifact (if any) is
// on disk.
func (s *Segment) Done() <-chan struct{} { return s.doneCh }

// Artifact returns the on-disk path of the captured audio, or false if the
// segment captured nothing. Only meaningful after Done.
func (s *Segment) Artifact() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact, s.artifact != ""
}

// record captures blocks until maxDur elapses or Stop is raised, emitting a
// loudness sample per block, then writes everything captured to a FLAC
// artifact. Any capture failure just leaves the segment without an artifact;
// the session survives losing a segment.
func (s *Segment) record(actx audio.Context, device *audio.DeviceInfo, dir string, levels chan<- float64) {
	defer close(s.doneCh)

	enc, err := encoder.NewFlac()
	if err != nil {
		log.Errorf("segment %s: encoder: %v", s.id, err)
		return
	}

	blockCh := make(chan []byte, 64)
	capture, err := actx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}, func(data []byte, _ uint32) {
		if len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)
		select {
		case blockCh <- pcm:
		default: // encoder fell behind; losing a block beats blocking the device
		}
	})
	if err != nil {
		log.Errorf("segment %s: capture open: %v", s.id, err)
		return
	}
	defer capture.Close()

	if err := capture.Start(); err != nil {
		log.Errorf("segment %s: capture start: %v", s.id, err)
		return
	}

	var sampleBuf []int16
	feed := func(data []byte) {
		for i := 0; i+1 < len(data); i += 2 {
			sampleBuf = append(sampleBuf, int16(binary.LittleEndian.Uint16(data[i:])))
		}
		for len(sampleBuf) >= encoder.BlockSize {
			block := make([]int16, encoder.BlockSize)
			copy(block, sampleBuf[:encoder.BlockSize])
			sampleBuf = sampleBuf[encoder.BlockSize:]
			if err := enc.EncodeBlock(block); err != nil {
				log.Warnf("segment %s: encode: %v", s.id, err)
			}
		}
		s.mu.Lock()
		s.frames += uint64(len(data) / 2)
		s.mu.Unlock()
		sendLevel(levels, blockLevel(data))
	}

	timer := time.NewTimer(s.maxDur)
	defer timer.Stop()

capturing:
	for {
		select {
		case <-s.stopCh:
			break capturing
		case <-timer.C:
			break capturing
		case data := <-blockCh:
			feed(data)
		}
	}

	capture.Stop()

	// Take whatever the device delivered before the stop landed.
draining:
	for {
		select {
		case data := <-blockCh:
			feed(data)
		default:
			break draining
		}
	}

	if len(sampleBuf) > 0 {
		partial := make([]int16, len(sampleBuf))
		copy(partial, sampleBuf)
		if err := enc.EncodeBlock(partial); err != nil {
			log.Warnf("segment %s: encode: %v", s.id, err)
		}
	}

	if err := enc.Close(); err != nil {
		log.Errorf("segment %s: encoder close: %v", s.id, err)
		return
	}

	s.mu.Lock()
	frames := s.frames
	stopped := s.stopped
	s.mu.Unlock()

	if frames == 0 {
		return
	}

	path := filepath.Join(dir, "seg_"+s.id+".flac")
	if err := os.WriteFile(path, enc.Bytes(), 0600); err != nil {
		log.Errorf("segment %s: write artifact: %v", s.id, err)
		return
	}

	s.mu.Lock()
	s.artifact = path
	s.mu.Unlock()

	log.SegmentDone(s.id, float64(frames)/float64(encoder.SampleRate), frames, stopped)
}

// blockLevel derives a [0,1] loudness value from one S16LE block.
func blockLevel(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Min(math.Sqrt(sumSquares/float64(n))*10, 1.0)
}

// sendLevel is best-effort: the amplitude stream is lossy and unconsumed
// values are dropped rather than applying back-pressure.
func sendLevel(levels chan<- float64, level float64) {
	if levels == nil {
		return
	}
	select {
	case levels <- level:
	default:
	}
}

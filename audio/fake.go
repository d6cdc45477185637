package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

const (
	fakeFrameSize = 512
	fakeToneHz    = 440.0
)

// FakeContext synthesizes capture input for tests. Every capture opened on
// it delivers a steady tone block on each BlockInterval tick until stopped,
// so overlapping captures behave like independent device streams.
type FakeContext struct {
	BlockInterval time.Duration
	Amplitude     int16
	Mute          bool  // deliver no blocks at all (segment captures nothing)
	StartErr      error // returned by CaptureDevice.Start
}

func NewFakeContext() *FakeContext {
	return &FakeContext{
		BlockInterval: 5 * time.Millisecond,
		Amplitude:     8000,
	}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake capture"}}, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig, cb DataCallback) (CaptureDevice, error) {
	return &FakeCapture{
		cb:         cb,
		interval:   f.BlockInterval,
		amplitude:  f.Amplitude,
		mute:       f.Mute,
		startErr:   f.StartErr,
		sampleRate: config.SampleRate,
	}, nil
}

func (f *FakeContext) Close() {}

type FakeCapture struct {
	cb         DataCallback
	interval   time.Duration
	amplitude  int16
	mute       bool
	startErr   error
	sampleRate uint32

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

func (c *FakeCapture) Start() error {
	if c.startErr != nil {
		return c.startErr
	}

	c.mu.Lock()
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	stopCh, done := c.stopCh, c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		if c.mute {
			<-stopCh
			return
		}
		block := c.toneBlock()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				c.cb(block, fakeFrameSize)
			}
		}
	}()

	return nil
}

func (c *FakeCapture) toneBlock() []byte {
	rate := c.sampleRate
	if rate == 0 {
		rate = 16000
	}
	block := make([]byte, fakeFrameSize*2)
	for i := 0; i < fakeFrameSize; i++ {
		s := int16(float64(c.amplitude) * math.Sin(2*math.Pi*fakeToneHz*float64(i)/float64(rate)))
		binary.LittleEndian.PutUint16(block[i*2:], uint16(s))
	}
	return block
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh == nil {
		return
	}
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	<-c.done
}

func (c *FakeCapture) Close() {
	c.Stop()
}

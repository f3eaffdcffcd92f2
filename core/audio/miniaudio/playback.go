package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/kuware/council-core/core/audio"
)

type playbackDevice struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	pending []byte
	drains  []drainMark

	mu       sync.Mutex
	bufferMu sync.Mutex
}

// drainMark is resolved once the device consumed everything queued before it.
type drainMark struct {
	position int
	done     chan struct{}
}

func (c *playbackDevice) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackDevice) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if c.device.IsStarted() {
		return nil
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackDevice) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.Flush()
	return nil
}

// Enqueue appends audio to the playback queue. The returned channel closes
// once the device has consumed everything queued so far.
func (c *playbackDevice) Enqueue(audio []byte) (<-chan struct{}, error) {
	if c.device == nil {
		return nil, fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return nil, fmt.Errorf("device not started")
	}

	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.pending = append(c.pending, audio...)

	mark := drainMark{position: len(c.pending), done: make(chan struct{})}
	c.drains = append(c.drains, mark)
	return mark.done, nil
}

// Flush drops queued audio and resolves every pending drain.
func (c *playbackDevice) Flush() {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()

	c.pending = nil
	for _, mark := range c.drains {
		close(mark.done)
	}
	c.drains = nil
}

func (c *playbackDevice) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	c.Flush()
	return nil
}

func (c *playbackDevice) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.bufferMu.Lock()
		defer c.bufferMu.Unlock()

		consumed := min(need, len(c.pending))
		_ = copy(pOutput, c.pending[:consumed])
		c.pending = c.pending[consumed:]

		// Underrun leaves pOutput zero-filled past consumed, audible as
		// silence rather than a glitch.

		resolved := 0
		for i := range c.drains {
			if c.drains[i].position <= consumed {
				close(c.drains[i].done)
				resolved++
				continue
			}
			c.drains[i].position -= consumed
		}
		if resolved > 0 {
			c.drains = c.drains[resolved:]
		}
	}
}

// Package miniaudio provides microphone capture and audio playback through
// the miniaudio library. The Client satisfies both the capture and the
// playback ports of the voice session.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/kuware/council-core/core/audio"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackDevice
	captureDevice
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
	}

	if err := client.playbackDevice.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := client.captureDevice.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureDevice.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureDevice.Stop()
}

// Play queues the assembled response and blocks until the device drained it
// or the context was cancelled. Cancellation drops whatever is still queued.
func (c *Client) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	if err := c.playbackDevice.Start(); err != nil {
		return err
	}

	drained, err := c.playbackDevice.Enqueue(audio)
	if err != nil {
		return err
	}

	select {
	case <-drained:
	case <-ctx.Done():
		// Stop flushes whatever is still queued and leaves the device idle
		// for the next response.
		_ = c.playbackDevice.Stop()
		return ctx.Err()
	}

	return c.playbackDevice.Stop()
}

func (c *Client) Close() {
	_ = c.captureDevice.Uninit()
	_ = c.playbackDevice.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

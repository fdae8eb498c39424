package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/voicewire/duplex-core/core/audio"
)

// Client owns one miniaudio context with a capture and a playback
// device, both running mono linear16 at the pipeline's default rate.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is
	// an ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
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

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}
	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

// Open verifies the capture device is usable before streaming starts,
// so permission and device problems surface synchronously.
func (c *Client) Open(_ context.Context) error {
	if !c.captureClient.isInitialized() {
		return fmt.Errorf("capture device unavailable")
	}
	return nil
}

// Stream starts capture and delivers fixed-size frames until the
// context is cancelled.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.captureClient.Start(onAudio); err != nil {
		return err
	}

	<-ctx.Done()
	return c.captureClient.Stop()
}

// Play queues rendered audio and blocks until it was played out or the
// context is cancelled.
func (c *Client) Play(ctx context.Context, rendered []byte) error {
	return c.playbackClient.Play(ctx, rendered)
}

// Stop cuts playback immediately and drops whatever was queued.
func (c *Client) Stop() error {
	c.playbackClient.ClearBuffer()
	return nil
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

package portaudio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/voicewire/duplex-core/core/audio"
)

// Client is a PortAudio-backed capture and playback device. Capture
// reads one pipeline frame per iteration; playback writes blockingly,
// which makes Play naturally report when audio finished.
type Client struct {
	stream *portaudio.Stream

	in  []int16
	out []int16
}

func NewClient() (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, audio.FrameSamples)
	out := make([]int16, audio.FrameSamples)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, audio.FrameSamples, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		stream: stream,
		in:     in,
		out:    out,
	}, nil
}

// Open starts the stream synchronously so device errors surface before
// capture begins.
func (c *Client) Open(_ context.Context) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}
	return nil
}

func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.stream.Read(); err != nil {
				return fmt.Errorf("failed to read from portaudio stream: %w", err)
			}
			onAudio(audio.ShortsToPCM16LE(c.in))
		}
	}
}

// Play writes rendered audio to the output, frame by frame, returning
// when everything was written or the context was cancelled.
func (c *Client) Play(ctx context.Context, rendered []byte) error {
	samples := audio.PCM16LEToShorts(rendered)
	for len(samples) > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n := copy(c.out, samples)
		for i := n; i < len(c.out); i++ {
			c.out[i] = 0
		}
		samples = samples[n:]

		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}
	return nil
}

func (c *Client) Close() {
	c.stream.Close()
	_ = portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cuevox/cue-core/core/audio"
	"github.com/gordonklaus/portaudio"
)

// Client is a simple full duplex PortAudio backend. It has no capture
// controls of its own: the stream runs for the whole session and the session
// gates which frames count as captured.
type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	in  []int16
	out []int16

	mu sync.Mutex
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// Stream reads microphone frames until ctx is cancelled or the stream fails.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.stream.Read(); err != nil {
				if errors.Is(err, portaudio.InputOverflowed) {
					continue
				}
				return fmt.Errorf("failed to read from portaudio stream: %w", err)
			}

			audioBuffer := bytes.Buffer{}
			_ = binary.Write(&audioBuffer, binary.LittleEndian, c.in)
			onAudio(audioBuffer.Bytes())
		}
	}
}

func (c *Client) Close() {
	_ = c.stream.Close()
	_ = portaudio.Terminate()
}

// SendAudio plays back full device periods and carries the remainder over to
// the next call.
func (c *Client) SendAudio(audioData []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	chunkSize := c.bufferSize * 2

	buffered := append(c.leftoverAudio, audioData...)
	for len(buffered) >= chunkSize {
		if err := binary.Read(bytes.NewBuffer(buffered[:chunkSize]), binary.LittleEndian, c.out); err != nil {
			return fmt.Errorf("failed to decode audio chunk: %w", err)
		}
		if err := c.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
		buffered = buffered[chunkSize:]
	}

	c.leftoverAudio = make([]byte, len(buffered))
	copy(c.leftoverAudio, buffered)

	return nil
}

func (c *Client) ClearBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leftoverAudio = nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

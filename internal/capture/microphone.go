package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Microphone reads raw s16le PCM from a capture backend and accumulates
// it in a State. Start begins reading in the background; Stop ends the
// stream and returns everything captured.
type Microphone struct {
	backend Backend
	cfg     Config
	logger  *zap.Logger

	mu      sync.Mutex
	stream  io.ReadCloser
	state   *State
	done    chan struct{}
	readErr error
}

// NewMicrophone wires a backend to a fresh capture state.
func NewMicrophone(backend Backend, cfg Config) *Microphone {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Microphone{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		state:   NewState(defaultSampleRate(cfg.SampleRate)),
	}
}

// State exposes the live capture aggregate for meters and streaming
// consumers.
func (m *Microphone) State() *State {
	return m.state
}

// Start opens the backend stream and launches the read loop.
func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return errors.New("capture already running")
	}

	stream, err := m.backend.Open(ctx, m.cfg)
	if err != nil {
		return fmt.Errorf("open %s stream: %w", m.backend.Name(), err)
	}

	m.logger.Info("capture started",
		zap.String("backend", m.backend.Name()),
		zap.Int("sample_rate", defaultSampleRate(m.cfg.SampleRate)),
		zap.Int("channels", defaultChannels(m.cfg.Channels)))

	m.stream = stream
	m.done = make(chan struct{})
	go m.readLoop(stream, m.done)
	return nil
}

// Stop closes the stream, waits for the read loop to drain, and
// returns all captured samples. A read failure mid-stream surfaces
// here.
func (m *Microphone) Stop() ([]float32, error) {
	m.mu.Lock()
	stream := m.stream
	done := m.done
	m.stream = nil
	m.done = nil
	m.mu.Unlock()

	if stream == nil {
		return m.state.Samples(), nil
	}

	closeErr := stream.Close()
	<-done

	m.mu.Lock()
	readErr := m.readErr
	m.mu.Unlock()

	samples := m.state.Samples()
	if readErr != nil {
		return samples, readErr
	}
	if closeErr != nil {
		return samples, fmt.Errorf("stop %s stream: %w", m.backend.Name(), closeErr)
	}
	return samples, nil
}

func (m *Microphone) readLoop(stream io.Reader, done chan struct{}) {
	defer close(done)

	channels := defaultChannels(m.cfg.Channels)
	frameBytes := 2 * channels

	buf := make([]byte, 32*1024)
	var carry []byte

	for {
		n, err := stream.Read(buf)
		if n > 0 {
			data := buf[:n]
			if len(carry) > 0 {
				data = append(carry, data...)
				carry = nil
			}

			remainder := len(data) % frameBytes
			if remainder > 0 {
				carry = append(carry, data[len(data)-remainder:]...)
				data = data[:len(data)-remainder]
			}

			if len(data) > 0 {
				m.state.Append(decodeS16LE(data, channels))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, os.ErrClosed) {
				m.mu.Lock()
				m.readErr = fmt.Errorf("read capture stream: %w", err)
				m.mu.Unlock()
			}
			return
		}
	}
}

// decodeS16LE converts little-endian 16-bit PCM to mono float32,
// averaging interleaved channels.
func decodeS16LE(data []byte, channels int) []float32 {
	frames := len(data) / (2 * channels)
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			offset := (i*channels + c) * 2
			value := int16(binary.LittleEndian.Uint16(data[offset:]))
			sum += float32(value) / 32768.0
		}
		samples[i] = sum / float32(channels)
	}
	return samples
}

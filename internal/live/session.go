package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adlib-voice/adlib/internal/audio"
	"github.com/adlib-voice/adlib/internal/capture"
	"github.com/adlib-voice/adlib/internal/whisper"
)

const defaultTick = 100 * time.Millisecond

// Source produces captured audio for a live session. It is implemented
// by capture.Microphone and by test fakes.
type Source interface {
	Start(ctx context.Context) error
	Stop() ([]float32, error)
	State() *capture.State
}

// Snapshot is a point-in-time view of a running session, safe to read
// from any goroutine.
type Snapshot struct {
	Transcript          string
	Committed           string
	Tentative           string
	Calibrated          bool
	CalibrationProgress float32
	Duration            float64
	Volume              float32
	Peak                float32
	Err                 error
}

// SessionConfig wires a capture source to a transcription engine.
type SessionConfig struct {
	Source Source
	Engine *Engine
	Logger *zap.Logger

	// Tick is the drain interval; defaults to 100ms.
	Tick time.Duration

	// OnUpdate is invoked from the session goroutine after every
	// transcript change. Optional.
	OnUpdate func(Snapshot)
}

type command int

const (
	cmdClear command = iota
	cmdStop
)

// Session drives a live transcription loop: it drains the capture
// source on a fixed tick, resamples to the engine rate, feeds the
// engine, and runs inference whenever a full step has accumulated. All
// engine state is owned by the session goroutine; readers observe it
// through snapshots.
type Session struct {
	source Source
	engine *Engine
	logger *zap.Logger
	tick   time.Duration
	update func(Snapshot)

	commands chan command
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	started  bool
	snapshot Snapshot
	captured []float32
	stopErr  error
}

// NewSession validates the configuration and prepares a session. Start
// must be called before the session does any work.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("live session requires a capture source")
	}
	if cfg.Engine == nil {
		return nil, errors.New("live session requires an engine")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	return &Session{
		source:   cfg.Source,
		engine:   cfg.Engine,
		logger:   logger,
		tick:     tick,
		update:   cfg.OnUpdate,
		commands: make(chan command, 4),
		done:     make(chan struct{}),
	}, nil
}

// Start begins capture and launches the session goroutine.
func (s *Session) Start(ctx context.Context) error {
	if err := s.source.Start(ctx); err != nil {
		return fmt.Errorf("start capture source: %w", err)
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go s.run(ctx)
	return nil
}

// Stop ends capture, flushes any tentative text into the committed
// transcript, and waits for the session goroutine to exit. It returns
// the full captured sample buffer at the source rate.
func (s *Session) Stop() ([]float32, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, nil
	}

	s.stopOnce.Do(func() {
		select {
		case s.commands <- cmdStop:
		case <-s.done:
		}
	})
	<-s.done

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.captured, s.stopErr
}

// Clear asks the session to discard the transcript and working buffer.
func (s *Session) Clear() {
	select {
	case s.commands <- cmdClear:
	case <-s.done:
	}
}

// Snapshot returns the latest published view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	sourceRate := s.source.State().SampleRate()
	drained := 0

	for {
		select {
		case <-ctx.Done():
			s.shutdown(ctx, &drained, sourceRate)
			return
		case cmd := <-s.commands:
			switch cmd {
			case cmdClear:
				s.engine.Clear()
				s.publish(nil)
			case cmdStop:
				s.shutdown(ctx, &drained, sourceRate)
				return
			}
		case <-ticker.C:
			s.ingest(&drained, sourceRate)
			if !s.engine.ReadyToProcess() {
				s.publish(nil)
				continue
			}
			result, err := s.process(ctx)
			if result != NoChange || err != nil {
				s.publish(err)
			} else {
				s.publish(nil)
			}
		}
	}
}

// ingest drains new samples from the source and feeds them to the
// engine at its native rate.
func (s *Session) ingest(drained *int, sourceRate int) {
	chunk := s.source.State().SamplesSince(*drained)
	if len(chunk) == 0 {
		return
	}
	*drained += len(chunk)
	s.engine.AddSamples(audio.Resample(chunk, sourceRate, whisper.SampleRate))
}

func (s *Session) process(ctx context.Context) (Result, error) {
	result, err := s.engine.Process(ctx)
	if err != nil {
		// Transient inference failure: the working buffer is intact
		// and the next cycle retries.
		s.logger.Warn("live inference failed", zap.Error(err))
	}
	return result, err
}

// shutdown stops the capture source first so no new audio arrives,
// drains the tail, runs a final inference pass, and flushes whatever
// tentative text remains.
func (s *Session) shutdown(ctx context.Context, drained *int, sourceRate int) {
	captured, stopErr := s.source.Stop()
	if stopErr != nil {
		s.logger.Warn("capture source stop failed", zap.Error(stopErr))
	}

	s.ingest(drained, sourceRate)
	if s.engine.ReadyToProcess() {
		if _, err := s.process(ctx); err != nil {
			s.logger.Warn("final inference pass failed", zap.Error(err))
		}
	}
	s.engine.Flush()

	s.mu.Lock()
	s.captured = captured
	s.stopErr = stopErr
	s.mu.Unlock()
	s.publish(nil)
}

// publish refreshes the shared snapshot and notifies the observer.
func (s *Session) publish(err error) {
	state := s.source.State()
	snapshot := Snapshot{
		Transcript:          s.engine.Transcript(),
		Committed:           s.engine.Committed(),
		Tentative:           s.engine.Tentative(),
		Calibrated:          s.engine.IsCalibrated(),
		CalibrationProgress: s.engine.CalibrationProgress(),
		Duration:            state.Duration(),
		Volume:              state.Volume(),
		Peak:                state.Peak(),
		Err:                 err,
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	if s.update != nil {
		s.update(snapshot)
	}
}

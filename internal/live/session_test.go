package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adlib-voice/adlib/internal/capture"
)

// fakeSource feeds a capture state directly, standing in for a
// microphone backend.
type fakeSource struct {
	state *capture.State

	mu      sync.Mutex
	started bool
	stopped bool
}

func newFakeSource(sampleRate int) *fakeSource {
	return &fakeSource{state: capture.NewState(sampleRate)}
}

func (f *fakeSource) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeSource) Stop() ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return f.state.Samples(), nil
}

func (f *fakeSource) State() *capture.State {
	return f.state
}

func newTestSession(t *testing.T, source Source, transcriber *fakeTranscriber) *Session {
	t.Helper()

	engine, err := NewEngine(Config{
		Transcriber:     transcriber,
		PresetThreshold: 0.02,
		StepSamples:     1600,
	})
	require.NoError(t, err)

	session, err := NewSession(SessionConfig{
		Source: source,
		Engine: engine,
		Tick:   time.Millisecond,
	})
	require.NoError(t, err)
	return session
}

func TestNewSessionValidation(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(Config{Transcriber: &fakeTranscriber{}})
	require.NoError(t, err)

	_, err = NewSession(SessionConfig{Engine: engine})
	require.Error(t, err)

	_, err = NewSession(SessionConfig{Source: newFakeSource(16000)})
	require.Error(t, err)
}

func TestSessionTranscribesLiveAudio(t *testing.T) {
	t.Parallel()

	source := newFakeSource(16000)
	session := newTestSession(t, source, &fakeTranscriber{text: "hello there"})

	require.NoError(t, session.Start(context.Background()))
	source.state.Append(speech(1600))

	require.Eventually(t, func() bool {
		return session.Snapshot().Tentative == "hello there"
	}, 2*time.Second, 5*time.Millisecond)

	captured, err := session.Stop()
	require.NoError(t, err)
	require.Len(t, captured, 1600)

	// Stop flushes the tentative tail into the committed transcript.
	snapshot := session.Snapshot()
	require.Equal(t, "hello there", snapshot.Committed)
	require.Empty(t, snapshot.Tentative)
	require.True(t, source.stopped)
}

func TestSessionCommitsOnSilence(t *testing.T) {
	t.Parallel()

	source := newFakeSource(16000)
	session := newTestSession(t, source, &fakeTranscriber{text: "quick note"})

	require.NoError(t, session.Start(context.Background()))
	source.state.Append(speech(1600))

	require.Eventually(t, func() bool {
		return session.Snapshot().Tentative == "quick note"
	}, 2*time.Second, 5*time.Millisecond)

	// Silent steps arrive gradually; each one counts a silent cycle,
	// and the third finalizes the text without stopping.
	require.Eventually(t, func() bool {
		source.state.Append(make([]float32, 1600))
		s := session.Snapshot()
		return s.Committed == "quick note" && s.Tentative == ""
	}, 5*time.Second, 10*time.Millisecond)

	_, err := session.Stop()
	require.NoError(t, err)
}

func TestSessionResamplesSourceAudio(t *testing.T) {
	t.Parallel()

	source := newFakeSource(48000)
	transcriber := &fakeTranscriber{text: "resampled speech"}
	session := newTestSession(t, source, transcriber)

	require.NoError(t, session.Start(context.Background()))
	source.state.Append(speech(4800))

	require.Eventually(t, func() bool {
		return session.Snapshot().Tentative == "resampled speech"
	}, 2*time.Second, 5*time.Millisecond)

	captured, err := session.Stop()
	require.NoError(t, err)
	// Captured audio stays at the source rate.
	require.Len(t, captured, 4800)
}

func TestSessionClear(t *testing.T) {
	t.Parallel()

	source := newFakeSource(16000)
	session := newTestSession(t, source, &fakeTranscriber{text: "discard me"})

	require.NoError(t, session.Start(context.Background()))
	source.state.Append(speech(1600))

	require.Eventually(t, func() bool {
		return session.Snapshot().Tentative == "discard me"
	}, 2*time.Second, 5*time.Millisecond)

	session.Clear()

	require.Eventually(t, func() bool {
		s := session.Snapshot()
		return s.Transcript == "" && !s.Calibrated
	}, 2*time.Second, 5*time.Millisecond)

	_, err := session.Stop()
	require.NoError(t, err)
}

func TestSessionStopIsIdempotent(t *testing.T) {
	t.Parallel()

	source := newFakeSource(16000)
	session := newTestSession(t, source, &fakeTranscriber{})

	require.NoError(t, session.Start(context.Background()))

	_, err := session.Stop()
	require.NoError(t, err)
	_, err = session.Stop()
	require.NoError(t, err)
}

func TestSessionStopBeforeStartReturnsImmediately(t *testing.T) {
	t.Parallel()

	source := newFakeSource(16000)
	session := newTestSession(t, source, &fakeTranscriber{})

	samples, err := session.Stop()
	require.NoError(t, err)
	require.Empty(t, samples)

	// The session is still usable after the early Stop.
	require.NoError(t, session.Start(context.Background()))
	_, err = session.Stop()
	require.NoError(t, err)
}

func TestSessionInferenceErrorIsTransient(t *testing.T) {
	t.Parallel()

	source := newFakeSource(16000)
	transcriber := &fakeTranscriber{text: "recovered", err: context.DeadlineExceeded}

	engine, err := NewEngine(Config{
		Transcriber:     transcriber,
		PresetThreshold: 0.02,
		StepSamples:     1600,
	})
	require.NoError(t, err)

	errSeen := make(chan error, 16)
	session, err := NewSession(SessionConfig{
		Source: source,
		Engine: engine,
		Tick:   time.Millisecond,
		OnUpdate: func(s Snapshot) {
			if s.Err != nil {
				select {
				case errSeen <- s.Err:
				default:
				}
			}
		},
	})
	require.NoError(t, err)

	require.NoError(t, session.Start(context.Background()))
	source.state.Append(speech(1600))

	select {
	case seen := <-errSeen:
		require.ErrorIs(t, seen, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("inference error never surfaced")
	}

	// The failure is transient: once inference recovers, the next
	// cycle retries over the intact buffer.
	transcriber.mu.Lock()
	transcriber.err = nil
	transcriber.mu.Unlock()
	source.state.Append(speech(1600))

	require.Eventually(t, func() bool {
		return session.Snapshot().Tentative == "recovered"
	}, 2*time.Second, 5*time.Millisecond)

	_, err = session.Stop()
	require.NoError(t, err)
}

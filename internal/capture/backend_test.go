package capture

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name      string
	available bool
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Open(ctx context.Context, cfg Config) (io.ReadCloser, error) {
	return io.NopCloser(nil), nil
}

func (f *fakeBackend) ListDevices(ctx context.Context) (string, error) {
	return "", nil
}

func TestSelectBackendPrefersFirstAvailable(t *testing.T) {
	t.Parallel()

	backends := []Backend{
		&fakeBackend{name: "pw-record", available: false},
		&fakeBackend{name: "arecord", available: true},
		&fakeBackend{name: "ffmpeg", available: true},
	}

	selected, err := SelectBackend(backends, "auto")
	require.NoError(t, err)
	require.Equal(t, "arecord", selected.Name())
}

func TestSelectBackendByName(t *testing.T) {
	t.Parallel()

	backends := []Backend{
		&fakeBackend{name: "pw-record", available: true},
		&fakeBackend{name: "ffmpeg", available: true},
	}

	selected, err := SelectBackend(backends, "ffmpeg")
	require.NoError(t, err)
	require.Equal(t, "ffmpeg", selected.Name())
}

func TestSelectBackendRequestedUnavailable(t *testing.T) {
	t.Parallel()

	backends := []Backend{&fakeBackend{name: "pw-record", available: false}}

	_, err := SelectBackend(backends, "pw-record")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not available")
}

func TestSelectBackendUnknownName(t *testing.T) {
	t.Parallel()

	backends := []Backend{&fakeBackend{name: "pw-record", available: true}}

	_, err := SelectBackend(backends, "sox")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown backend")
}

func TestSelectBackendNoneAvailable(t *testing.T) {
	t.Parallel()

	backends := []Backend{
		&fakeBackend{name: "pw-record", available: false},
		&fakeBackend{name: "ffmpeg", available: false},
	}

	_, err := SelectBackend(backends, "")
	require.ErrorIs(t, err, ErrNoBackendAvailable)
}

func TestDefaultBackendsPerOS(t *testing.T) {
	t.Parallel()

	linux := DefaultBackends("linux")
	require.Len(t, linux, 3)
	require.Equal(t, "pw-record", linux[0].Name())

	darwin := DefaultBackends("darwin")
	require.Len(t, darwin, 1)
	require.Equal(t, "ffmpeg", darwin[0].Name())

	require.Empty(t, DefaultBackends("windows"))
}

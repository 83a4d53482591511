package server

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStartFailed = errors.New("start failed")

type fakeComponent struct {
	startErr error
	started  int
	stopped  int
}

func (f *fakeComponent) Start(_ context.Context) error {
	f.started++
	return f.startErr
}

func (f *fakeComponent) Stop() error {
	f.stopped++
	return nil
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func TestServer_StartStopsOnCancel(t *testing.T) {
	component := &fakeComponent{}
	healthAddr := "127.0.0.1:0"

	srv, err := NewServer(newTestLogger(), &Config{
		HealthCheckAddr: &healthAddr,
		ShutdownTimeout: time.Second,
	}, component)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- srv.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.Equal(t, 1, component.started)
	assert.Equal(t, 1, component.stopped)
}

func TestServer_ComponentStartFailure(t *testing.T) {
	component := &fakeComponent{startErr: errStartFailed}

	srv, err := NewServer(newTestLogger(), &Config{ShutdownTimeout: time.Second}, component)
	require.NoError(t, err)

	assert.ErrorIs(t, srv.Start(context.Background()), errStartFailed)
	assert.Equal(t, 0, component.stopped)
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Config{}).Validate(), ErrInvalidShutdownTimeout)
	assert.NoError(t, (&Config{ShutdownTimeout: time.Second}).Validate())
}

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-beagle/gst-element/internal/config"
	"github.com/open-beagle/gst-element/internal/gstreamer"
	"github.com/open-beagle/gst-element/internal/journal"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	std := logrus.StandardLogger()
	prevOut, prevLevel, prevFormatter := std.Out, std.GetLevel(), std.Formatter
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
	})

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStatesCommand(t *testing.T) {
	out, err := executeCommand(t, "states")
	require.NoError(t, err)

	assert.Contains(t, out, "NONE_PENDING")
	assert.Contains(t, out, "PLAYING")
	assert.Contains(t, out, "UNKNOWN!")
	assert.Contains(t, out, "paused-playing")
	assert.Contains(t, out, "PAUSED -> PLAYING")
}

func TestInspectCommand(t *testing.T) {
	out, err := executeCommand(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "fakesink")
	assert.Contains(t, out, "Black hole for data")

	out, err = executeCommand(t, "inspect", "fakesink")
	require.NoError(t, err)
	assert.Contains(t, out, "Fake Sink")
	assert.Contains(t, out, "state-error")
	assert.Contains(t, out, "readable, writable")

	_, err = executeCommand(t, "inspect", "nosuchelement")
	assert.ErrorIs(t, err, gstreamer.ErrNotFound)
}

func TestRunCommand_Success(t *testing.T) {
	out, err := executeCommand(t, "run", "fakesink", "sink0", "--to", "READY", "--to", "PLAYING", "--set", "sync=true")
	require.NoError(t, err)

	assert.Contains(t, out, "fakesink:sink0")
	assert.Contains(t, out, "PLAYING")
	assert.Contains(t, out, "state-change")
	assert.Contains(t, out, "PAUSED -> PLAYING")
}

func TestRunCommand_InjectedFault(t *testing.T) {
	out, err := executeCommand(t, "run", "fakesink", "--state-error", "paused-playing", "--to", "PLAYING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 state changes failed")

	assert.Contains(t, out, "fakesink:fakesink")
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "ERROR", "captured log output is printed")

	quiet, err := executeCommand(t, "run", "fakesink", "--state-error", "3", "--to", "PLAYING", "--quiet")
	require.Error(t, err)
	assert.NotContains(t, quiet, "level=error")
}

func TestRunCommand_InvalidInput(t *testing.T) {
	_, err := executeCommand(t, "run", "nosuchelement")
	assert.ErrorIs(t, err, gstreamer.ErrConstruction)

	_, err = executeCommand(t, "run", "fakesink", "--to", "RUNNING")
	assert.ErrorIs(t, err, gstreamer.ErrInvalidState)

	_, err = executeCommand(t, "run", "fakesink", "--set", "sync")
	assert.ErrorContains(t, err, "NAME=VALUE")

	_, err = executeCommand(t, "run", "fakesink", "--state-error", "42")
	assert.ErrorIs(t, err, gstreamer.ErrProperty)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gst-element.toml")

	out, err := executeCommand(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	out, err = executeCommand(t, "-c", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "CORS_ENABLED")
	assert.Contains(t, out, "WebServer: 0.0.0.0:8080")
}

func TestJournalCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	out, err := executeCommand(t, "journal", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No journal entries")

	store, err := journal.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), gstreamer.Message{
		ID:        uuid.NewString(),
		Type:      gstreamer.MessageStateChanged,
		Source:    "sink0",
		Factory:   "fakesink",
		Timestamp: time.Now(),
		OldState:  gstreamer.StateNull,
		NewState:  gstreamer.StateReady,
	}))
	require.NoError(t, store.Close())

	out, err = executeCommand(t, "journal", "--db", path, "--element", "sink0")
	require.NoError(t, err)
	assert.Contains(t, out, "sink0")
	assert.Contains(t, out, "NULL -> READY")
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WebServer.Enabled = false
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	cfg.Elements.Elements = []config.ElementConfig{
		{Type: "fakesink", Name: "sink", State: "READY"},
	}
	return cfg
}

func TestApp_Lifecycle(t *testing.T) {
	app, err := NewApp(newTestConfig(t), "")
	require.NoError(t, err)
	require.NoError(t, app.Start())

	assert.True(t, app.IsHealthy())
	summary := app.GetHealthSummary()
	assert.Equal(t, true, summary["healthy"])
	assert.Equal(t, true, summary["journal"])

	sink, err := app.Elements().Get("sink")
	require.NoError(t, err)
	assert.Equal(t, gstreamer.StateReady, sink.State())
	require.NoError(t, sink.SetState(gstreamer.StatePlaying))

	// NULL->READY at startup, then READY->PAUSED->PLAYING
	require.Eventually(t, func() bool {
		n, err := app.Journal().Count(context.Background(), gstreamer.MessageStateChanged)
		return err == nil && n == 3
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(ctx))
	assert.False(t, app.IsHealthy())
	assert.Equal(t, gstreamer.StateNull, sink.State())
}

func TestApp_StartFailureRollsBack(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Elements.Elements = []config.ElementConfig{
		{Type: "nosuchelement", Name: "broken"},
	}

	app, err := NewApp(cfg, "")
	require.NoError(t, err)

	err = app.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start elements manager")
	assert.True(t, errors.Is(err, gstreamer.ErrConstruction))
	assert.False(t, app.metricsMgr.IsRunning())
}

func TestStartWithTimeout(t *testing.T) {
	assert.NoError(t, startWithTimeout(time.Second, func() error { return nil }))

	err := startWithTimeout(10*time.Millisecond, func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	assert.ErrorContains(t, err, "timed out")
}

type fakeManager struct {
	startDelay time.Duration
	startErr   error
	started    atomic.Bool
	stopped    atomic.Bool
}

func (f *fakeManager) Start(ctx context.Context) error {
	time.Sleep(f.startDelay)
	if f.startErr != nil {
		return f.startErr
	}
	f.started.Store(true)
	return nil
}

func (f *fakeManager) Stop(ctx context.Context) error {
	f.stopped.Store(true)
	return nil
}

func (f *fakeManager) IsEnabled() bool                  { return true }
func (f *fakeManager) IsRunning() bool                  { return f.started.Load() && !f.stopped.Load() }
func (f *fakeManager) GetStats() map[string]interface{} { return nil }

func TestApp_StartTimeoutStopsSlowManager(t *testing.T) {
	app, err := NewApp(newTestConfig(t), "")
	require.NoError(t, err)

	first := &fakeManager{}
	slow := &fakeManager{startDelay: 200 * time.Millisecond}
	never := &fakeManager{}
	managers := []managerInfo{{"first", first}, {"slow", slow}, {"never", never}}

	started, err := app.startManagers(managers, 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to start slow manager")
	assert.ErrorContains(t, err, "timed out")
	require.Len(t, started, 2)
	assert.Equal(t, "slow", started[1].name)

	app.rollback(started)
	assert.True(t, first.stopped.Load())
	assert.True(t, slow.stopped.Load(), "the timed-out manager is stopped too")
	assert.False(t, never.stopped.Load())
	assert.False(t, never.started.Load())
}

func TestApp_StartManagersErrorIncludesFailed(t *testing.T) {
	app, err := NewApp(newTestConfig(t), "")
	require.NoError(t, err)
	t.Cleanup(func() { app.rollback(nil) })

	boom := errors.New("boom")
	managers := []managerInfo{{"ok", &fakeManager{}}, {"bad", &fakeManager{startErr: boom}}}

	started, err := app.startManagers(managers, time.Second)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, started, 2)

	started, err = app.startManagers(managers[:1], time.Second)
	require.NoError(t, err)
	assert.Len(t, started, 1)
}

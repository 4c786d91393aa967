package gstreamer

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-beagle/gst-element/internal/config"
)

func newTestManager(t *testing.T, cfg *config.ElementsConfig) *Manager {
	t.Helper()

	registry := NewRegistry()
	for _, typ := range CoreElementTypes() {
		require.NoError(t, registry.Register(typ))
	}

	manager, err := NewManager(&ManagerConfig{
		Config:   cfg,
		Registry: registry,
		Logger:   logrus.NewEntry(logrus.New()),
	})
	require.NoError(t, err)
	return manager
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)

	_, err = NewManager(&ManagerConfig{Config: &config.ElementsConfig{BusQueueSize: 0, HistorySize: 1}})
	assert.Error(t, err)
}

func TestManager_StartCreatesConfiguredElements(t *testing.T) {
	cfg := config.DefaultElementsConfig()
	cfg.Elements = []config.ElementConfig{
		{Type: "fakesrc", Name: "src", State: "PLAYING"},
		{Type: "fakesink", Name: "sink", State: "paused", Properties: map[string]any{"sync": true}},
		{Type: "queue"},
	}
	manager := newTestManager(t, cfg)

	ctx := context.Background()
	require.NoError(t, manager.Start(ctx))
	assert.True(t, manager.IsRunning())
	assert.NotNil(t, manager.GetContext())
	assert.Error(t, manager.Start(ctx))

	src, err := manager.Get("src")
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, src.State())

	sink, err := manager.Get("sink")
	require.NoError(t, err)
	assert.Equal(t, StatePaused, sink.State())
	sync, _ := sink.Property("sync")
	assert.Equal(t, true, sync)

	assert.Len(t, manager.List(), 3)
	assert.Equal(t, "queue0", manager.List()[0].Name())

	stats := manager.GetStats()
	assert.Equal(t, 3, stats["elements"])
	assert.Equal(t, true, stats["running"])

	require.NoError(t, manager.Stop(ctx))
	assert.False(t, manager.IsRunning())
	assert.Equal(t, StateNull, src.State())
	assert.Equal(t, StateNull, sink.State())
}

func TestManager_StartFailsOnConfiguredFault(t *testing.T) {
	cfg := config.DefaultElementsConfig()
	cfg.Elements = []config.ElementConfig{
		{Type: "fakesrc", Name: "src", State: "PLAYING"},
		{Type: "fakesink", Name: "sink", State: "READY", Properties: map[string]any{"state-error": "null-ready"}},
	}
	manager := newTestManager(t, cfg)

	err := manager.Start(context.Background())
	assert.ErrorIs(t, err, ErrTransition)
	assert.False(t, manager.IsRunning())
	assert.False(t, manager.Bus().IsRunning())
	assert.Empty(t, manager.List(), "elements created before the failure are removed")

	cfg.Elements[1].Properties = nil
	require.NoError(t, manager.Start(context.Background()))
	t.Cleanup(func() { _ = manager.Stop(context.Background()) })

	src, err := manager.Get("src")
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, src.State())
	sink, err := manager.Get("sink")
	require.NoError(t, err)
	assert.Equal(t, StateReady, sink.State())
}

func TestManager_CreateGetRemove(t *testing.T) {
	manager := newTestManager(t, nil)

	element, err := manager.Create("fakesink", "sink", map[string]any{"num-buffers": "10"})
	require.NoError(t, err)
	assert.Same(t, manager.Bus(), element.Bus())

	_, err = manager.Create("fakesink", "sink", nil)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = manager.Create("nope", "x", nil)
	assert.ErrorIs(t, err, ErrConstruction)

	_, err = manager.Create("fakesink", "bad", map[string]any{"num-buffers": "lots"})
	assert.ErrorIs(t, err, ErrProperty)
	_, err = manager.Get("bad")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, manager.SetState("sink", StatePlaying))
	assert.Equal(t, StatePlaying, element.State())

	require.NoError(t, manager.Remove("sink"))
	assert.Equal(t, StateNull, element.State())
	assert.Nil(t, element.Bus())
	_, err = manager.Get("sink")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, manager.Remove("sink"), ErrNotFound)
	assert.ErrorIs(t, manager.SetState("sink", StateReady), ErrNotFound)
}

func TestManager_RemoveBlockedByFault(t *testing.T) {
	manager := newTestManager(t, nil)

	element, err := manager.Create("fakesink", "stuck", map[string]any{"state-error": 6})
	require.NoError(t, err)
	require.NoError(t, element.SetState(StateReady))

	assert.ErrorIs(t, manager.Remove("stuck"), ErrTransition)
	_, err = manager.Get("stuck")
	assert.NoError(t, err)
}

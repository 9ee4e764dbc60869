package task

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/dacore/eventhub"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/types"
)

type recordingState struct {
	mu        sync.Mutex
	views     []types.ViewNumber
	running   int
	overlap   bool
	cancelled bool
}

func (s *recordingState) Name() string { return "recorder" }

func (s *recordingState) HandleEvent(ctx context.Context, ev eventhub.Event, publisher eventhub.Publisher) error {
	s.mu.Lock()
	s.running++
	if s.running > 1 {
		s.overlap = true
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
	}()

	vc, ok := ev.(*eventhub.ViewChangeEvent)
	if !ok {
		return nil
	}
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.views = append(s.views, vc.View)
	s.mu.Unlock()

	if vc.View == 3 {
		return fmt.Errorf("view 3 rejected")
	}
	return nil
}

func (s *recordingState) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

func (s *recordingState) snapshot() ([]types.ViewNumber, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ViewNumber(nil), s.views...), s.overlap, s.cancelled
}

func newTestTask(t *testing.T, state TaskState) (*Task, *eventhub.EventHub) {
	log := tplog.CreateWriterLogger(tplogcmm.InfoLevel, io.Discard)
	hub := eventhub.NewEventHub(tplogcmm.InfoLevel, log, 64)
	tk := NewTask(tplogcmm.InfoLevel, log, actor.NewActorSystem(), hub, state)
	t.Cleanup(hub.Close)
	return tk, hub
}

func TestTaskHandlesEventsInOrder(t *testing.T) {
	state := &recordingState{}
	tk, hub := newTestTask(t, state)
	require.NoError(t, tk.Start())

	for v := types.ViewNumber(1); v <= 5; v++ {
		require.NoError(t, hub.Publish(&eventhub.ViewChangeEvent{View: v, Epoch: 1}))
	}

	require.Eventually(t, func() bool { return tk.Handled() == 5 }, 5*time.Second, 5*time.Millisecond)
	tk.Stop()

	views, overlap, cancelled := state.snapshot()
	assert.Equal(t, []types.ViewNumber{1, 2, 3, 4, 5}, views)
	assert.False(t, overlap)
	assert.True(t, cancelled)
	assert.Equal(t, uint64(1), tk.Failed())
}

func TestTaskReceivesEventsPublishedBeforeStart(t *testing.T) {
	state := &recordingState{}
	tk, hub := newTestTask(t, state)

	require.NoError(t, hub.Publish(&eventhub.ViewChangeEvent{View: 1, Epoch: 1}))
	require.NoError(t, tk.Start())
	defer tk.Stop()

	require.Eventually(t, func() bool { return tk.Handled() == 1 }, 5*time.Second, 5*time.Millisecond)
}

func TestTaskStopIsIdempotent(t *testing.T) {
	state := &recordingState{}
	tk, hub := newTestTask(t, state)
	require.NoError(t, tk.Start())
	assert.Equal(t, int64(1), hub.ActiveSubscribers())

	tk.Stop()
	tk.Stop()
	assert.Equal(t, int64(0), hub.ActiveSubscribers())
}

func TestTaskStopsOnShutdown(t *testing.T) {
	state := &recordingState{}
	tk, hub := newTestTask(t, state)
	require.NoError(t, tk.Start())
	defer tk.Stop()

	require.NoError(t, hub.Publish(&eventhub.ShutdownEvent{}))
	require.NoError(t, hub.Publish(&eventhub.ViewChangeEvent{View: 1, Epoch: 1}))

	require.Eventually(t, func() bool { return tk.Handled() == 1 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, uint64(1), tk.Handled())
}

package eventhub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/types"
)

func newTestHub(t *testing.T, capacity int) *EventHub {
	testLog, err := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.StdErrOutput, "")
	require.NoError(t, err)
	return NewEventHub(tplogcmm.InfoLevel, testLog, capacity)
}

func viewChange(v uint64) *ViewChangeEvent {
	return &ViewChangeEvent{View: types.ViewNumber(v)}
}

func TestPublishSubscribeOrder(t *testing.T) {
	hub := newTestHub(t, 8)
	sub := hub.Subscribe()
	defer sub.Close()

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, hub.Publish(viewChange(i)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := uint64(1); i <= 3; i++ {
		ev, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, viewChange(i), ev)
	}

	_, ok := sub.TryRecv()
	assert.False(t, ok)
}

func TestOverflowDropsOldestForLateSubscriber(t *testing.T) {
	capacity := 16
	hub := newTestHub(t, capacity)

	done := make(chan struct{})
	go func() {
		for i := 0; i <= capacity; i++ {
			_ = hub.Publish(viewChange(uint64(i)))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}

	assert.Equal(t, uint64(1), hub.Dropped())
	assert.Equal(t, uint64(capacity+1), hub.Published())

	sub := hub.Subscribe()
	defer sub.Close()
	var views []types.ViewNumber
	for {
		ev, ok := sub.TryRecv()
		if !ok {
			break
		}
		views = append(views, ev.(*ViewChangeEvent).View)
	}
	require.Len(t, views, capacity)
	assert.Equal(t, types.ViewNumber(1), views[0])
	assert.Equal(t, types.ViewNumber(capacity), views[capacity-1])
}

func TestLaggingSubscriberSkipsDropped(t *testing.T) {
	hub := newTestHub(t, 4)
	sub := hub.Subscribe()
	defer sub.Close()

	for i := uint64(0); i < 10; i++ {
		require.NoError(t, hub.Publish(viewChange(i)))
	}

	ev, ok := sub.TryRecv()
	require.True(t, ok)
	assert.Equal(t, types.ViewNumber(6), ev.(*ViewChangeEvent).View)
	assert.Equal(t, uint64(6), sub.Lagged())
}

func TestRecvWaitsForPublish(t *testing.T) {
	hub := newTestHub(t, 4)
	sub := hub.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var got Event
	var recvErr error
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		got, recvErr = sub.Recv(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, hub.Publish(&ShutdownEvent{}))
	wg.Wait()

	require.NoError(t, recvErr)
	assert.Equal(t, EventName_Shutdown, got.EventName())
}

func TestRecvContextAndClose(t *testing.T) {
	hub := newTestHub(t, 4)
	sub := hub.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	hub.Close()
	_, err = sub.Recv(context.Background())
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.ErrorIs(t, hub.Publish(viewChange(1)), ErrHubClosed)

	assert.Equal(t, int64(1), hub.ActiveSubscribers())
	sub.Close()
	sub.Close()
	assert.Equal(t, int64(0), hub.ActiveSubscribers())
}

func TestPublishNilEvent(t *testing.T) {
	hub := newTestHub(t, 1)

	assert.ErrorIs(t, hub.Publish(nil), ErrNilEvent)
	assert.Equal(t, uint64(0), hub.Published())

	require.NoError(t, hub.Publish(viewChange(1)))
	assert.ErrorIs(t, hub.Publish(nil), ErrNilEvent)
	assert.Equal(t, uint64(0), hub.Dropped())
}

func TestHubMetrics(t *testing.T) {
	hub := newTestHub(t, 2)
	reg := prometheus.NewRegistry()
	hub.RegisterMetrics(reg, "test")

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, hub.Publish(viewChange(i)))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(hub.metrics.retained))
	assert.Equal(t, float64(1), testutil.ToFloat64(hub.metrics.dropped))
	assert.Equal(t, float64(3), testutil.ToFloat64(hub.metrics.published))
}

func TestExternalFilter(t *testing.T) {
	assert.True(t, ExternalFilter(&DaProposalSendEvent{}))
	assert.True(t, ExternalFilter(&LeafDecidedEvent{}))
	assert.True(t, ExternalFilter(&QuorumProposalSendEvent{}))
	assert.False(t, ExternalFilter(&DaCertificateRecvEvent{}))
	assert.False(t, ExternalFilter(&DaVoteSendEvent{}))
	assert.False(t, ExternalFilter(&ViewChangeEvent{}))
}

func TestEventHubManager(t *testing.T) {
	testLog, err := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.StdErrOutput, "")
	require.NoError(t, err)

	mng := GetEventHubManager()
	hub := mng.CreateEventHub("node-manager-test", tplogcmm.InfoLevel, testLog, 8)
	assert.Same(t, hub, mng.CreateEventHub("node-manager-test", tplogcmm.InfoLevel, testLog, 16))
	assert.Same(t, hub, mng.GetEventHub("node-manager-test"))

	mng.RemoveEventHub("node-manager-test")
	assert.Nil(t, mng.GetEventHub("node-manager-test"))
	assert.ErrorIs(t, hub.Publish(viewChange(1)), ErrHubClosed)
}

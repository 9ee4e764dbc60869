package eventhub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"

	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
)

const MOD_NAME = "eventhub"

// RetainedEventsCount is the default number of events kept for subscribers.
const RetainedEventsCount = 4096

var ErrHubClosed = errors.New("event hub closed")

var ErrNilEvent = errors.New("nil event")

var once sync.Once
var evHubMng *EventHubManager

// EventHubManager keeps one hub per node id, for processes hosting several nodes.
type EventHubManager struct {
	sync        sync.RWMutex
	eventHubMap map[string]*EventHub
}

func GetEventHubManager() *EventHubManager {
	once.Do(func() {
		evHubMng = &EventHubManager{
			eventHubMap: make(map[string]*EventHub),
		}
	})

	return evHubMng
}

func (evmng *EventHubManager) GetEventHub(nodeID string) *EventHub {
	evmng.sync.RLock()
	defer evmng.sync.RUnlock()

	return evmng.eventHubMap[nodeID]
}

func (evmng *EventHubManager) CreateEventHub(nodeID string, level tplogcmm.LogLevel, log tplog.Logger, capacity int) *EventHub {
	evmng.sync.Lock()
	defer evmng.sync.Unlock()

	if evHub, ok := evmng.eventHubMap[nodeID]; ok {
		return evHub
	}

	evmng.eventHubMap[nodeID] = NewEventHub(level, log, capacity)

	return evmng.eventHubMap[nodeID]
}

func (evmng *EventHubManager) RemoveEventHub(nodeID string) {
	evmng.sync.Lock()
	defer evmng.sync.Unlock()

	if evHub, ok := evmng.eventHubMap[nodeID]; ok {
		evHub.Close()
		delete(evmng.eventHubMap, nodeID)
	}
}

type envelope struct {
	seq uint64
	ev  Event
}

type hubMetrics struct {
	retained  prometheus.Gauge
	dropped   prometheus.Counter
	published prometheus.Counter
}

// EventHub is a bounded broadcast channel. Publishing never blocks: when the
// ring is full the oldest event is dropped. Every subscriber sees every
// retained event in publish order.
type EventHub struct {
	log      tplog.Logger
	capacity int

	sync    sync.Mutex
	events  *deque.Deque[*envelope]
	nextSeq uint64
	notify  chan struct{}
	closed  bool

	subscribers *atomic.Int64
	published   *atomic.Uint64
	dropped     *atomic.Uint64
	metrics     *hubMetrics
}

func NewEventHub(level tplogcmm.LogLevel, log tplog.Logger, capacity int) *EventHub {
	if capacity <= 0 {
		capacity = RetainedEventsCount
	}

	return &EventHub{
		log:         tplog.CreateModuleLogger(level, MOD_NAME, log),
		capacity:    capacity,
		events:      new(deque.Deque[*envelope]),
		notify:      make(chan struct{}),
		subscribers: atomic.NewInt64(0),
		published:   atomic.NewUint64(0),
		dropped:     atomic.NewUint64(0),
	}
}

// RegisterMetrics exports the retained queue length and the publish and drop counters.
func (hub *EventHub) RegisterMetrics(reg prometheus.Registerer, namespace string) {
	factory := promauto.With(reg)
	m := &hubMetrics{
		retained: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "retained_events",
			Help:      "Number of events currently retained for subscribers",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "dropped_events_total",
			Help:      "Number of events dropped on overflow",
		}),
		published: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "published_events_total",
			Help:      "Number of published events",
		}),
	}

	hub.sync.Lock()
	hub.metrics = m
	hub.sync.Unlock()
}

func (hub *EventHub) Capacity() int {
	return hub.capacity
}

func (hub *EventHub) Publish(ev Event) error {
	if ev == nil {
		return ErrNilEvent
	}

	hub.sync.Lock()
	if hub.closed {
		hub.sync.Unlock()
		return ErrHubClosed
	}

	var droppedEv Event
	if hub.events.Len() >= hub.capacity {
		droppedEv = hub.events.PopFront().ev
	}
	hub.events.PushBack(&envelope{seq: hub.nextSeq, ev: ev})
	hub.nextSeq++

	close(hub.notify)
	hub.notify = make(chan struct{})

	if hub.metrics != nil {
		hub.metrics.published.Inc()
		hub.metrics.retained.Set(float64(hub.events.Len()))
		if droppedEv != nil {
			hub.metrics.dropped.Inc()
		}
	}
	hub.sync.Unlock()

	hub.published.Inc()
	if droppedEv != nil {
		hub.dropped.Inc()
		hub.log.Warnf("Event channel overflow, dropped oldest event %s to make room for %s", droppedEv.EventName(), ev.EventName())
	}
	if hub.subscribers.Load() == 0 {
		hub.log.Debugf("No active subscriber for event %s, retained only", ev.EventName())
	}

	return nil
}

func (hub *EventHub) Subscribe() *Subscription {
	hub.sync.Lock()
	defer hub.sync.Unlock()

	hub.subscribers.Inc()

	return &Subscription{
		hub:    hub,
		cursor: hub.nextSeq - uint64(hub.events.Len()),
		lagged: atomic.NewUint64(0),
	}
}

func (hub *EventHub) ActiveSubscribers() int64 {
	return hub.subscribers.Load()
}

func (hub *EventHub) Published() uint64 {
	return hub.published.Load()
}

func (hub *EventHub) Dropped() uint64 {
	return hub.dropped.Load()
}

func (hub *EventHub) Close() {
	hub.sync.Lock()
	defer hub.sync.Unlock()

	if hub.closed {
		return
	}
	hub.closed = true
	close(hub.notify)
}

func (hub *EventHub) String() string {
	hub.sync.Lock()
	defer hub.sync.Unlock()

	return fmt.Sprintf("eventhub{retained=%d capacity=%d next=%d}", hub.events.Len(), hub.capacity, hub.nextSeq)
}

// Subscription is a cursor over the hub's retained events. A subscription is
// used by a single goroutine.
type Subscription struct {
	hub    *EventHub
	cursor uint64
	lagged *atomic.Uint64
	closed bool
}

// next returns the event at the cursor or the channel to wait on.
func (sub *Subscription) next() (Event, <-chan struct{}, error) {
	hub := sub.hub
	hub.sync.Lock()
	defer hub.sync.Unlock()

	if sub.closed || hub.closed {
		return nil, nil, ErrHubClosed
	}

	oldest := hub.nextSeq - uint64(hub.events.Len())
	if sub.cursor < oldest {
		sub.lagged.Add(oldest - sub.cursor)
		sub.cursor = oldest
	}
	if sub.cursor < hub.nextSeq {
		env := hub.events.At(int(sub.cursor - oldest))
		sub.cursor++
		return env.ev, nil, nil
	}

	return nil, hub.notify, nil
}

// Recv waits for the next event.
func (sub *Subscription) Recv(ctx context.Context) (Event, error) {
	for {
		ev, wait, err := sub.next()
		if err != nil {
			return nil, err
		}
		if ev != nil {
			return ev, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// TryRecv returns the next event if one is already available.
func (sub *Subscription) TryRecv() (Event, bool) {
	ev, _, err := sub.next()
	if err != nil || ev == nil {
		return nil, false
	}
	return ev, true
}

// Lagged is the number of events this subscription missed to overflow.
func (sub *Subscription) Lagged() uint64 {
	return sub.lagged.Load()
}

func (sub *Subscription) Close() {
	sub.hub.sync.Lock()
	defer sub.hub.sync.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true
	sub.hub.subscribers.Dec()
}

package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AsynkronIT/protoactor-go/actor"
	"go.uber.org/atomic"

	"github.com/TopiaNetwork/dacore/eventhub"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
)

const (
	MOD_NAME = "task"
)

// TaskState is a state machine driven by hub events. HandleEvent is never
// called concurrently for one state.
type TaskState interface {
	Name() string

	HandleEvent(ctx context.Context, ev eventhub.Event, publisher eventhub.Publisher) error

	// Cancel releases what the state holds; it runs once the task is stopped.
	Cancel()
}

type eventMsg struct {
	ev eventhub.Event
}

type Task struct {
	log      tplog.Logger
	state    TaskState
	hub      *eventhub.EventHub
	sysActor *actor.ActorSystem
	pid      *actor.PID
	sub      *eventhub.Subscription
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	handled  *atomic.Uint64
	failed   *atomic.Uint64
}

func NewTask(level tplogcmm.LogLevel, log tplog.Logger, sysActor *actor.ActorSystem, hub *eventhub.EventHub, state TaskState) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		log:      tplog.CreateModuleLogger(level, MOD_NAME, log),
		state:    state,
		hub:      hub,
		sysActor: sysActor,
		ctx:      ctx,
		cancel:   cancel,
		handled:  atomic.NewUint64(0),
		failed:   atomic.NewUint64(0),
	}
}

func (t *Task) Name() string {
	return t.state.Name()
}

// Start subscribes to the hub and spawns the actor that runs the state. Events
// published before Start are still delivered while they are retained by the hub.
func (t *Task) Start() error {
	props := actor.PropsFromProducer(func() actor.Actor {
		return t
	})
	pid, err := t.sysActor.Root.SpawnNamed(props, "task-"+t.state.Name())
	if err != nil {
		err = fmt.Errorf("Spawn task %s actor err: %v", t.state.Name(), err)
		t.log.Errorf("%v", err)
		return err
	}
	t.pid = pid
	t.sub = t.hub.Subscribe()

	t.wg.Add(1)
	go t.forward()

	t.log.Infof("Task %s started", t.state.Name())
	return nil
}

func (t *Task) forward() {
	defer t.wg.Done()

	for {
		ev, err := t.sub.Recv(t.ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				t.log.Infof("Task %s stops receiving: %v", t.state.Name(), err)
			}
			return
		}
		t.sysActor.Root.Send(t.pid, &eventMsg{ev: ev})

		if _, ok := ev.(*eventhub.ShutdownEvent); ok {
			t.log.Infof("Task %s received shutdown", t.state.Name())
			return
		}
	}
}

func (t *Task) Receive(actCtx actor.Context) {
	switch msg := actCtx.Message().(type) {
	case *actor.Started:
		t.log.Debug("Starting, initialize actor here")
	case *actor.Stopping:
		t.log.Debug("Stopping, actor is about to shut down")
	case *actor.Stopped:
		t.log.Debug("Stopped, actor and its children are stopped")
	case *actor.Restarting:
		t.log.Warn("Restarting, actor is about to restart")
	case *eventMsg:
		if err := t.state.HandleEvent(t.ctx, msg.ev, t.hub); err != nil {
			t.failed.Inc()
			t.log.Errorf("Task %s handle %s err: %v", t.state.Name(), msg.ev.EventName(), err)
		}
		t.handled.Inc()
	default:
		t.log.Errorf("Task %s actor receive invalid msg %T", t.state.Name(), msg)
	}
}

// Handled counts events the state has processed, failed ones included.
func (t *Task) Handled() uint64 {
	return t.handled.Load()
}

func (t *Task) Failed() uint64 {
	return t.failed.Load()
}

func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		t.cancel()
		if t.pid != nil {
			if err := t.sysActor.Root.PoisonFuture(t.pid).Wait(); err != nil {
				t.log.Warnf("Task %s actor stop err: %v", t.state.Name(), err)
			}
		}
		if t.sub != nil {
			t.sub.Close()
		}
		t.wg.Wait()
		t.state.Cancel()

		t.log.Infof("Task %s stopped", t.state.Name())
	})
}

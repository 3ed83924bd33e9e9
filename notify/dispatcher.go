package notify

import (
	"sync"

	"github.com/moyoez/localshare-go/tool"
	"github.com/moyoez/localshare-go/types"
)

// queueSize bounds notifications waiting for delivery; extra ones are dropped.
const queueSize = 64

// Broadcaster receives notifications, e.g. the admin WebSocket hub.
type Broadcaster interface {
	Broadcast(notification *types.Notification)
}

// Dispatcher fans notifications out to in-process broadcasters and, when
// enabled, to the desktop GUI socket. Delivery runs on a single worker, so
// callers never wait on a slow listener and sinks see events in order.
type Dispatcher struct {
	sinks      []Broadcaster
	useSocket  bool
	socketPath string

	mu     sync.RWMutex
	closed bool
	queue  chan *types.Notification
	done   chan struct{}
}

// NewDispatcher builds a dispatcher and starts its worker. An empty
// socketPath disables the desktop GUI socket.
func NewDispatcher(socketPath string, sinks ...Broadcaster) *Dispatcher {
	d := &Dispatcher{
		sinks:      sinks,
		useSocket:  socketPath != "",
		socketPath: socketPath,
		queue:      make(chan *types.Notification, queueSize),
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

// Broadcast queues the notification and returns at once.
func (d *Dispatcher) Broadcast(notification *types.Notification) {
	if d == nil || notification == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- notification:
	default:
		tool.DefaultLogger.Warnf("[Notify] Queue full, dropping %s notification", notificationType(notification))
	}
}

// Close delivers what is already queued, then stops the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		n := n
		for _, s := range d.sinks {
			if s != nil {
				s.Broadcast(n)
			}
		}
		if !d.useSocket {
			continue
		}
		go func() {
			if err := SendNotification(n, d.socketPath); err != nil {
				tool.DefaultLogger.Debugf("[Notify] Desktop notification not delivered: %v", err)
			}
		}()
	}
}

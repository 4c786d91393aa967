package gstreamer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultBusQueueSize is the number of messages a bus buffers before Post
// starts dropping.
const DefaultBusQueueSize = 256

// MessageHandler is called on the bus goroutine for every matching message.
type MessageHandler func(msg Message)

// Bus fans element messages out to handlers and subscribers asynchronously.
// Elements post synchronously from SetState; the bus never blocks them.
type Bus struct {
	logger *logrus.Entry
	queue  chan Message

	mutex       sync.RWMutex
	handlers    map[MessageType][]MessageHandler
	subscribers map[int]chan Message
	nextSubID   int

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	posted  atomic.Uint64
	dropped atomic.Uint64
}

// NewBus creates a bus with the given queue size.
func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultBusQueueSize
	}

	bus := &Bus{
		logger:      logrus.WithField("component", "bus"),
		queue:       make(chan Message, queueSize),
		handlers:    make(map[MessageType][]MessageHandler),
		subscribers: make(map[int]chan Message),
	}

	bus.logger.Debug("Bus created successfully")
	return bus
}

// AddHandler adds a handler for a message type, or MessageAny for all.
func (b *Bus) AddHandler(messageType MessageType, handler MessageHandler) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.handlers[messageType] = append(b.handlers[messageType], handler)
	b.logger.Debugf("Added message handler for type: %s", messageType)
}

// RemoveHandlers removes all handlers for a message type.
func (b *Bus) RemoveHandlers(messageType MessageType) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	delete(b.handlers, messageType)
	b.logger.Debugf("Removed message handlers for type: %s", messageType)
}

// Subscribe returns a channel receiving every message dispatched after the
// call, and a function that ends the subscription. Slow subscribers lose
// messages instead of stalling the bus.
func (b *Bus) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	b.mutex.Lock()
	id := b.nextSubID
	b.nextSubID++
	ch := make(chan Message, buffer)
	b.subscribers[id] = ch
	b.mutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mutex.Lock()
			defer b.mutex.Unlock()
			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
		})
	}
}

// Post queues msg for dispatch. It returns false if the queue is full.
func (b *Bus) Post(msg Message) bool {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	select {
	case b.queue <- msg:
		b.posted.Add(1)
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warnf("Bus queue full, dropping %s message from '%s'", msg.Type, msg.Source)
		return false
	}
}

// Start begins dispatching messages.
func (b *Bus) Start(ctx context.Context) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.running {
		return fmt.Errorf("bus is already running")
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.running = true
	b.wg.Add(1)
	go b.messageLoop()

	b.logger.Info("Bus started successfully")
	return nil
}

// Stop dispatches what is still queued, then stops and closes subscriptions.
func (b *Bus) Stop() error {
	b.mutex.Lock()
	if !b.running {
		b.mutex.Unlock()
		return nil
	}
	b.running = false
	b.mutex.Unlock()

	b.cancel()
	b.wg.Wait()

	b.mutex.Lock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mutex.Unlock()

	b.logger.Info("Bus stopped successfully")
	return nil
}

// IsRunning returns true if the bus is currently dispatching messages
func (b *Bus) IsRunning() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.running
}

// Stats returns the number of posted and dropped messages.
func (b *Bus) Stats() (posted, dropped uint64) {
	return b.posted.Load(), b.dropped.Load()
}

func (b *Bus) messageLoop() {
	defer b.wg.Done()

	b.logger.Debug("Starting message processing loop")
	for {
		select {
		case msg := <-b.queue:
			b.dispatch(msg)
		case <-b.ctx.Done():
			b.drain()
			b.logger.Debug("Message processing loop stopped")
			return
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case msg := <-b.queue:
			b.dispatch(msg)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(msg Message) {
	b.mutex.RLock()
	handlers := make([]MessageHandler, 0, len(b.handlers[msg.Type])+len(b.handlers[MessageAny]))
	handlers = append(handlers, b.handlers[msg.Type]...)
	handlers = append(handlers, b.handlers[MessageAny]...)
	subscribers := make([]chan Message, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subscribers = append(subscribers, ch)
	}

	for _, ch := range subscribers {
		select {
		case ch <- msg:
		default:
			b.dropped.Add(1)
		}
	}
	b.mutex.RUnlock()

	for _, handler := range handlers {
		b.callHandler(handler, msg)
	}
}

func (b *Bus) callHandler(handler MessageHandler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Message handler panic: %v", r)
		}
	}()
	handler(msg)
}

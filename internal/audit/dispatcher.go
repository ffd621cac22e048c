package audit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards an event when the queue is full instead of waiting
	// for space or for the caller's context.
	DropIfFull bool
	// Logger receives overflow notices and sink panics. Nil discards them.
	Logger *zap.Logger
}

// Dispatcher redacts events and hands them to a sink from a single background
// goroutine, preserving emission order. A nil Dispatcher is valid and discards
// events.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	logger     *zap.Logger

	queue    chan Event
	stopping chan struct{}
	finished chan struct{}

	// mu guards closed and the queue close against in-flight Emit sends.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	dropped atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. It returns nil when audit is
// disabled or no sink is configured.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled || sink == nil {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     logger,
		queue:      make(chan Event, size),
		stopping:   make(chan struct{}),
		finished:   make(chan struct{}),
	}
	go d.deliverAll()
	return d
}

func (d *Dispatcher) deliverAll() {
	defer close(d.finished)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked",
				zap.String("event_type", event.EventType),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues a redacted copy of event. Events emitted after Close are
// discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	event = Redact(event)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.recordDrop(event)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.recordDrop(event)
	case <-d.stopping:
	}
}

// recordDrop logs the first overflow and then at every power of two so a flood
// cannot flood the log as well.
func (d *Dispatcher) recordDrop(event Event) {
	n := d.dropped.Add(1)
	if n&(n-1) == 0 {
		d.logger.Warn("audit event dropped",
			zap.String("event_type", event.EventType),
			zap.Uint64("dropped_total", n),
		)
	}
}

// Close stops accepting events, delivers everything already queued and waits
// for the sink to finish.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.stopping)

		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		<-d.finished
		if n := d.dropped.Load(); n > 0 {
			d.logger.Warn("audit dispatcher closed with dropped events", zap.Uint64("dropped_total", n))
		}
	})
}

// Dropped reports how many events were discarded because the queue was full
// or the caller gave up waiting.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

const redacted = "[redacted]"

// secretKeyFragments mark metadata keys whose values are never forwarded.
var secretKeyFragments = []string{"password", "secret", "blinding", "share", "refresh_token", "access_token"}

// Redact returns a copy of event safe to hand to a sink. Values under secret
// looking keys are replaced, one-time codes keep only their first two
// characters and phone numbers only their last four digits. Values already
// masked are left alone.
func Redact(event Event) Event {
	if len(event.Metadata) == 0 {
		return event
	}
	clean := make(map[string]string, len(event.Metadata))
	for key, value := range event.Metadata {
		clean[key] = redactValue(strings.ToLower(key), value)
	}
	event.Metadata = clean
	return event
}

func redactValue(key, value string) string {
	for _, fragment := range secretKeyFragments {
		if strings.Contains(key, fragment) {
			return redacted
		}
	}
	if value == "" || strings.Contains(value, "*") {
		return value
	}
	switch {
	case key == "code" || key == "otp" || strings.HasSuffix(key, "_code"):
		return MaskOTP(value)
	case key == "phone" || strings.HasSuffix(key, "_phone"):
		return MaskPhone(value)
	}
	return value
}

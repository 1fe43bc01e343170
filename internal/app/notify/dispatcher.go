// internal/app/notify/dispatcher.go
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher is a background worker that delivers status notifications
// after a fixed delay. Delivery is fire-and-forget: a failed send is
// logged and dropped, never retried, and never affects the state change
// that queued it.
type Dispatcher struct {
	sender Sender
	log    *zap.Logger
	delay  time.Duration
	queue  chan Payload
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher that holds each payload for delay
// before handing it to sender. queueSize bounds the in-flight backlog;
// when the queue is full new payloads are dropped with a warning.
func NewDispatcher(sender Sender, logger *zap.Logger, delay time.Duration, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		sender: sender,
		log:    logger,
		delay:  delay,
		queue:  make(chan Payload, queueSize),
		stopCh: make(chan struct{}),
	}
}

// Start begins the background delivery loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	d.log.Info("notification dispatcher started",
		zap.Duration("delay", d.delay),
		zap.Int("queue_size", cap(d.queue)))
}

// Stop signals the worker to stop and waits for it to finish. Payloads
// still queued or mid-delay are dropped.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
	d.log.Info("notification dispatcher stopped")
}

// Schedule queues a payload for delayed delivery. It never blocks the
// caller: when the queue is full the payload is dropped and logged.
func (d *Dispatcher) Schedule(p Payload) {
	select {
	case d.queue <- p:
	default:
		d.log.Warn("notification queue full, dropping payload",
			zap.String("id", p.ID),
			zap.String("contact_phone", p.ContactPhone))
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			return
		case p := <-d.queue:
			if !d.hold(p) {
				return
			}
			d.deliver(p)
		}
	}
}

// hold waits out the configured delay. Returns false when the dispatcher
// is stopping.
func (d *Dispatcher) hold(p Payload) bool {
	if d.delay <= 0 {
		return true
	}
	remaining := d.delay - time.Since(p.QueuedAt)
	if remaining <= 0 {
		return true
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-d.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func (d *Dispatcher) deliver(p Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.sender.Send(ctx, p); err != nil {
		d.log.Error("notification delivery failed",
			zap.String("id", p.ID),
			zap.String("contact_phone", p.ContactPhone),
			zap.Error(err))
		return
	}
	d.log.Info("notification delivered",
		zap.String("id", p.ID),
		zap.String("status", p.Status))
}

// LogSender is a Sender that only logs the payload. It is the default
// delivery channel until a real gateway is configured.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, p Payload) error {
	s.Log.Info("notification",
		zap.String("id", p.ID),
		zap.String("contact_phone", p.ContactPhone),
		zap.String("contact_display_name", p.ContactDisplayName),
		zap.String("event_title", p.EventTitle),
		zap.String("status", p.Status),
		zap.Int("guest_count", p.GuestCount),
		zap.String("reject_reason", p.RejectReason),
		zap.String("cancel_reason", p.CancelReason))
	return nil
}

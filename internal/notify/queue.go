// internal/notify/queue.go
package notify

import (
	"context"
	"sync"
	"time"

	"agency-crm/internal/common/config"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/common/metrics"
)

// Channel names for metrics and logs.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// OutboundMessage is one applicant-facing message waiting for delivery.
type OutboundMessage struct {
	Channel string
	To      string
	Subject string
	Body    string
}

// Sender delivers one message over one channel.
type Sender interface {
	SendSMS(ctx context.Context, phone, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Queue is a bounded in-process outbound queue. A single drain goroutine
// delivers with limited retry. Delivery is best-effort: the workflow never
// waits on, or fails because of, an SMS or email.
type Queue struct {
	ch         chan OutboundMessage
	sender     Sender
	log        logger.Logger
	maxRetries int
	retryDelay time.Duration

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewQueue(sender Sender, cfg config.NotificationConfig, log logger.Logger) *Queue {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	delay := time.Duration(cfg.RetryDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	return &Queue{
		ch:         make(chan OutboundMessage, size),
		sender:     sender,
		log:        log,
		maxRetries: retries,
		retryDelay: delay,
		stop:       make(chan struct{}),
	}
}

// Start launches the drain goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.drain()
}

// Enqueue accepts a message without blocking. When the queue is full the
// message is dropped and counted; callers are never held up.
func (q *Queue) Enqueue(msg OutboundMessage) {
	select {
	case q.ch <- msg:
		metrics.OutboundQueueDepth.Set(float64(len(q.ch)))
	default:
		metrics.OutboundMessagesTotal.WithLabelValues(msg.Channel, "dropped").Inc()
		q.log.Warn("outbound queue full, message dropped", map[string]interface{}{
			"channel": msg.Channel,
		})
	}
}

// Close stops accepting work and waits for in-flight deliveries to finish.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.stop)
	})
	q.wg.Wait()
}

func (q *Queue) drain() {
	defer q.wg.Done()
	for {
		select {
		case msg := <-q.ch:
			metrics.OutboundQueueDepth.Set(float64(len(q.ch)))
			q.deliver(msg)
		case <-q.stop:
			// Flush whatever is already queued, then exit.
			for {
				select {
				case msg := <-q.ch:
					q.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(msg OutboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt <= q.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(q.retryDelay)
		}

		switch msg.Channel {
		case ChannelSMS:
			err = q.sender.SendSMS(ctx, msg.To, msg.Body)
		case ChannelEmail:
			err = q.sender.SendEmail(ctx, msg.To, msg.Subject, msg.Body)
		default:
			q.log.Error("unknown outbound channel", map[string]interface{}{
				"channel": msg.Channel,
			})
			return
		}
		if err == nil {
			metrics.OutboundMessagesTotal.WithLabelValues(msg.Channel, "sent").Inc()
			return
		}
	}

	metrics.OutboundMessagesTotal.WithLabelValues(msg.Channel, "failed").Inc()
	q.log.Error("outbound message delivery failed", map[string]interface{}{
		"channel": msg.Channel,
		"error":   err.Error(),
	})
}

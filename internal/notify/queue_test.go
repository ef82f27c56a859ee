// internal/notify/queue_test.go
package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-crm/internal/common/config"
	"agency-crm/internal/common/logger"
)

type fakeSender struct {
	mu       sync.Mutex
	sms      []string
	emails   []string
	failures int
}

func (f *fakeSender) SendSMS(_ context.Context, phone, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("gateway down")
	}
	f.sms = append(f.sms, phone)
	return nil
}

func (f *fakeSender) SendEmail(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("gateway down")
	}
	f.emails = append(f.emails, to)
	return nil
}

func (f *fakeSender) delivered() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sms), len(f.emails)
}

func queueConfig() config.NotificationConfig {
	return config.NotificationConfig{
		QueueSize:    8,
		MaxRetries:   2,
		RetryDelayMs: 1,
	}
}

func TestQueueDeliversBothChannels(t *testing.T) {
	sender := &fakeSender{}
	q := NewQueue(sender, queueConfig(), logger.NewNoOpLogger())
	q.Start()

	q.Enqueue(OutboundMessage{Channel: ChannelSMS, To: "+212612345678", Body: "hello"})
	q.Enqueue(OutboundMessage{Channel: ChannelEmail, To: "a@b.com", Subject: "s", Body: "hello"})
	q.Close()

	sms, emails := sender.delivered()
	assert.Equal(t, 1, sms)
	assert.Equal(t, 1, emails)
}

func TestQueueRetriesTransientFailure(t *testing.T) {
	sender := &fakeSender{failures: 1}
	q := NewQueue(sender, queueConfig(), logger.NewNoOpLogger())
	q.Start()

	q.Enqueue(OutboundMessage{Channel: ChannelSMS, To: "+212612345678", Body: "hello"})
	q.Close()

	sms, _ := sender.delivered()
	assert.Equal(t, 1, sms)
}

func TestQueueSwallowsPermanentFailure(t *testing.T) {
	sender := &fakeSender{failures: 100}
	q := NewQueue(sender, queueConfig(), logger.NewNoOpLogger())
	q.Start()

	q.Enqueue(OutboundMessage{Channel: ChannelEmail, To: "a@b.com", Subject: "s", Body: "hello"})

	done := make(chan struct{})
	go func() {
		q.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue close hung on failing sender")
	}

	_, emails := sender.delivered()
	assert.Equal(t, 0, emails)
}

func TestQueueDropsWhenFull(t *testing.T) {
	sender := &fakeSender{}
	cfg := queueConfig()
	cfg.QueueSize = 1
	q := NewQueue(sender, cfg, logger.NewNoOpLogger())
	// Not started: the single slot fills and the rest drop.

	for i := 0; i < 5; i++ {
		q.Enqueue(OutboundMessage{Channel: ChannelSMS, To: "+212612345678", Body: "hello"})
	}
	require.Len(t, q.ch, 1)
}

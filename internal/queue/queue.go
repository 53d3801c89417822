package queue

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outbound-campaigns/internal/logger"
)

// TopicCampaignCreated carries CampaignCreatedEvent payloads to whatever
// runs campaigns downstream.
const TopicCampaignCreated = "campaign_created"

type CampaignCreatedEvent struct {
	CampaignID   int    `json:"campaign_id"`
	UserID       string `json:"user_id"`
	ContactCount int    `json:"contact_count"`
}

type Publisher interface {
	Publish(topic string, payload any) error
}

type Queue interface {
	Publisher
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers to in-process subscribers with retry. Used when no
// broker is configured.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	logger   *zap.Logger

	MaxRetries int
	Backoff    time.Duration
}

func NewInMemoryQueue(l *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		logger:     logger.Component(l, "queue"),
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish hands payload to every subscriber of topic asynchronously.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		go q.processJob(topic, handler, JobPayload{Payload: payload, MaxRetries: q.MaxRetries})
	}
	return nil
}

func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job JobPayload) {
	for {
		err := handler(job.Payload)
		if err == nil {
			return
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			q.logger.Error("job permanently failed",
				zap.String("topic", topic),
				zap.Int("attempts", job.RetryCount),
				zap.Error(err))
			return
		}
		q.logger.Warn("job failed, retrying",
			zap.String("topic", topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))

		// linear backoff
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartCampaignCreatedLogger subscribes a handler that records hand-offs.
// It stands in for the downstream runner in local setups.
func StartCampaignCreatedLogger(q Queue, l *zap.Logger) error {
	l = logger.Component(l, "campaign-events")
	return q.Subscribe(TopicCampaignCreated, func(payload any) error {
		event, ok := payload.(CampaignCreatedEvent)
		if !ok {
			l.Warn("unexpected payload type", zap.String("type", fmt.Sprintf("%T", payload)))
			return nil // no retry
		}
		l.Info("campaign ready for scheduling",
			zap.Int("campaign_id", event.CampaignID),
			zap.String("user_id", event.UserID),
			zap.Int("contacts", event.ContactCount))
		return nil
	})
}

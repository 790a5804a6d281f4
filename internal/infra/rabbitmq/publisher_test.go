package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	declareErr error
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestPublisherDeclaresQueueOncePerTopic(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "examprep")
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	payload := map[string]any{"studentId": "s1", "newLevel": 2}
	for i := 0; i < 2; i++ {
		if err := p.Publish(context.Background(), "level.up", payload); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	if len(ch.declared) != 1 || ch.declared[0] != "examprep.level.up" {
		t.Fatalf("expected one declare of examprep.level.up, got %v", ch.declared)
	}
	if len(ch.published) != 2 || ch.keys[0] != "examprep.level.up" {
		t.Fatalf("expected 2 publishes to queue, got %v", ch.keys)
	}

	msg := ch.published[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent || msg.Type != "level.up" || !msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected message headers %+v", msg)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body not json: %v", err)
	}
	if decoded["studentId"] != "s1" {
		t.Fatalf("unexpected body %s", msg.Body)
	}
}

func TestPublisherReportsDeclareFailure(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("channel closed")}
	p := NewPublisher(ch, "")

	if err := p.Publish(context.Background(), "attempt.graded", struct{}{}); err == nil {
		t.Fatalf("expected declare failure")
	}
	if len(ch.published) != 0 {
		t.Fatalf("nothing should be published")
	}
	if p.QueueName("attempt.graded") != "attempt.graded" {
		t.Fatalf("empty prefix should use bare topic")
	}
}

package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventMessage(t *testing.T, topic string, offset int64) kafka.Message {
	t.Helper()
	event, err := NewEvent(context.Background(), "payments", "payment.completed", "order", "ord-1", map[string]string{"order_id": "ord-1"})
	require.NoError(t, err)
	raw, err := event.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Offset: offset, Value: raw}
}

func testConsumer(r *fakeReader, handler Handler, dlq DeadLetterPublisher, metrics *Metrics) *Consumer {
	cfg := ConsumerConfig{Topic: "petshop.payment.completed", GroupID: "storefront", MaxRetries: 3, RetryDelay: time.Millisecond}
	return newConsumer(r, cfg, handler, dlq, metrics, testLogger())
}

func runUntilCommitted(t *testing.T, c *Consumer, r *fakeReader, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return r.committedCount() >= n }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		eventMessage(t, "petshop.payment.completed", 1),
		eventMessage(t, "petshop.payment.completed", 2),
	}}
	metrics := NewMetrics()

	var handled atomic.Int32
	c := testConsumer(r, func(ctx context.Context, event *Event) error {
		assert.Equal(t, "payment.completed", event.EventType)
		handled.Add(1)
		return nil
	}, nil, metrics)

	runUntilCommitted(t, c, r, 2)

	assert.Equal(t, int32(2), handled.Load())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Processed.WithLabelValues("petshop.payment.completed", "storefront")))
	assert.Equal(t, 1, r.closed)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, "petshop.payment.completed", 1)}}
	dlq := &recordingDLQ{}

	var calls atomic.Int32
	c := testConsumer(r, func(ctx context.Context, event *Event) error {
		if calls.Add(1) < 3 {
			return errors.New("db busy")
		}
		return nil
	}, dlq, nil)

	runUntilCommitted(t, c, r, 1)

	assert.Equal(t, int32(3), calls.Load())
	assert.Empty(t, dlq.messages)
}

func TestConsumer_ExhaustedRetriesGoToDLQ(t *testing.T) {
	msg := eventMessage(t, "petshop.payment.completed", 7)
	r := &fakeReader{queue: []kafka.Message{msg}}
	dlq := &recordingDLQ{}
	metrics := NewMetrics()

	var calls atomic.Int32
	c := testConsumer(r, func(ctx context.Context, event *Event) error {
		calls.Add(1)
		return errors.New("order not found")
	}, dlq, metrics)

	runUntilCommitted(t, c, r, 1)

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, int64(7), dlq.messages[0].Offset)
	assert.EqualError(t, dlq.causes[0], "order not found")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Failed.WithLabelValues("petshop.payment.completed", "storefront")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DeadLetter.WithLabelValues("petshop.payment.completed", "storefront")))
}

func TestConsumer_MalformedMessageIsDeadLettered(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Topic: "petshop.payment.completed", Value: []byte("not json")}}}
	dlq := &recordingDLQ{}

	c := testConsumer(r, func(ctx context.Context, event *Event) error {
		t.Error("handler must not run for malformed messages")
		return nil
	}, dlq, nil)

	runUntilCommitted(t, c, r, 1)
	assert.Len(t, dlq.messages, 1)
}

func TestConsumer_CloseIsIdempotent(t *testing.T) {
	r := &fakeReader{}
	c := testConsumer(r, func(context.Context, *Event) error { return nil }, nil, nil)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}

func TestMetrics_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, NewMetrics().Register(reg))
	require.NoError(t, NewMetrics().Register(reg))
}

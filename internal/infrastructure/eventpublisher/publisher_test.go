package eventpublisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

type stubOutboxRepo struct {
	mu        sync.Mutex
	events    []*domain.OutboxEvent
	marked    []string
	purged    []time.Time
	fetchErr  error
	markErrID string
}

func (s *stubOutboxRepo) Create(context.Context, usecase.Tx, *domain.OutboxEvent) error {
	return nil
}

func (s *stubOutboxRepo) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []*domain.OutboxEvent
	for _, e := range s.events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubOutboxRepo) MarkPublished(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.markErrID {
		return errors.New("mark failed")
	}
	for _, e := range s.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &at
		}
	}
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubOutboxRepo) DeletePublished(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = append(s.purged, before)
	return nil
}

type stubPublisher struct {
	mu          sync.Mutex
	published   []string
	errorsByID  map[string]error
	publishedCh chan string
}

func (s *stubPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	if err := s.errorsByID[event.ID]; err != nil {
		return err
	}
	s.mu.Lock()
	s.published = append(s.published, event.ID)
	s.mu.Unlock()
	if s.publishedCh != nil {
		s.publishedCh <- event.ID
	}
	return nil
}

type stubRecorder struct {
	mu       sync.Mutex
	statuses map[string]int
}

func (r *stubRecorder) RecordOutboxEvent(_, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses == nil {
		r.statuses = map[string]int{}
	}
	r.statuses[status]++
}

func event(id string) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            id,
		AggregateID:   "w1",
		AggregateType: domain.AggregateTypeWallet,
		EventType:     domain.EventTypeWalletCreated,
		Payload:       map[string]any{"wallet_id": "w1"},
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestPublisher(repo *stubOutboxRepo, pub Publisher, rec Recorder) *EventPublisher {
	return NewEventPublisher(Config{
		OutboxRepo: repo,
		Publisher:  pub,
		Metrics:    rec,
		Logger:     zerolog.Nop(),
		BatchSize:  10,
		Interval:   10 * time.Millisecond,
		Retention:  time.Hour,
	})
}

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	repo := &stubOutboxRepo{events: []*domain.OutboxEvent{event("e1"), event("e2")}}
	pub := &stubPublisher{}
	rec := &stubRecorder{}

	require.NoError(t, newTestPublisher(repo, pub, rec).processEvents(context.Background()))

	assert.Equal(t, []string{"e1", "e2"}, pub.published)
	assert.Equal(t, []string{"e1", "e2"}, repo.marked)
	assert.Equal(t, 2, rec.statuses["published"])
}

func TestProcessEventsContinuesOnPublishError(t *testing.T) {
	repo := &stubOutboxRepo{events: []*domain.OutboxEvent{event("e1"), event("e2"), event("e3")}}
	pub := &stubPublisher{errorsByID: map[string]error{"e2": errors.New("broker down")}}
	rec := &stubRecorder{}

	require.NoError(t, newTestPublisher(repo, pub, rec).processEvents(context.Background()))

	assert.Equal(t, []string{"e1", "e3"}, repo.marked)
	assert.Equal(t, 1, rec.statuses["failed"])
	assert.False(t, repo.events[1].Published)
}

func TestProcessEventsReportsUnmarkedEvents(t *testing.T) {
	repo := &stubOutboxRepo{events: []*domain.OutboxEvent{event("e1")}, markErrID: "e1"}
	rec := &stubRecorder{}

	require.NoError(t, newTestPublisher(repo, &stubPublisher{}, rec).processEvents(context.Background()))
	assert.Equal(t, 1, rec.statuses["unmarked"])
}

func TestProcessEventsReturnsFetchError(t *testing.T) {
	repo := &stubOutboxRepo{fetchErr: errors.New("db down")}

	err := newTestPublisher(repo, &stubPublisher{}, nil).processEvents(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestPurgeUsesRetention(t *testing.T) {
	repo := &stubOutboxRepo{}
	ep := newTestPublisher(repo, &stubPublisher{}, nil)

	require.NoError(t, ep.purge(context.Background()))
	require.Len(t, repo.purged, 1)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), repo.purged[0], time.Minute)

	ep.retention = 0
	require.NoError(t, ep.purge(context.Background()))
	assert.Len(t, repo.purged, 1)
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	repo := &stubOutboxRepo{events: []*domain.OutboxEvent{event("e1")}}
	pub := &stubPublisher{publishedCh: make(chan string, 1)}
	ep := newTestPublisher(repo, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ep.Start(ctx) }()

	select {
	case id := <-pub.publishedCh:
		assert.Equal(t, "e1", id)
	case <-time.After(time.Second):
		t.Fatal("event was not published")
	}

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestLogPublisherWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, p.Publish(context.Background(), event("e1")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "e1", line["event_id"])
	assert.Equal(t, domain.EventTypeWalletCreated, line["event_type"])
	assert.Equal(t, map[string]any{"wallet_id": "w1"}, line["payload"])
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	err      error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func (c *fakeChannel) Close() error { return nil }

func TestAMQPPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{channel: ch, exchange: "budgetledger.events"}

	require.NoError(t, p.Publish(context.Background(), event("e1")))

	assert.Equal(t, "budgetledger.events", ch.exchange)
	assert.Equal(t, domain.EventTypeWalletCreated, ch.key)
	assert.Equal(t, "e1", ch.msg.MessageId)
	assert.Equal(t, amqp091.Persistent, ch.msg.DeliveryMode)

	var body message
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, "w1", body.AggregateID)
	assert.Equal(t, "w1", body.Payload["wallet_id"])

	ch.err = errors.New("channel closed")
	assert.ErrorContains(t, p.Publish(context.Background(), event("e2")), "channel closed")
}

type fakeConn struct {
	msgs     []*nats.Msg
	flushErr error
}

func (c *fakeConn) PublishMsg(m *nats.Msg) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *fakeConn) FlushWithContext(context.Context) error { return c.flushErr }

func (c *fakeConn) Drain() error { return nil }

func TestNATSPublisherUsesPrefixedSubject(t *testing.T) {
	conn := &fakeConn{}
	p := &NATSPublisher{conn: conn, prefix: "budgetledger"}

	require.NoError(t, p.Publish(context.Background(), event("e1")))
	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "budgetledger."+domain.EventTypeWalletCreated, conn.msgs[0].Subject)
	assert.Equal(t, "e1", conn.msgs[0].Header.Get(nats.MsgIdHdr))

	p.prefix = ""
	assert.Equal(t, "x", p.subject("x"))

	conn.flushErr = errors.New("timeout")
	assert.EqualError(t, p.Publish(context.Background(), event("e2")), "timeout")
}

func TestNewPublisherSelectsBroker(t *testing.T) {
	p, closeFn, err := NewPublisher(BrokerConfig{Broker: "LOG"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogPublisher{}, p)
	assert.NoError(t, closeFn())

	_, closeFn, err = NewPublisher(BrokerConfig{Broker: "kafka"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown event broker")
	assert.NotNil(t, closeFn)
}

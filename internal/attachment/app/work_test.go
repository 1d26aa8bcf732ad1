package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"chat_sync_service/internal/attachment/domain"
	"chat_sync_service/pkg/logger"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records map[uint64]ackRecord
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{records: map[uint64]ackRecord{}}
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[tag] = ackRecord{acked: true}
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[tag] = ackRecord{nacked: true, requeue: requeue}
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcknowledger) get(tag uint64) (ackRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[tag]
	return r, ok
}

type chanSource struct {
	ch    chan amqp.Delivery
	queue string
}

func (s *chanSource) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	s.queue = queue
	if autoAck {
		return nil, errors.New("auto ack not expected")
	}
	return s.ch, nil
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body)}
}

func newTestConsumer() (*Consumer, *chanSource, *MockMinIOClient, *MockAttachmentRepo, *MockRenderer) {
	logger.SetNewNop()
	src := &chanSource{ch: make(chan amqp.Delivery, 4)}
	store, repo, renderer := new(MockMinIOClient), new(MockAttachmentRepo), new(MockRenderer)
	return NewConsumer(src, store, repo, renderer, testQueue), src, store, repo, renderer
}

func TestConsumer_ThumbnailReady(t *testing.T) {
	ctx := context.Background()
	c, _, store, repo, renderer := newTestConsumer()
	ack := newFakeAcknowledger()

	repo.On("GetByID", ctx, "att-1").Return(&domain.Attachment{
		ID: "att-1", FileType: "image", ObjectKey: "attachments/att-1/cat.png", Status: string(domain.AttachmentUploaded),
	}, nil).Once()
	store.On("GetObject", ctx, "attachments/att-1/cat.png").Return(io.NopCloser(strings.NewReader("png")), nil).Once()
	renderer.On("Render", ctx, domain.FileImage).Return([]byte("jpeg"), nil).Once()
	store.On("PutObject", ctx, "thumbnails/att-1.jpg", "image/jpeg", []byte("jpeg"), int64(4)).Return(nil).Once()
	repo.On("Update", ctx, mock.MatchedBy(func(a *domain.Attachment) bool {
		return a.Status == string(domain.AttachmentReady) && a.ThumbnailKey == "thumbnails/att-1.jpg"
	})).Return(nil).Once()

	c.handle(ctx, delivery(ack, 1, `{"attachment_id":"att-1","object_key":"attachments/att-1/cat.png","file_type":"image"}`))

	r, ok := ack.get(1)
	require.True(t, ok)
	assert.True(t, r.acked)
	store.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestConsumer_FailureMarksFailedWithoutRequeue(t *testing.T) {
	ctx := context.Background()
	c, _, store, repo, renderer := newTestConsumer()
	ack := newFakeAcknowledger()

	repo.On("GetByID", ctx, "att-2").Return(&domain.Attachment{
		ID: "att-2", FileType: "video", ObjectKey: "attachments/att-2/clip.mp4", Status: string(domain.AttachmentUploaded),
	}, nil).Twice()
	store.On("GetObject", ctx, "attachments/att-2/clip.mp4").Return(io.NopCloser(strings.NewReader("mp4")), nil).Once()
	renderer.On("Render", ctx, domain.FileVideo).Return(nil, errors.New("ffmpeg missing")).Once()
	repo.On("Update", ctx, mock.MatchedBy(func(a *domain.Attachment) bool {
		return a.Status == string(domain.AttachmentFailed)
	})).Return(nil).Once()

	c.handle(ctx, delivery(ack, 2, `{"attachment_id":"att-2"}`))

	r, ok := ack.get(2)
	require.True(t, ok)
	assert.True(t, r.nacked)
	assert.False(t, r.requeue)
	repo.AssertExpectations(t)
	store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConsumer_MalformedJobDropped(t *testing.T) {
	c, _, _, repo, _ := newTestConsumer()
	ack := newFakeAcknowledger()

	c.handle(context.Background(), delivery(ack, 3, `not json`))
	c.handle(context.Background(), delivery(ack, 4, `{}`))

	for _, tag := range []uint64{3, 4} {
		r, ok := ack.get(tag)
		require.True(t, ok)
		assert.True(t, r.nacked)
		assert.False(t, r.requeue)
	}
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestConsumer_AlreadyReadyIsAcked(t *testing.T) {
	ctx := context.Background()
	c, _, store, repo, _ := newTestConsumer()
	ack := newFakeAcknowledger()

	repo.On("GetByID", ctx, "att-5").Return(&domain.Attachment{ID: "att-5", Status: string(domain.AttachmentReady)}, nil).Once()

	c.handle(ctx, delivery(ack, 5, `{"attachment_id":"att-5"}`))

	r, _ := ack.get(5)
	assert.True(t, r.acked)
	store.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything)
}

func TestConsumer_StartConsumerStops(t *testing.T) {
	c, src, _, _, _ := newTestConsumer()
	ack := newFakeAcknowledger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.StartConsumer(ctx) }()

	src.ch <- delivery(ack, 6, `garbage`)
	require.Eventually(t, func() bool {
		_, ok := ack.get(6)
		return ok
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, testQueue, src.queue)

	close(src.ch)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after channel close")
	}
}

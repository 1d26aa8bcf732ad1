package app

import (
	"context"
	"sync"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventStream bounded async queue in front of the event repository
type EventStream struct {
	repo  repository.EventRepository
	queue chan domain.ChatEvent

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
	mu        sync.RWMutex
}

// NewEventStream repo may be nil, events are then discarded
func NewEventStream(repo repository.EventRepository, size int) *EventStream {
	if size <= 0 {
		size = 1
	}
	return &EventStream{
		repo:   repo,
		queue:  make(chan domain.ChatEvent, size),
		closed: make(chan struct{}),
	}
}

// Start drain the queue in the background
func (s *EventStream) Start(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range s.queue {
			pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := s.repo.Publish(pubCtx, ev); err != nil {
				metrics.IncEventPublishError()
				logger.Log.Warn("chat event publish failed",
					zap.String("type", string(ev.Type)), zap.String("chat_id", ev.ChatID), zap.Error(err))
			}
			cancel()
		}
	}()
}

// Emit enqueue ev, dropped when the queue is full or closed
func (s *EventStream) Emit(ev domain.ChatEvent) {
	if s == nil || s.repo == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	select {
	case <-s.closed:
		return
	default:
	}

	select {
	case s.queue <- ev:
	default:
		metrics.IncEventPublishError()
		logger.Log.Warn("chat event queue full, dropping", zap.String("type", string(ev.Type)), zap.String("chat_id", ev.ChatID))
	}
}

// Close stop accepting events, flush the queue and close the repository
func (s *EventStream) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.closed)
		close(s.queue)
		s.mu.Unlock()
		s.wg.Wait()
		if s.repo != nil {
			if err := s.repo.Close(); err != nil {
				logger.Log.Warn("event repository close", zap.Error(err))
			}
		}
	})
}

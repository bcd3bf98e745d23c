// Package events provides EventSink implementations for run progress.
package events

import (
	"context"
	"sync"
	"sync/atomic"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// LogSink writes every event as a structured log entry
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink - creates new logrus backed sink
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit - logs event at a level matching its type
func (s *LogSink) Emit(_ context.Context, e entities.RunEvent) {
	fields := logrus.Fields{"run_id": e.RunID, "event": e.Type}
	if e.Step > 0 {
		fields["step"] = e.Step
	}
	if e.Action != "" {
		fields["action"] = e.Action
	}
	if e.Status != "" {
		fields["status"] = e.Status
	}
	if e.Count != nil {
		fields["count"] = *e.Count
	}
	entry := s.logger.WithFields(fields)

	switch e.Type {
	case entities.EventError:
		if e.Fatal {
			entry = entry.WithField("fatal", true)
		}
		entry.Error(e.Message)
	case entities.EventWarning:
		entry.Warn(e.Message)
	case entities.EventActionStart, entities.EventActionComplete:
		entry.Debug(e.Message)
	default:
		entry.Info(e.Message)
	}
}

// Recorder keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []entities.RunEvent
}

// NewRecorder - creates empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit - appends event
func (r *Recorder) Emit(_ context.Context, e entities.RunEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events - returns a copy of the recorded events
func (r *Recorder) Events() []entities.RunEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.RunEvent(nil), r.events...)
}

// Count - number of recorded events of type t
func (r *Recorder) Count(t entities.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Multi fans events out to several sinks in order
type Multi []interfaces.EventSink

// Emit - forwards event to each sink
func (m Multi) Emit(ctx context.Context, e entities.RunEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, e)
		}
	}
}

// AsyncSink delivers events to a slow consumer on its own goroutine.
// When the buffer is full new events are dropped and counted; order is kept for the rest.
type AsyncSink struct {
	next    interfaces.EventSink
	ch      chan entities.RunEvent
	done    chan struct{}
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewAsyncSink - starts the delivery goroutine; call Close to flush and stop it
func NewAsyncSink(next interfaces.EventSink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	s := &AsyncSink{
		next: next,
		ch:   make(chan entities.RunEvent, buffer),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *AsyncSink) loop() {
	defer close(s.done)
	for e := range s.ch {
		s.next.Emit(context.Background(), e)
	}
}

// Emit - queues event without blocking
func (s *AsyncSink) Emit(_ context.Context, e entities.RunEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

// Dropped - number of events discarded so far
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close - stops accepting events and waits until queued ones are delivered
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
	<-s.done
}

var (
	_ interfaces.EventSink = (*LogSink)(nil)
	_ interfaces.EventSink = (*Recorder)(nil)
	_ interfaces.EventSink = Multi(nil)
	_ interfaces.EventSink = (*AsyncSink)(nil)
)

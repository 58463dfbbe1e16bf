// Package recorder persists match results off the match loop.
package recorder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"lastarena/internal/ports"
)

const (
	defaultBuffer     = 64
	defaultMaxRetries = 5
)

// Recorder fans each result out to its sinks on a background worker, retrying
// failed writes with exponential backoff.
type Recorder struct {
	sinks      []ports.ResultSink
	queue      chan ports.MatchResult
	log        logrus.FieldLogger
	newBackOff func() backoff.BackOff
	maxRetries uint64

	dropped   atomic.Int64
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithBuffer sets how many results may wait for the worker.
func WithBuffer(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan ports.MatchResult, n)
		}
	}
}

// WithBackOff replaces the retry policy factory.
func WithBackOff(newBackOff func() backoff.BackOff, maxRetries uint64) Option {
	return func(r *Recorder) {
		r.newBackOff = newBackOff
		r.maxRetries = maxRetries
	}
}

// New builds a recorder. Call Start before recording.
func New(log logrus.FieldLogger, sinks []ports.ResultSink, opts ...Option) *Recorder {
	r := &Recorder{
		sinks: sinks,
		queue: make(chan ports.MatchResult, defaultBuffer),
		log:   log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = time.Minute
			return b
		},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the worker. Subsequent calls are ignored.
func (r *Recorder) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.run(ctx)
	})
}

// Record queues result without blocking. Results are dropped when the queue is full.
func (r *Recorder) Record(result ports.MatchResult) {
	select {
	case r.queue <- result:
	default:
		r.dropped.Add(1)
		r.log.WithField("event_id", result.EventID).Warn("result queue full, dropping match result")
	}
}

// Dropped returns how many results were discarded because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting results and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()
	for result := range r.queue {
		r.write(ctx, result)
	}
}

func (r *Recorder) write(ctx context.Context, result ports.MatchResult) {
	for _, sink := range r.sinks {
		sink := sink
		attempt := 0
		op := func() error {
			attempt++
			err := sink.Write(ctx, result)
			if err != nil {
				r.log.WithFields(logrus.Fields{"sink": sink.Name(), "attempt": attempt}).WithError(err).Warn("match result write failed, retrying")
			}
			return err
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
		if err := backoff.Retry(op, policy); err != nil {
			r.log.WithFields(logrus.Fields{"sink": sink.Name(), "event_id": result.EventID}).WithError(err).Error("giving up on match result")
		}
	}
}

var _ ports.ResultRecorder = (*Recorder)(nil)

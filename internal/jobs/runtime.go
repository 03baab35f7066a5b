package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ActorFunc processes one job's payload and returns the value to store as
// its result (nil if the actor doesn't store one, e.g. the streaming
// generation actor whose output is the stream itself).
type ActorFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// RetriableError marks a failure the runtime should retry (up to the
// actor's max retries) rather than record as terminal, mirroring the
// original source's dramatiq throws=(...) allow-list (some exception
// types are never retried).
type RetriableError struct{ Err error }

func (e *RetriableError) Error() string { return e.Err.Error() }
func (e *RetriableError) Unwrap() error { return e.Err }

type registration struct {
	queue      *Queue
	fn         ActorFunc
	maxRetries int
	storeResult bool
}

// Runtime owns the registered actors and drives one worker goroutine per
// queue, polling with BRPOP exactly like the teacher's worker.go main loop.
type Runtime struct {
	results *ResultBackend
	log     *zap.Logger

	actors map[string]registration
}

// NewRuntime constructs a Runtime. results is used to store actor output
// when an actor opts in via RegisterActor's storeResult.
func NewRuntime(results *ResultBackend, log *zap.Logger) *Runtime {
	return &Runtime{results: results, log: log, actors: map[string]registration{}}
}

// RegisterActor binds actorName to fn on the named queue.
func (r *Runtime) RegisterActor(queue *Queue, actorName string, maxRetries int, storeResult bool, fn ActorFunc) {
	r.actors[actorName] = registration{queue: queue, fn: fn, maxRetries: maxRetries, storeResult: storeResult}
}

// Run starts one worker goroutine per distinct queue among the registered
// actors and blocks until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) {
	seen := map[*Queue]bool{}
	done := make(chan struct{})
	workers := 0
	for _, reg := range r.actors {
		if seen[reg.queue] {
			continue
		}
		seen[reg.queue] = true
		workers++
		go func(q *Queue) {
			r.workerLoop(ctx, q)
			done <- struct{}{}
		}(reg.queue)
	}
	for i := 0; i < workers; i++ {
		<-done
	}
}

func (r *Runtime) workerLoop(ctx context.Context, q *Queue) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		env, err := q.pop(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("jobs: pop failed", zap.Error(err))
			continue
		}
		if env == nil {
			continue
		}
		r.dispatch(ctx, q, *env)
	}
}

func (r *Runtime) dispatch(ctx context.Context, q *Queue, env Envelope) {
	reg, ok := r.actors[env.Actor]
	if !ok {
		r.log.Error("jobs: unknown actor", zap.String("actor", env.Actor))
		return
	}

	result, err := reg.fn(ctx, env.Payload)
	if err != nil {
		var retriable *RetriableError
		isRetriable := asRetriable(err, &retriable)
		if isRetriable && env.Attempt < reg.maxRetries {
			r.log.Warn("jobs: actor failed, retrying",
				zap.String("actor", env.Actor), zap.Int("attempt", env.Attempt), zap.Error(err))
			if rqErr := q.Requeue(ctx, env); rqErr != nil {
				r.log.Error("jobs: requeue failed", zap.Error(rqErr))
			}
			return
		}
		r.log.Error("jobs: actor failed terminally", zap.String("actor", env.Actor), zap.Error(err))
		if r.results != nil {
			_ = r.results.Store(ctx, env.ID, map[string]any{"status": "error", "error": err.Error()})
		}
		return
	}

	if reg.storeResult && r.results != nil {
		if err := r.results.Store(ctx, env.ID, result); err != nil {
			r.log.Error("jobs: store result failed", zap.Error(err))
		}
	}
}

func asRetriable(err error, target **RetriableError) bool {
	for err != nil {
		if re, ok := err.(*RetriableError); ok {
			*target = re
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Wrap tags err as retriable with fmt-style context.
func Wrap(format string, err error) error {
	return &RetriableError{Err: fmt.Errorf(format, err)}
}

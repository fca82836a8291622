// Package gojob runs incremental sync pulls as go-job queue work, so a
// process can schedule pulls and drain them on its own worker.
package gojob

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
	vsssync "github.com/goliatone/go-vss/sync"
)

const (
	JobIDSyncPull = "vss.sync.pull"

	paramPrefix = "prefix"
)

// RetryPolicy bounds redelivery of failed pulls.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NackFor returns the nack options for the given failed attempt, starting
// at 1. Delays double per attempt up to MaxDelay.
func (p RetryPolicy) NackFor(attempt int, reason string) queue.NackOptions {
	out := queue.NackOptions{
		Requeue: true,
		Reason:  strings.TrimSpace(reason),
	}
	if p.BaseDelay > 0 && attempt > 0 {
		delay := p.BaseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
			if p.MaxDelay > 0 && delay >= p.MaxDelay {
				break
			}
		}
		out.Delay = delay
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		out.Delay = 0
		out.DeadLetter = p.DeadLetterOnMax
	}
	return out
}

// NewPullMessage builds the queue message for a pull of prefix. An empty
// prefix pulls the whole store.
func NewPullMessage(prefix string, idempotencyKey string) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID:          JobIDSyncPull,
		ScriptPath:     JobIDSyncPull,
		Parameters:     map[string]any{paramPrefix: strings.TrimSpace(prefix)},
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}
}

// PullPrefix extracts the prefix from a pull message.
func PullPrefix(msg *job.ExecutionMessage) (string, error) {
	if msg == nil {
		return "", fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDSyncPull {
		return "", fmt.Errorf("gojob: unexpected job %q", msg.JobID)
	}
	raw, ok := msg.Parameters[paramPrefix]
	if !ok || raw == nil {
		return "", nil
	}
	prefix, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("gojob: prefix parameter must be a string, got %T", raw)
	}
	return prefix, nil
}

type PullEnqueuer struct {
	enqueuer queue.Enqueuer
}

func NewPullEnqueuer(enqueuer queue.Enqueuer) *PullEnqueuer {
	return &PullEnqueuer{enqueuer: enqueuer}
}

func (e *PullEnqueuer) EnqueuePull(ctx context.Context, prefix string, idempotencyKey string) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	return e.enqueuer.Enqueue(ctx, NewPullMessage(prefix, idempotencyKey))
}

// LocalState is the caller's replica: it reports known versions and
// receives pulled items.
type LocalState interface {
	Versions(ctx context.Context, prefix string) (map[string]uint32, error)
	Apply(ctx context.Context, result vsssync.PullResult) error
}

type PullWorker struct {
	dequeuer queue.Dequeuer
	puller   *vsssync.Puller
	local    LocalState
	policy   RetryPolicy
	hook     worker.Hook
	logger   glog.Logger

	mu       gosync.Mutex
	attempts map[string]int
}

type WorkerOption func(*PullWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *PullWorker) {
		w.policy = policy
	}
}

func WithHook(hook worker.Hook) WorkerOption {
	return func(w *PullWorker) {
		w.hook = hook
	}
}

func WithLogger(logger glog.Logger) WorkerOption {
	return func(w *PullWorker) {
		w.logger = logger
	}
}

func NewPullWorker(dequeuer queue.Dequeuer, puller *vsssync.Puller, local LocalState, opts ...WorkerOption) *PullWorker {
	w := &PullWorker{
		dequeuer: dequeuer,
		puller:   puller,
		local:    local,
		policy:   RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Minute, DeadLetterOnMax: true},
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.logger = glog.Ensure(w.logger)
	return w
}

// ProcessNext dequeues one delivery and runs it. Pull failures are nacked
// per the retry policy and also returned.
func (w *PullWorker) ProcessNext(ctx context.Context) error {
	if w == nil || w.dequeuer == nil || w.puller == nil || w.local == nil {
		return fmt.Errorf("gojob: pull worker is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}
	msg := delivery.Message()
	attempt := w.nextAttempt(msg)
	event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, StartedAt: time.Now()}
	w.onStart(ctx, event)

	runErr := w.run(ctx, msg)
	event.Duration = time.Since(event.StartedAt)
	if runErr == nil {
		w.forget(msg)
		w.onSuccess(ctx, event)
		return delivery.Ack(ctx)
	}

	opts := w.policy.NackFor(attempt, runErr.Error())
	event.Err = runErr
	event.Delay = opts.Delay
	if opts.Requeue {
		w.onRetry(ctx, event)
	} else {
		w.forget(msg)
		w.onFailure(ctx, event)
	}
	w.logger.WithContext(ctx).Error("gojob: sync pull failed",
		"attempt", attempt,
		"requeue", opts.Requeue,
		"dead_letter", opts.DeadLetter,
		"error", runErr,
	)
	if err := delivery.Nack(ctx, opts); err != nil {
		return err
	}
	return runErr
}

func (w *PullWorker) run(ctx context.Context, msg *job.ExecutionMessage) error {
	prefix, err := PullPrefix(msg)
	if err != nil {
		return err
	}
	local, err := w.local.Versions(ctx, prefix)
	if err != nil {
		return err
	}
	result, err := w.puller.Pull(ctx, prefix, local)
	if err != nil {
		return err
	}
	return w.local.Apply(ctx, result)
}

func attemptKey(msg *job.ExecutionMessage) string {
	if msg == nil {
		return ""
	}
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		return key
	}
	prefix, _ := msg.Parameters[paramPrefix].(string)
	return msg.JobID + ":" + prefix
}

func (w *PullWorker) nextAttempt(msg *job.ExecutionMessage) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := attemptKey(msg)
	w.attempts[key]++
	return w.attempts[key]
}

func (w *PullWorker) forget(msg *job.ExecutionMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, attemptKey(msg))
}

func (w *PullWorker) onStart(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}
}

func (w *PullWorker) onSuccess(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnSuccess(ctx, event)
	}
}

func (w *PullWorker) onFailure(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
}

func (w *PullWorker) onRetry(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
}

// LoggingHook reports worker events through a glog logger.
type LoggingHook struct {
	Logger glog.Logger
}

func (h LoggingHook) log() glog.Logger { return glog.Ensure(h.Logger) }

func (h LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.log().WithContext(ctx).Debug("gojob: job started", eventArgs(event)...)
}

func (h LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.log().WithContext(ctx).Info("gojob: job succeeded", eventArgs(event)...)
}

func (h LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.log().WithContext(ctx).Error("gojob: job failed", eventArgs(event)...)
}

func (h LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.log().WithContext(ctx).Warn("gojob: job scheduled for retry", eventArgs(event)...)
}

func eventArgs(event worker.Event) []any {
	args := []any{"attempt", event.Attempt, "duration_ms", event.Duration.Milliseconds()}
	if event.Message != nil {
		args = append(args, "job_id", event.Message.JobID, "idempotency_key", event.Message.IdempotencyKey)
	}
	if event.Delay > 0 {
		args = append(args, "delay_ms", event.Delay.Milliseconds())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err)
	}
	return args
}

var (
	_ worker.Hook = LoggingHook{}
)

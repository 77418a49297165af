// Package autoreply runs the per-comment generate-then-post workflow.
package autoreply

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/lease"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/metrics"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/reply"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StatePosting    State = "posting"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Status is the observable progress of one comment.
type Status struct {
	CommentID string    `json:"commentId"`
	State     State     `json:"state"`
	Reply     string    `json:"reply,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Generator produces reply text for a comment.
type Generator interface {
	Generate(ctx context.Context, commentText string, cfg reply.Config) (string, error)
}

// Poster publishes a reply under a comment.
type Poster interface {
	PostReply(ctx context.Context, commentID, text string) (model.Comment, error)
}

// Options tune a Pipeline.
type Options struct {
	Concurrency int64
	LeaseTTL    time.Duration
}

const defaultConcurrency = 4

type task struct {
	status Status
	cancel context.CancelFunc
}

// Pipeline processes the comments of one user. Each comment runs as its own
// task; a failure in one never affects the others.
type Pipeline struct {
	userID   string
	owner    string
	gen      Generator
	record   *Record
	leaser   lease.Leaser
	leaseTTL time.Duration
	sem      *semaphore.Weighted
	now      func() time.Time
	log      zerolog.Logger

	mu    sync.Mutex
	tasks map[string]*task
	wg    sync.WaitGroup
}

func NewPipeline(userID string, gen Generator, record *Record, leaser lease.Leaser, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if leaser == nil {
		leaser = lease.NewMemoryLeaser()
	}
	return &Pipeline{
		userID:   userID,
		owner:    uuid.NewString(),
		gen:      gen,
		record:   record,
		leaser:   leaser,
		leaseTTL: opts.LeaseTTL,
		sem:      semaphore.NewWeighted(opts.Concurrency),
		now:      time.Now,
		log:      log.With().Str("component", "autoreply").Str("user_id", userID).Logger(),
		tasks:    make(map[string]*task),
	}
}

// Process launches a task for every thread that is not replied and has no
// task in this pipeline, and returns the number launched. Only a failed task
// is relaunched; a completed one stays put even when its replied flag could
// not be saved. Tasks outlive ctx's cancellation; use Cancel to stop one.
func (p *Pipeline) Process(ctx context.Context, poster Poster, threads []model.CommentThread, cfg reply.Config) (int, error) {
	replied, err := p.record.Replied(ctx, p.userID)
	if err != nil {
		return 0, fmt.Errorf("load replied record: %w", err)
	}

	base := context.WithoutCancel(ctx)
	launched := 0

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, th := range threads {
		id := th.CommentID()
		if id == "" || replied[id] {
			continue
		}
		if t, ok := p.tasks[id]; ok && t.status.State != StateError {
			continue
		}

		taskCtx, cancel := context.WithCancel(base)
		t := &task{
			status: Status{CommentID: id, State: StateIdle, UpdatedAt: p.now()},
			cancel: cancel,
		}
		p.tasks[id] = t
		launched++

		p.wg.Add(1)
		go func(text string) {
			defer p.wg.Done()
			defer cancel()
			p.run(taskCtx, poster, id, text, cfg)
		}(th.TopLevel.Text)
	}
	if launched > 0 {
		p.log.Info().Int("launched", launched).Int("threads", len(threads)).Msg("auto-reply started")
	}
	return launched, nil
}

func (p *Pipeline) run(ctx context.Context, poster Poster, commentID, text string, cfg reply.Config) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.fail(commentID, err)
		return
	}
	defer p.sem.Release(1)

	// Owners are per run: a release only ever drops this run's own lease.
	leaseKey := store.LeaseKey(p.userID, commentID)
	owner := p.owner + ":" + uuid.NewString()
	if _, err := p.leaser.Acquire(ctx, leaseKey, owner, p.leaseTTL); err != nil {
		if errors.Is(err, lease.ErrHeld) {
			p.log.Debug().Str("comment_id", commentID).Msg("comment leased elsewhere, skipping")
			p.drop(commentID)
			metrics.AutoReplies.WithLabelValues("skipped").Inc()
			return
		}
		p.fail(commentID, err)
		return
	}
	defer func() {
		if err := p.leaser.Release(context.WithoutCancel(ctx), leaseKey, owner); err != nil {
			p.log.Warn().Err(err).Str("comment_id", commentID).Msg("failed to release lease")
		}
	}()

	// Another run may have finished this comment since the record was loaded.
	done, err := p.record.IsReplied(ctx, p.userID, commentID)
	if err != nil {
		p.fail(commentID, err)
		return
	}
	if done {
		p.drop(commentID)
		metrics.AutoReplies.WithLabelValues("skipped").Inc()
		return
	}

	p.set(commentID, StateGenerating, "", "")
	generated, err := p.gen.Generate(ctx, text, cfg)
	if err == nil && strings.TrimSpace(generated) == "" {
		err = fmt.Errorf("empty reply: %w", model.ErrGeneration)
	}
	if err != nil {
		p.fail(commentID, err)
		return
	}

	p.set(commentID, StatePosting, generated, "")
	if _, err := poster.PostReply(ctx, commentID, generated); err != nil {
		p.fail(commentID, err)
		return
	}

	if err := p.record.MarkReplied(context.WithoutCancel(ctx), p.userID, commentID, cfg.Template); err != nil {
		p.log.Error().Err(err).Str("comment_id", commentID).Msg("reply posted but record update failed")
	}
	p.set(commentID, StateCompleted, generated, "")
	metrics.AutoReplies.WithLabelValues(string(StateCompleted)).Inc()
	p.log.Info().Str("comment_id", commentID).Msg("reply posted")
}

func (p *Pipeline) set(commentID string, state State, replyText, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[commentID]
	if !ok {
		return
	}
	t.status.State = state
	if replyText != "" {
		t.status.Reply = replyText
	}
	t.status.Error = msg
	t.status.UpdatedAt = p.now()
}

func (p *Pipeline) fail(commentID string, err error) {
	msg := errorMessage(err)
	p.set(commentID, StateError, "", msg)
	metrics.AutoReplies.WithLabelValues(string(StateError)).Inc()
	p.log.Warn().Err(err).Str("comment_id", commentID).Msg("auto-reply failed")
}

func (p *Pipeline) drop(commentID string) {
	p.mu.Lock()
	delete(p.tasks, commentID)
	p.mu.Unlock()
}

func errorMessage(err error) string {
	var up *model.UpstreamError
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &up) && up.Message != "":
		return up.Message
	case errors.Is(err, model.ErrQuotaExceeded):
		return model.ErrQuotaExceeded.Error()
	default:
		return err.Error()
	}
}

// Cancel stops the task for commentID. It reports whether a running task was found.
func (p *Pipeline) Cancel(commentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[commentID]
	if !ok || t.status.State.Terminal() {
		return false
	}
	t.cancel()
	return true
}

// CancelAll stops every running task.
func (p *Pipeline) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.tasks {
		t.cancel()
	}
}

// Wait blocks until every launched task has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Status returns the status of one comment.
func (p *Pipeline) Status(commentID string) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[commentID]
	if !ok {
		return Status{}, false
	}
	return t.status, true
}

// Statuses returns a snapshot of all known tasks ordered by comment id.
func (p *Pipeline) Statuses() []Status {
	p.mu.Lock()
	out := make([]Status, 0, len(p.tasks))
	for _, t := range p.tasks {
		out = append(out, t.status)
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CommentID < out[j].CommentID })
	return out
}

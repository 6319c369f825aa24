// Package session drives an interview one question at a time through
// preparation, answering and submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/checkpoint"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/emotion"
	"github.com/jonathan/interview-coach/internal/transcript"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultWarnSeconds is when the "time almost up" warning fires.
const DefaultWarnSeconds = 5

// deviceProbeTimeout bounds the device checks at start.
const deviceProbeTimeout = 5 * time.Second

var (
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("session closed")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrRetryNotAllowed is returned by Retry unless the last finalize had
	// nothing to submit or failed.
	ErrRetryNotAllowed = errors.New("retry not allowed in current state")
)

// Timer runs one countdown at a time. Stop is idempotent.
type Timer interface {
	Start(durationSeconds int, onTick func(remaining int), onExpire func())
	Stop()
}

// Capture collects the spoken answer.
type Capture interface {
	Check(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) transcript.Result
	Text() string
	Reset()
}

// Sampler collects emotion samples while answering.
type Sampler interface {
	Check(ctx context.Context) error
	Disable()
	Start(interval time.Duration)
	Stop() []emotion.Sample
	Samples() []emotion.Sample
	Clear()
}

// Grader rates an answer.
type Grader interface {
	GradeAnswer(ctx context.Context, q types.Question, transcript string) (*types.Grade, error)
}

// Store persists finalized answers and interview confidence.
type Store interface {
	InsertAnswer(ctx context.Context, rec *db.AnswerRecord, includeEmotions bool) error
	UpsertConfidenceMetrics(ctx context.Context, interviewID uuid.UUID, m confidence.Metrics) error
}

// Checkpointer keeps crash-recovery snapshots.
type Checkpointer interface {
	Save(ctx context.Context, st checkpoint.State) error
	Clear(ctx context.Context, interviewID string) error
}

// Config holds the per-interview settings.
type Config struct {
	InterviewID    uuid.UUID
	UserEmail      string
	Questions      []types.Question `validate:"min=1,dive"`
	PrepSeconds    int              `validate:"gte=0"`
	AnswerSeconds  int              `validate:"gt=0"`
	SampleInterval time.Duration
	// WarnSeconds is the remaining time at which EventTimeWarning fires.
	// Zero uses DefaultWarnSeconds, negative disables the warning.
	WarnSeconds int
	// StartIndex resumes at a later question.
	StartIndex int `validate:"gte=0"`
}

// Deps are the collaborators of a Controller. Checkpoints, Logger and
// OnEvent are optional.
type Deps struct {
	Clock       Timer
	Capture     Capture
	Sampler     Sampler
	Grader      Grader
	Store       Store
	Checkpoints Checkpointer
	Logger      logrus.FieldLogger
	OnEvent     EventCallback
}

// Controller owns the phase and question index of one interview. All
// transitions run on a single loop goroutine; callbacks from the clock and
// results of background work are posted to it.
type Controller struct {
	cfg  Config
	deps Deps
	log  logrus.FieldLogger

	ctx      context.Context
	cancel   context.CancelFunc
	events   chan func()
	loopDone chan struct{}
	done     chan struct{}
	workers  sync.WaitGroup

	started   atomic.Bool
	closeOnce sync.Once

	// loop-owned
	phase        Phase
	index        int
	gen          uint64
	submitting   bool
	retryAllowed bool
	complete     bool
	warned       bool
	// micDown is set once the microphone has been reported unavailable.
	micDown      bool
	prepStarted  map[int]bool
	histogram    confidence.Histogram

	mu    sync.Mutex
	state State
}

// New validates cfg and deps and returns an idle controller.
func New(cfg Config, deps Deps) (*Controller, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if cfg.InterviewID == uuid.Nil {
		return nil, errors.New("invalid session config: interview id is required")
	}
	if cfg.StartIndex >= len(cfg.Questions) {
		return nil, fmt.Errorf("invalid session config: start index %d out of range", cfg.StartIndex)
	}
	if deps.Clock == nil || deps.Capture == nil || deps.Sampler == nil || deps.Grader == nil || deps.Store == nil {
		return nil, errors.New("session requires clock, capture, sampler, grader and store")
	}
	if cfg.WarnSeconds == 0 {
		cfg.WarnSeconds = DefaultWarnSeconds
	}
	if cfg.SampleInterval == 0 {
		cfg.SampleInterval = emotion.DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:         cfg,
		deps:        deps,
		log:         deps.Logger.WithFields(logrus.Fields{"component": "session", "interview_id": cfg.InterviewID}),
		ctx:         ctx,
		cancel:      cancel,
		events:      make(chan func(), 64),
		loopDone:    make(chan struct{}),
		done:        make(chan struct{}),
		prepStarted: make(map[int]bool),
		histogram:   make(confidence.Histogram),
		index:       cfg.StartIndex,
	}
	c.publish()
	return c, nil
}

// Start probes the devices and enters Preparing for the first question.
// Cancelling ctx tears the session down like Close.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if c.ctx.Err() != nil {
		close(c.loopDone)
		return ErrClosed
	}
	context.AfterFunc(ctx, c.cancel)

	go c.loop()
	c.post(func() {
		c.probeDevices()
		c.beginPrep(c.cfg.StartIndex)
	})
	return nil
}

// StopAndSubmit ends the answering window early. Calls outside Answering or
// while a submission is in flight are ignored.
func (c *Controller) StopAndSubmit() {
	c.post(func() {
		if c.phase != Answering {
			c.log.WithField("phase", c.phase).Debug("stop ignored")
			return
		}
		c.triggerFinalize(false)
	})
}

// Retry re-enters Preparing for the current question after a finalize that
// had nothing to submit or failed.
func (c *Controller) Retry() error {
	reply := make(chan error, 1)
	c.post(func() { reply <- c.retry() })
	select {
	case err := <-reply:
		return err
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// Checkpoint asks the controller to snapshot the in-progress answer. It is
// meant to be called from transcript and sampler hooks.
func (c *Controller) Checkpoint() {
	if c.deps.Checkpoints == nil {
		return
	}
	c.post(c.saveCheckpoint)
}

// Close stops every subsystem and abandons in-flight grading and
// persistence. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.started.Load() {
			<-c.loopDone
		} else {
			c.teardown()
		}
		c.workers.Wait()
	})
}

// Done is closed once the last question has been recorded.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Closed is closed when the controller loop has exited.
func (c *Controller) Closed() <-chan struct{} {
	return c.loopDone
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	defer c.teardown()
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.events:
			fn()
		}
	}
}

// post hands fn to the loop without blocking the caller. Work posted after
// the controller is closed is dropped.
func (c *Controller) post(fn func()) {
	if c.ctx.Err() != nil {
		return
	}
	select {
	case c.events <- fn:
	default:
		go func() {
			select {
			case c.events <- fn:
			case <-c.ctx.Done():
			}
		}()
	}
}

func (c *Controller) teardown() {
	c.deps.Clock.Stop()
	c.deps.Sampler.Stop()
	c.deps.Capture.Stop(context.Background())
}

func (c *Controller) probeDevices() {
	ctx, cancel := context.WithTimeout(c.ctx, deviceProbeTimeout)
	defer cancel()

	var g errgroup.Group
	var micErr, camErr error
	g.Go(func() error {
		micErr = c.deps.Capture.Check(ctx)
		return nil
	})
	g.Go(func() error {
		camErr = c.deps.Sampler.Check(ctx)
		return nil
	})
	_ = g.Wait()

	if micErr != nil {
		c.micDown = true
		c.log.WithError(micErr).Warn("microphone unavailable")
		c.emit(Event{Type: EventDeviceWarning, Err: micErr, Message: "microphone unavailable, answers will be empty"})
	}
	if camErr != nil {
		c.deps.Sampler.Disable()
		c.log.WithError(camErr).Warn("camera unavailable")
		c.emit(Event{Type: EventDeviceWarning, Err: camErr, Message: "camera unavailable, emotion sampling disabled"})
	}
}

func (c *Controller) beginPrep(index int) {
	if c.complete || c.prepStarted[index] {
		return
	}
	c.prepStarted[index] = true
	c.index = index
	c.retryAllowed = false
	c.warned = false

	gen := c.setPhase(Preparing)
	c.deps.Clock.Start(c.cfg.PrepSeconds, c.tickFunc(gen), c.expireFunc(gen, c.beginAnswering))
}

func (c *Controller) beginAnswering() {
	if c.phase != Preparing {
		return
	}
	gen := c.setPhase(Answering)

	var g errgroup.Group
	g.Go(func() error { return c.deps.Capture.Start(c.ctx) })
	g.Go(func() error {
		c.deps.Sampler.Start(c.cfg.SampleInterval)
		return nil
	})
	if err := g.Wait(); err != nil {
		if c.micDown {
			c.log.WithError(err).Debug("speech capture did not start")
		} else {
			c.micDown = true
			c.log.WithError(err).Warn("speech capture did not start")
			c.emit(Event{Type: EventDeviceWarning, Err: err, Message: "speech capture unavailable, answers will be empty"})
		}
	}

	c.deps.Clock.Start(c.cfg.AnswerSeconds, c.tickFunc(gen), c.expireFunc(gen, func() {
		c.triggerFinalize(true)
	}))
}

func (c *Controller) triggerFinalize(expired bool) {
	if c.submitting {
		c.log.Debug("finalize already in progress")
		return
	}
	c.submitting = true
	c.deps.Clock.Stop()
	c.setPhase(Completed)

	job := finalizeJob{
		index:     c.index,
		question:  c.cfg.Questions[c.index],
		expired:   expired,
		histogram: confidence.Merge(c.histogram),
	}
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		res := c.finalize(job)
		c.post(func() { c.onFinalized(res) })
	}()
}

func (c *Controller) onFinalized(res finalizeResult) {
	c.submitting = false

	switch res.outcome {
	case outcomeNothingToSubmit:
		c.retryAllowed = true
		c.publish()
		c.emit(Event{Type: EventNothingToSubmit, Message: "no answer was captured, retry to record again"})

	case outcomeFailed:
		c.retryAllowed = true
		c.publish()
		c.log.WithError(res.err).Error("answer submission failed")
		c.emit(Event{Type: EventSubmitFailed, Err: res.err, Message: "answer could not be saved, retry to record again"})

	case outcomeRecorded:
		c.histogram = res.histogram
		metrics := res.metrics
		c.emit(Event{Type: EventAnswerRecorded, Record: res.record, Metrics: &metrics})

		c.deps.Capture.Reset()
		c.deps.Sampler.Clear()

		if c.index >= len(c.cfg.Questions)-1 {
			c.complete = true
			c.publish()
			c.log.Info("interview complete")
			c.emit(Event{Type: EventInterviewComplete, Metrics: &metrics})
			close(c.done)
			return
		}
		c.beginPrep(c.index + 1)
	}
}

func (c *Controller) retry() error {
	if !c.retryAllowed || c.submitting || c.complete {
		return ErrRetryNotAllowed
	}
	c.retryAllowed = false
	c.deps.Capture.Reset()
	c.deps.Sampler.Clear()
	c.prepStarted[c.index] = false
	c.beginPrep(c.index)
	return nil
}

func (c *Controller) tickFunc(gen uint64) func(int) {
	return func(remaining int) {
		c.post(func() { c.onTick(gen, remaining) })
	}
}

func (c *Controller) expireFunc(gen uint64, next func()) func() {
	return func() {
		c.post(func() {
			if gen != c.gen {
				return
			}
			next()
		})
	}
}

func (c *Controller) onTick(gen uint64, remaining int) {
	if gen != c.gen {
		return
	}
	c.emit(Event{Type: EventTick, Remaining: remaining})

	if c.phase == Answering && !c.warned && c.cfg.WarnSeconds > 0 &&
		remaining > 0 && remaining <= c.cfg.WarnSeconds && c.cfg.AnswerSeconds > c.cfg.WarnSeconds {
		c.warned = true
		c.emit(Event{Type: EventTimeWarning, Remaining: remaining,
			Message: fmt.Sprintf("%d seconds remaining", remaining)})
	}
}

func (c *Controller) saveCheckpoint() {
	if c.phase != Answering {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, time.Second)
	defer cancel()

	err := c.deps.Checkpoints.Save(ctx, checkpoint.State{
		InterviewID:   c.cfg.InterviewID.String(),
		QuestionIndex: c.index,
		Transcript:    c.deps.Capture.Text(),
		Samples:       c.deps.Sampler.Samples(),
	})
	if err != nil {
		c.log.WithError(err).Debug("checkpoint not saved")
	}
}

// setPhase moves to p and invalidates pending clock callbacks.
func (c *Controller) setPhase(p Phase) uint64 {
	c.gen++
	c.phase = p
	c.publish()
	c.log.WithFields(logrus.Fields{"phase": p, "index": c.index}).Debug("phase changed")
	c.emit(Event{Type: EventPhaseChanged})
	return c.gen
}

func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{
		Phase:        c.phase,
		Index:        c.index,
		Total:        len(c.cfg.Questions),
		Submitting:   c.submitting,
		Complete:     c.complete,
		RetryAllowed: c.retryAllowed,
	}
}

func (c *Controller) emit(ev Event) {
	if c.deps.OnEvent == nil {
		return
	}
	ev.Phase = c.phase
	ev.Index = c.index
	ev.InterviewID = c.cfg.InterviewID
	c.deps.OnEvent(ev)
}

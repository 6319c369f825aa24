// Package transcript accumulates speech-to-text segments into an answer.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultFinalWait bounds how long Stop waits for the recognizer to flush
// its last final segments.
const DefaultFinalWait = 2 * time.Second

// ErrCaptureUnavailable signals that the speech source (microphone or
// recognition service) cannot be used.
var ErrCaptureUnavailable = errors.New("speech capture unavailable")

// Sink receives segments from a Recognizer.
type Sink interface {
	AppendInterim(text string)
	CommitFinal(text string)
}

// Recognizer is a speech-to-text source. Start begins delivering segments to
// sink; Stop asks the source to flush any pending final segments to the sink
// and returns once it has done so (or ctx expires). Check probes the device
// without starting it.
type Recognizer interface {
	Start(ctx context.Context, sink Sink) error
	Stop(ctx context.Context) error
	Check(ctx context.Context) error
}

// Result is the outcome of one capture.
type Result struct {
	Text string
	// NoInput is set when nothing was captured. Text is then empty.
	NoInput bool
}

// Capture owns the in-progress transcript buffer for a single answer.
type Capture struct {
	source    Recognizer
	finalWait time.Duration
	log       logrus.FieldLogger

	mu          sync.Mutex
	active      bool
	unavailable bool
	segments    []string
	interim     string
	last        Result
	onChange    func(text, interim string)
}

// Options configures a Capture.
type Options struct {
	FinalWait time.Duration
	Logger    logrus.FieldLogger
	// OnChange is invoked after every interim update or commit.
	OnChange func(text, interim string)
}

// NewCapture creates a Capture over source. A nil source is treated as an
// unavailable device.
func NewCapture(source Recognizer, opts Options) *Capture {
	if opts.FinalWait <= 0 {
		opts.FinalWait = DefaultFinalWait
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Capture{
		source:    source,
		finalWait: opts.FinalWait,
		log:       opts.Logger.WithField("component", "transcript"),
		onChange:  opts.OnChange,
		last:      Result{NoInput: true},
	}
}

// Check probes the underlying recognizer.
func (c *Capture) Check(ctx context.Context) error {
	if c.source == nil {
		return ErrCaptureUnavailable
	}
	if err := c.source.Check(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return nil
}

// Start resets the buffer and begins accepting segments. When the
// recognizer cannot start, the capture still becomes active, so that Stop
// yields an empty NoInput result, and the error wraps ErrCaptureUnavailable.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	c.segments = nil
	c.interim = ""
	c.active = true
	c.unavailable = false
	c.last = Result{NoInput: true}
	c.mu.Unlock()

	if c.source == nil {
		c.markUnavailable()
		return ErrCaptureUnavailable
	}
	if err := c.source.Start(ctx, c); err != nil {
		c.markUnavailable()
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return nil
}

// AppendInterim replaces the uncommitted fragment.
func (c *Capture) AppendInterim(text string) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.interim = text
	snapshot, interim := c.textLocked(), c.interim
	c.mu.Unlock()

	c.notify(snapshot, interim)
}

// CommitFinal appends text to the transcript, space-joined with existing
// content, and clears the interim fragment. Blank segments only clear the
// fragment.
func (c *Capture) CommitFinal(text string) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		c.segments = append(c.segments, trimmed)
	}
	c.interim = ""
	snapshot := c.textLocked()
	c.mu.Unlock()

	c.notify(snapshot, "")
}

// Text returns the committed transcript so far.
func (c *Capture) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.textLocked()
}

// Interim returns the current uncommitted fragment.
func (c *Capture) Interim() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}

// Active reports whether the capture accepts segments.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Stop halts the recognizer, waits for its terminal flush and returns the
// accumulated transcript. The interim fragment is discarded. Calling Stop on
// an inactive capture returns the previous result.
func (c *Capture) Stop(ctx context.Context) Result {
	c.mu.Lock()
	if !c.active {
		last := c.last
		c.mu.Unlock()
		return last
	}
	unavailable := c.unavailable
	c.mu.Unlock()

	if !unavailable && c.source != nil {
		stopCtx, cancel := context.WithTimeout(ctx, c.finalWait)
		if err := c.source.Stop(stopCtx); err != nil {
			c.log.WithError(err).Warn("recognizer did not stop cleanly")
		}
		cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	text := c.textLocked()
	c.active = false
	c.interim = ""
	c.last = Result{Text: text, NoInput: text == ""}
	if c.last.NoInput {
		c.log.Debug("no speech input detected")
	}
	return c.last
}

// Reset discards the buffer without touching the recognizer.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments = nil
	c.interim = ""
	c.last = Result{NoInput: true}
}

func (c *Capture) markUnavailable() {
	c.mu.Lock()
	c.unavailable = true
	c.mu.Unlock()
}

func (c *Capture) textLocked() string {
	return strings.Join(c.segments, " ")
}

func (c *Capture) notify(text, interim string) {
	if c.onChange != nil {
		c.onChange(text, interim)
	}
}

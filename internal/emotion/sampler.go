package emotion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sampling defaults.
const (
	DefaultInterval        = 5 * time.Second
	DefaultClassifyTimeout = 10 * time.Second
)

// ErrCameraUnavailable signals that no frames can be read.
var ErrCameraUnavailable = errors.New("camera unavailable")

// FrameSource provides JPEG snapshots of the current video frame. The source
// is shared with other readers (e.g. a live preview) and must not be locked
// exclusively by Snapshot.
type FrameSource interface {
	Snapshot(ctx context.Context) ([]byte, error)
	Check(ctx context.Context) error
}

// Classifier maps one JPEG frame onto a Label.
type Classifier interface {
	Classify(ctx context.Context, jpeg []byte) (Label, error)
}

// Sample is one de-duplicated observation.
type Sample struct {
	Label Label     `json:"label"`
	At    time.Time `json:"at"`
}

// SamplerOptions configures a Sampler.
type SamplerOptions struct {
	// Timeout bounds each snapshot+classify round trip.
	Timeout time.Duration
	Logger  logrus.FieldLogger
	// OnSample is called after a sample is appended.
	OnSample func(Sample)
	// OnClassified is called for every successful classification, including
	// duplicates and NoFace.
	OnClassified func(Label)
	Now          func() time.Time
}

// Sampler periodically classifies camera frames and keeps an ordered,
// de-duplicated label history.
type Sampler struct {
	frames     FrameSource
	classifier Classifier
	timeout    time.Duration
	log        logrus.FieldLogger
	onSample   func(Sample)
	onClass    func(Label)
	now        func() time.Time

	mu       sync.Mutex
	samples  []Sample
	current  Label
	disabled bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSampler creates a Sampler. A nil frame source or classifier disables
// sampling; Start then does nothing.
func NewSampler(frames FrameSource, classifier Classifier, opts SamplerOptions) *Sampler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultClassifyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sampler{
		frames:     frames,
		classifier: classifier,
		timeout:    opts.Timeout,
		log:        opts.Logger.WithField("component", "emotion"),
		onSample:   opts.OnSample,
		onClass:    opts.OnClassified,
		now:        opts.Now,
		disabled:   frames == nil || classifier == nil,
	}
}

// Check probes the frame source.
func (s *Sampler) Check(ctx context.Context) error {
	if s.frames == nil || s.classifier == nil {
		return ErrCameraUnavailable
	}
	if err := s.frames.Check(ctx); err != nil {
		return errors.Join(ErrCameraUnavailable, err)
	}
	return nil
}

// Disable turns Start into a no-op, e.g. after a failed device probe.
func (s *Sampler) Disable() {
	s.mu.Lock()
	s.disabled = true
	s.mu.Unlock()
}

// Disabled reports whether sampling has been turned off.
func (s *Sampler) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// Start begins sampling every interval. A running sampler is restarted.
// History is kept; call Clear to begin from an empty sequence.
func (s *Sampler) Start(interval time.Duration) {
	s.Stop()
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		s.log.Debug("sampling disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.loop(ctx, interval, done)
}

// Stop halts sampling, abandons any in-flight classification and returns a
// copy of the accumulated sequence. Safe to call repeatedly.
func (s *Sampler) Stop() []Sample {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.Samples()
}

// Clear empties the history.
func (s *Sampler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
	s.current = ""
}

// Samples returns a copy of the sequence.
func (s *Sampler) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Labels returns the label sequence.
func (s *Sampler) Labels() []Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Label, len(s.samples))
	for i, smp := range s.samples {
		out[i] = smp.Label
	}
	return out
}

// Current returns the most recent classification, which may be NoFace.
func (s *Sampler) Current() Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Sampler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

// sampleOnce takes a single snapshot and records its label. Failures are
// logged and dropped.
func (s *Sampler) sampleOnce(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	frame, err := s.frames.Snapshot(callCtx)
	if err != nil {
		s.log.WithError(err).Debug("snapshot failed, sample skipped")
		return
	}
	label, err := s.classifier.Classify(callCtx, frame)
	if err != nil {
		s.log.WithError(err).Debug("classification failed, sample skipped")
		return
	}
	if ctx.Err() != nil {
		return
	}
	s.record(label)
}

func (s *Sampler) record(label Label) {
	s.mu.Lock()
	s.current = label
	var appended *Sample
	if label.IsWeighted() {
		n := len(s.samples)
		if n == 0 || s.samples[n-1].Label != label {
			smp := Sample{Label: label, At: s.now()}
			s.samples = append(s.samples, smp)
			appended = &smp
		}
	}
	s.mu.Unlock()

	if s.onClass != nil {
		s.onClass(label)
	}
	if appended != nil {
		s.log.WithField("label", label).Debug("emotion sample recorded")
		if s.onSample != nil {
			s.onSample(*appended)
		}
	}
}

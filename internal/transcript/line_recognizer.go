package transcript

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// InterimPrefix marks a line as an interim (not yet final) fragment.
const InterimPrefix = "~"

// LineRecognizer treats each line of an io.Reader as a recognized speech
// segment. Lines starting with InterimPrefix are interim fragments; all
// others are final. It stands in for a speech engine when answers are typed.
//
// Lines read while no capture is running are dropped.
type LineRecognizer struct {
	r io.Reader

	once sync.Once

	mu     sync.Mutex
	sink   Sink
	closed bool
	err    error
}

// NewLineRecognizer creates a recognizer over r.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{r: r}
}

// Check reports whether the underlying reader is still usable.
func (l *LineRecognizer) Check(_ context.Context) error {
	if l.r == nil {
		return errors.New("no input reader configured")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		if l.err != nil {
			return l.err
		}
		return io.EOF
	}
	return nil
}

// Start attaches sink and begins delivering lines to it.
func (l *LineRecognizer) Start(ctx context.Context, sink Sink) error {
	if err := l.Check(ctx); err != nil {
		return err
	}
	l.once.Do(func() { go l.read() })

	l.mu.Lock()
	l.sink = sink
	l.mu.Unlock()
	return nil
}

// Stop detaches the sink. Lines are delivered as soon as they are read, so
// there is nothing left to flush.
func (l *LineRecognizer) Stop(_ context.Context) error {
	l.mu.Lock()
	l.sink = nil
	l.mu.Unlock()
	return nil
}

func (l *LineRecognizer) read() {
	scanner := bufio.NewScanner(l.r)
	for scanner.Scan() {
		l.deliver(scanner.Text())
	}

	l.mu.Lock()
	l.closed = true
	l.err = scanner.Err()
	l.mu.Unlock()
}

func (l *LineRecognizer) deliver(line string) {
	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()
	if sink == nil {
		return
	}

	if strings.HasPrefix(line, InterimPrefix) {
		sink.AppendInterim(strings.TrimSpace(strings.TrimPrefix(line, InterimPrefix)))
		return
	}
	sink.CommitFinal(line)
}

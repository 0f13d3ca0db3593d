// Package session runs capture sessions and keeps the archive of finished ones.
package session

import (
	"context"
	"errors"
	"fmt"
	"gonetcap/internal/capture"
	"gonetcap/internal/decoder"
	"gonetcap/internal/models"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrCaptureActive is returned by Start while a capture is already running.
	ErrCaptureActive = errors.New("session: capture already in progress")
	// ErrNotCapturing is returned by Wait when no capture was started.
	ErrNotCapturing = errors.New("session: no capture in progress")
	// ErrCaptureFatal wraps a capture source failure that ended a session early.
	// Packets captured before the failure are kept.
	ErrCaptureFatal = errors.New("session: capture source failed")
)

// State is the controller lifecycle state.
type State int32

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Controller owns the capture lifecycle: it runs one capture worker at a time
// and turns each finished run into a Session in the Archive.
type Controller struct {
	archive *Archive
	logger  *zap.Logger
	poll    time.Duration
	display func(models.DecodedPacket)
	now     func() time.Time

	state atomic.Int32

	mu  sync.Mutex
	run *run
}

// run is the state of one capture run. buf is shared with the worker;
// done is closed by the worker when it exits, after err is set.
type run struct {
	id      uuid.UUID
	started time.Time
	buf     *packetBuffer
	stop    Trigger
	done    chan struct{}
	err     error

	// set under Controller.mu by the first Wait to return
	retired bool
	session models.Session
}

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval sets how long the worker waits on the stop trigger after
// the capture source reported a timeout. Defaults to 10ms.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithDisplay registers a callback invoked by the worker for every recorded packet.
// It runs on the worker goroutine and must not block.
func WithDisplay(fn func(models.DecodedPacket)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.display = fn
		}
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates an idle Controller that archives finished sessions into archive.
func NewController(archive *Archive, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		archive: archive,
		logger:  logger,
		poll:    10 * time.Millisecond,
		display: func(models.DecodedPacket) {},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Start begins a capture run reading from src until stop fires, ctx is done,
// or src fails. It returns ErrCaptureActive if a run is already in progress;
// each run must be retired with Wait before the next Start.
func (c *Controller) Start(ctx context.Context, src capture.Source, stop Trigger) error {
	if !c.state.CompareAndSwap(int32(Idle), int32(Capturing)) {
		return ErrCaptureActive
	}

	r := &run{
		id:      uuid.New(),
		started: c.now(),
		buf:     &packetBuffer{},
		stop:    stop,
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	c.run = r
	c.mu.Unlock()

	c.logger.Info("capture started", zap.Stringer("session", r.id), zap.Stringer("link", src.LinkType()))
	go c.capture(ctx, src, r)
	return nil
}

// Wait blocks until the current run's worker exits, then builds its Session,
// archives it when it holds at least one packet, and returns the controller to Idle.
//
// The returned error wraps ErrCaptureFatal when the source failed; the session
// still holds every packet captured before the failure. If ctx is done first,
// Wait returns ctx.Err() and the run stays active. Concurrent callers waiting
// on the same run all receive the same Session; it is archived once.
func (c *Controller) Wait(ctx context.Context) (models.Session, error) {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r == nil {
		return models.Session{}, ErrNotCapturing
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return models.Session{}, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r.retired {
		return r.session, r.err
	}

	s := models.Session{
		ID:        r.id,
		StartedAt: r.started,
		EndedAt:   c.now(),
		Packets:   r.buf.snapshot(),
	}
	archived := c.archive.Append(s)

	r.session = s
	r.retired = true
	c.run = nil
	c.state.Store(int32(Idle))

	c.logger.Info("capture finished",
		zap.Stringer("session", s.ID),
		zap.Int("packets", s.Len()),
		zap.Bool("archived", archived),
		zap.Duration("duration", s.Duration()),
		zap.Error(r.err),
	)
	return s, r.err
}

// Run starts a capture and waits for it to finish.
func (c *Controller) Run(ctx context.Context, src capture.Source, stop Trigger) (models.Session, error) {
	if err := c.Start(ctx, src, stop); err != nil {
		return models.Session{}, err
	}
	return c.Wait(context.WithoutCancel(ctx))
}

// Captured returns the number of packets recorded by the current run.
func (c *Controller) Captured() int {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r == nil {
		return 0
	}
	return r.buf.len()
}

// Recent returns up to n of the most recent packets of the current run, oldest first.
func (c *Controller) Recent(n int) []models.DecodedPacket {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.buf.tail(n)
}

// capture is the worker loop. Frames are decoded and appended in the order
// the source returned them.
func (c *Controller) capture(ctx context.Context, src capture.Source, r *run) {
	defer close(r.done)

	dec := decoder.New(src.LinkType())
	if !decoder.Supported(src.LinkType()) {
		c.logger.Warn("unsupported link type, every frame will be skipped", zap.Stringer("link", src.LinkType()))
	}

	wait := time.Duration(0)
	for {
		if c.stopRequested(ctx, r.stop, wait) {
			c.logger.Debug("stop requested", zap.Stringer("session", r.id))
			return
		}

		frame, err := src.NextFrame()
		switch {
		case err == nil:
			wait = 0
			pkt, ok := dec.Decode(frame)
			if !ok {
				continue
			}
			r.buf.append(pkt)
			c.display(pkt)

		case errors.Is(err, capture.ErrTimeout):
			// Nothing arrived; give the stop trigger a short window before asking again.
			wait = c.poll

		case errors.Is(err, io.EOF):
			c.logger.Info("capture source exhausted", zap.Stringer("session", r.id))
			return

		default:
			r.err = fmt.Errorf("%w: %v", ErrCaptureFatal, err)
			c.logger.Error("capture source failed", zap.Stringer("session", r.id), zap.Error(err))
			return
		}
	}
}

func (c *Controller) stopRequested(ctx context.Context, stop Trigger, wait time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	if stop == nil {
		return false
	}
	return stop.Poll(wait)
}

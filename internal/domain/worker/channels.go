package worker

import (
	"context"
	"errors"
	"fmt"
)

// ErrChannelClosed is returned when a worker closed a channel without
// writing the value its ancestor expected.
var ErrChannelClosed = errors.New("channel closed by worker")

// MaxMarkers is how many hidden values a worker forwards to its ancestor.
const MaxMarkers = 2

// Partial is a worker's local result.
type Partial struct {
	Max     int
	Sum     int
	Regular int
}

// Channels connects one worker to its ancestor. Every result channel has
// exactly one writer, the worker, which closes it after use. Control has
// one writer, the ancestor.
type Channels struct {
	Results chan Partial
	Count   chan int
	Markers chan int
	Control chan Directive
	Status  chan Status
}

// NewChannels allocates the channels for one worker. Buffers hold every
// value the writer will ever send, so neither side blocks on the other's
// pace.
func NewChannels() *Channels {
	return &Channels{
		Results: make(chan Partial, 1),
		Count:   make(chan int, 1),
		Markers: make(chan int, MaxMarkers),
		Control: make(chan Directive, 1),
		Status:  make(chan Status, 4),
	}
}

func (c *Channels) validate() error {
	if c == nil || c.Results == nil || c.Count == nil || c.Markers == nil || c.Control == nil || c.Status == nil {
		return errors.New("incomplete channel set")
	}
	if cap(c.Markers) < MaxMarkers || cap(c.Status) < 4 {
		return fmt.Errorf("channel buffers too small")
	}
	return nil
}

// Handle is the ancestor's end of a worker. Reads block until the worker
// writes or ctx ends; there are no protocol timeouts.
type Handle struct {
	index    int
	identity int64
	id       string
	ch       *Channels
}

// NewHandle returns the ancestor's view of w.
func NewHandle(w *Worker) *Handle {
	return &Handle{index: w.cfg.Index, identity: w.cfg.Identity, id: w.cfg.ID, ch: w.cfg.Channels}
}

func (h *Handle) Index() int      { return h.index }
func (h *Handle) Identity() int64 { return h.identity }
func (h *Handle) ID() string      { return h.id }

// WaitStatus blocks for the worker's next state change.
func (h *Handle) WaitStatus(ctx context.Context) (Status, error) {
	select {
	case s, ok := <-h.ch.Status:
		if !ok {
			return Status{}, fmt.Errorf("status: %w", ErrChannelClosed)
		}
		return s, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// HiddenCount blocks for the worker's hidden-count.
func (h *Handle) HiddenCount(ctx context.Context) (int, error) {
	select {
	case n, ok := <-h.ch.Count:
		if !ok {
			return 0, fmt.Errorf("count: %w", ErrChannelClosed)
		}
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Partial blocks for the worker's max, sum and regular count.
func (h *Handle) Partial(ctx context.Context) (Partial, error) {
	select {
	case p, ok := <-h.ch.Results:
		if !ok {
			return Partial{}, fmt.Errorf("results: %w", ErrChannelClosed)
		}
		return p, nil
	case <-ctx.Done():
		return Partial{}, ctx.Err()
	}
}

// Markers drains the forwarded hidden values. The worker closes the
// channel before reporting, so this never blocks once Partial returned.
func (h *Handle) Markers(ctx context.Context) ([]int, error) {
	var out []int
	for {
		select {
		case v, ok := <-h.ch.Markers:
			if !ok {
				return out, nil
			}
			out = append(out, v)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}

// Send delivers a directive.
func (h *Handle) Send(ctx context.Context, d Directive) error {
	select {
	case h.ch.Control <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package pathmut

import (
	"context"
	"sync"
	"time"
)

// Status is the lifecycle position of a mutation handle.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Op names the write a mutation performs.
type Op string

const (
	OpSet         Op = "set"
	OpUpdate      Op = "update"
	OpRemove      Op = "remove"
	OpTransaction Op = "transaction"
)

// State is a point-in-time view of a mutation handle. Data and Err belong to
// the latest invocation only. FailureCount counts consecutive failed
// invocations; a success or Reset clears it.
type State[A, R any] struct {
	Status       Status
	Data         R
	Err          error
	Variables    A
	FailureCount int
	SubmittedAt  time.Time
	SettledAt    time.Time
}

func (s State[A, R]) IsIdle() bool    { return s.Status == StatusIdle }
func (s State[A, R]) IsPending() bool { return s.Status == StatusPending }
func (s State[A, R]) IsSuccess() bool { return s.Status == StatusSuccess }
func (s State[A, R]) IsError() bool   { return s.Status == StatusError }

// Mutation is one handle over a write: an executor, the PathKey it targets
// and the invalidation that follows success. It is safe for concurrent use,
// but no ordering is kept between overlapping invocations; only the latest
// one is reflected in State.
type Mutation[A, R any] struct {
	op     Op
	key    PathKey
	client *Client
	exec   func(ctx context.Context, arg A) (R, error)
	opts   MutationOptions[A, R]

	mu     sync.Mutex
	state  State[A, R]
	seq    uint64
	done   chan struct{}
	subs   map[uint64]func(State[A, R])
	subSeq uint64

	// serializes delivery so subscribers see states in order
	notifyMu sync.Mutex
}

func newMutation[A, R any](c *Client, op Op, ref Reference, opts MutationOptions[A, R], exec func(context.Context, A) (R, error)) *Mutation[A, R] {
	m := &Mutation[A, R]{op: op, client: c, exec: exec, opts: opts}
	switch {
	case c == nil:
		m.client = New(Options{})
		m.exec = failWith[A, R](ErrNilClient)
	case ref == nil:
		m.exec = failWith[A, R](ErrNilReference)
	}
	if ref != nil {
		m.key = KeyOf(ref)
	}
	return m
}

func failWith[A, R any](err error) func(context.Context, A) (R, error) {
	return func(context.Context, A) (R, error) {
		var zero R
		return zero, err
	}
}

func (m *Mutation[A, R]) Key() PathKey { return m.key }
func (m *Mutation[A, R]) Op() Op       { return m.op }

func (m *Mutation[A, R]) State() State[A, R] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mutate starts the write and returns immediately with the handle already
// pending. It never panics and never reports errors; observe State.
func (m *Mutation[A, R]) Mutate(ctx context.Context, arg A) {
	id, done := m.begin(arg)
	go func() {
		_, _ = m.execute(ctx, id, done, arg)
	}()
}

// MutateAsync runs the write and returns its outcome. The error is the
// remote failure as returned by the reference.
func (m *Mutation[A, R]) MutateAsync(ctx context.Context, arg A) (R, error) {
	id, done := m.begin(arg)
	return m.execute(ctx, id, done, arg)
}

// Wait blocks until the latest invocation settles or ctx ends, then returns
// the current state.
func (m *Mutation[A, R]) Wait(ctx context.Context) (State[A, R], error) {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return m.State(), ctx.Err()
		}
	}
	return m.State(), nil
}

// Reset returns the handle to idle. In-flight writes keep running but their
// outcome is no longer observed.
func (m *Mutation[A, R]) Reset() {
	m.mu.Lock()
	m.seq++
	m.state = State[A, R]{}
	m.done = nil
	m.mu.Unlock()
	m.notify()
}

// Subscribe calls fn with every state change until cancel is called.
// Deliveries are serialized; fn must not start an invocation of the same
// handle synchronously.
func (m *Mutation[A, R]) Subscribe(fn func(State[A, R])) (cancel func()) {
	m.mu.Lock()
	if m.subs == nil {
		m.subs = make(map[uint64]func(State[A, R]))
	}
	m.subSeq++
	id := m.subSeq
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Mutation[A, R]) begin(arg A) (uint64, chan struct{}) {
	done := make(chan struct{})
	m.mu.Lock()
	m.seq++
	id := m.seq
	m.state = State[A, R]{
		Status:       StatusPending,
		Variables:    arg,
		FailureCount: m.state.FailureCount,
		SubmittedAt:  time.Now(),
	}
	m.done = done
	m.mu.Unlock()
	m.notify()
	return id, done
}

func (m *Mutation[A, R]) execute(ctx context.Context, id uint64, done chan struct{}, arg A) (R, error) {
	defer close(done)
	start := time.Now()

	data, err := m.call(ctx, arg)
	if err == nil {
		m.client.invalidateRelated(ctx, m.key)
	}
	m.complete(data, err, arg)
	m.client.hooks.MutationSettled(m.op, m.key, err, time.Since(start))
	if err != nil {
		m.client.log.Debug("mutation failed", Fields{"op": string(m.op), "key": m.key.String(), "err": err})
	}

	m.mu.Lock()
	if id == m.seq {
		if err != nil {
			m.state.Status = StatusError
			m.state.Err = err
			m.state.FailureCount++
		} else {
			m.state.Status = StatusSuccess
			m.state.Data = data
			m.state.FailureCount = 0
		}
		m.state.SettledAt = time.Now()
	}
	m.mu.Unlock()
	m.notify()
	return data, err
}

func (m *Mutation[A, R]) call(ctx context.Context, arg A) (data R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p}
		}
	}()
	return m.exec(ctx, arg)
}

func (m *Mutation[A, R]) complete(data R, err error, arg A) {
	defer func() {
		if p := recover(); p != nil {
			m.client.log.Error("mutation callback panicked", Fields{"op": string(m.op), "key": m.key.String(), "panic": p})
		}
	}()
	if err != nil {
		if m.opts.OnError != nil {
			m.opts.OnError(err, arg)
		}
	} else if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(data, arg)
	}
	if m.opts.OnSettled != nil {
		m.opts.OnSettled(data, err, arg)
	}
}

func (m *Mutation[A, R]) notify() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if len(m.subs) == 0 {
		m.mu.Unlock()
		return
	}
	st := m.state
	fns := make([]func(State[A, R]), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

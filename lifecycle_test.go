package pathmut

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeRef records calls and blocks on gate when set.
type fakeRef struct {
	path string
	gate chan struct{}
	err  error
	pan  any

	mu    sync.Mutex
	calls []string
}

func (r *fakeRef) Path() string { return r.path }

func (r *fakeRef) do(name string) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
	if r.pan != nil {
		panic(r.pan)
	}
	return r.err
}

func (r *fakeRef) Set(context.Context, any) error                  { return r.do("set") }
func (r *fakeRef) SetWithPriority(context.Context, any, any) error { return r.do("setWithPriority") }
func (r *fakeRef) Update(context.Context, map[string]any) error    { return r.do("update") }
func (r *fakeRef) Remove(context.Context) error                    { return r.do("remove") }

func (r *fakeRef) Transaction(_ context.Context, update func(any) (any, error)) (bool, any, error) {
	if err := r.do("transaction"); err != nil {
		return false, nil, err
	}
	v, err := update(nil)
	if errors.Is(err, ErrAbort) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, v, nil
}

type countingCache struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCache) InvalidateMatching(context.Context, func(string) bool) (int, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return 0, c.err
}

func waitState[A, R any](t *testing.T, m *Mutation[A, R]) State[A, R] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := m.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return st
}

func TestMutationStartsIdle(t *testing.T) {
	m := Set(New(Options{}), &fakeRef{path: "/a"}, SetOptions[int]{})
	st := m.State()
	if !st.IsIdle() || st.Status.String() != "idle" {
		t.Fatalf("expected idle, got %v", st.Status)
	}
	if m.Key() != "/a" || m.Op() != OpSet {
		t.Fatalf("unexpected key/op: %s %s", m.Key(), m.Op())
	}
	// Wait on an idle handle returns immediately.
	if st := waitState(t, m); !st.IsIdle() {
		t.Fatalf("expected idle after Wait, got %v", st.Status)
	}
}

func TestMutateIsPendingUntilSettled(t *testing.T) {
	ref := &fakeRef{path: "/a", gate: make(chan struct{})}
	m := Set(New(Options{}), ref, SetOptions[int]{})

	m.Mutate(context.Background(), 7)
	st := m.State()
	if !st.IsPending() || st.Variables != 7 {
		t.Fatalf("expected pending with variables, got %+v", st)
	}

	close(ref.gate)
	st = waitState(t, m)
	if !st.IsSuccess() || st.Data != 7 || st.SettledAt.IsZero() {
		t.Fatalf("expected success, got %+v", st)
	}
}

func TestMutateRecordsErrorWithoutPanicking(t *testing.T) {
	boom := errors.New("permission denied")
	m := Remove(New(Options{}), &fakeRef{path: "/a", err: boom}, MutationOptions[struct{}, struct{}]{})

	m.Mutate(context.Background(), struct{}{})
	st := waitState(t, m)
	if !st.IsError() || !errors.Is(st.Err, boom) || st.FailureCount != 1 {
		t.Fatalf("expected error state, got %+v", st)
	}
}

func TestMutateAsyncReturnsRemoteError(t *testing.T) {
	boom := errors.New("boom")
	m := Update(New(Options{}), &fakeRef{path: "/a", err: boom}, MutationOptions[UpdatePatch, UpdatePatch]{})
	if _, err := m.MutateAsync(context.Background(), UpdatePatch{"x": 1}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestExecutorPanicBecomesError(t *testing.T) {
	m := Set(New(Options{}), &fakeRef{path: "/a", pan: "kaboom"}, SetOptions[int]{})
	_, err := m.MutateAsync(context.Background(), 1)
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "kaboom" {
		t.Fatalf("expected PanicError, got %v", err)
	}
}

func TestCallbacksRunAfterInvalidation(t *testing.T) {
	cache := &countingCache{}
	var order []string
	opts := SetOptions[int]{
		MutationOptions: MutationOptions[int, int]{
			OnSuccess: func(data, arg int) {
				cache.mu.Lock()
				if cache.calls == 1 {
					order = append(order, "success")
				}
				cache.mu.Unlock()
			},
			OnError:   func(error, int) { order = append(order, "error") },
			OnSettled: func(int, error, int) { order = append(order, "settled") },
		},
	}
	m := Set(New(Options{Cache: cache}), &fakeRef{path: "/a"}, opts)
	if _, err := m.MutateAsync(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "success" || order[1] != "settled" {
		t.Fatalf("unexpected callback order: %v", order)
	}
}

func TestFailedWriteDoesNotInvalidate(t *testing.T) {
	cache := &countingCache{}
	m := Set(New(Options{Cache: cache}), &fakeRef{path: "/a", err: errors.New("x")}, SetOptions[int]{})
	_, _ = m.MutateAsync(context.Background(), 1)
	if cache.calls != 0 {
		t.Fatalf("failed write invalidated %d times", cache.calls)
	}
}

func TestInvalidationFailureKeepsSuccess(t *testing.T) {
	cache := &countingCache{err: errors.New("cache down")}
	m := Set(New(Options{Cache: cache}), &fakeRef{path: "/a"}, SetOptions[int]{})
	if _, err := m.MutateAsync(context.Background(), 1); err != nil {
		t.Fatalf("invalidation failure leaked: %v", err)
	}
	if !m.State().IsSuccess() {
		t.Fatalf("expected success, got %v", m.State().Status)
	}
}

func TestCallbackPanicIsContained(t *testing.T) {
	opts := SetOptions[int]{MutationOptions: MutationOptions[int, int]{
		OnSuccess: func(int, int) { panic("callback") },
	}}
	m := Set(New(Options{}), &fakeRef{path: "/a"}, opts)
	if _, err := m.MutateAsync(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if !m.State().IsSuccess() {
		t.Fatalf("expected success, got %v", m.State().Status)
	}
}

// holdRef blocks writes of the value 1 until release is closed.
type holdRef struct {
	fakeRef
	release chan struct{}
}

func (r *holdRef) Set(_ context.Context, v any) error {
	if v == 1 {
		<-r.release
	}
	return nil
}

func TestLatestInvocationWins(t *testing.T) {
	ref := &holdRef{fakeRef: fakeRef{path: "/a"}, release: make(chan struct{})}
	m := Set(New(Options{}), ref, SetOptions[int]{})

	m.Mutate(context.Background(), 1)
	if _, err := m.MutateAsync(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	close(ref.release)
	time.Sleep(20 * time.Millisecond)

	st := m.State()
	if !st.IsSuccess() || st.Data != 2 || st.Variables != 2 {
		t.Fatalf("older invocation overwrote state: %+v", st)
	}
}

func TestResetDetachesInFlight(t *testing.T) {
	ref := &fakeRef{path: "/a", gate: make(chan struct{})}
	m := Set(New(Options{}), ref, SetOptions[int]{})

	m.Mutate(context.Background(), 1)
	m.Reset()
	if !m.State().IsIdle() {
		t.Fatalf("expected idle after Reset")
	}
	close(ref.gate)
	time.Sleep(20 * time.Millisecond)
	if !m.State().IsIdle() {
		t.Fatalf("detached invocation updated state: %+v", m.State())
	}
}

func TestSubscribeSeesTransitions(t *testing.T) {
	m := Set(New(Options{}), &fakeRef{path: "/a"}, SetOptions[int]{})
	var mu sync.Mutex
	var seen []Status
	cancel := m.Subscribe(func(s State[int, int]) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})
	_, _ = m.MutateAsync(context.Background(), 1)
	cancel()
	_, _ = m.MutateAsync(context.Background(), 2)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != StatusPending || seen[1] != StatusSuccess {
		t.Fatalf("unexpected transitions: %v", seen)
	}
}

func TestNilReferenceAndClient(t *testing.T) {
	m := Set[int](New(Options{}), nil, SetOptions[int]{})
	if _, err := m.MutateAsync(context.Background(), 1); !errors.Is(err, ErrNilReference) {
		t.Fatalf("expected ErrNilReference, got %v", err)
	}
	m = Set[int](nil, &fakeRef{path: "/a"}, SetOptions[int]{})
	if _, err := m.MutateAsync(context.Background(), 1); !errors.Is(err, ErrNilClient) {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
	tx := Transaction[int](New(Options{}), nil, func(int, bool) (int, error) { return 0, nil }, MutationOptions[struct{}, TransactionResult[int]]{})
	if _, err := tx.MutateAsync(context.Background(), struct{}{}); !errors.Is(err, ErrNilReference) {
		t.Fatalf("expected ErrNilReference, got %v", err)
	}
}

func TestSetWithPriorityUsesSingleCall(t *testing.T) {
	ref := &fakeRef{path: "/a"}
	m := Set(New(Options{}), ref, SetOptions[string]{Priority: 3})
	if _, err := m.MutateAsync(context.Background(), "v"); err != nil {
		t.Fatal(err)
	}
	if len(ref.calls) != 1 || ref.calls[0] != "setWithPriority" {
		t.Fatalf("unexpected calls: %v", ref.calls)
	}
}

type panickingCache struct{}

func (panickingCache) InvalidateMatching(context.Context, func(string) bool) (int, error) {
	panic("cache backend blew up")
}

type invalidationRecorder struct {
	NopHooks
	mu   sync.Mutex
	errs []error
}

func (h *invalidationRecorder) InvalidationFailed(_ PathKey, err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func TestInvalidationPanicKeepsSuccess(t *testing.T) {
	hooks := &invalidationRecorder{}
	c := New(Options{Cache: panickingCache{}, Hooks: hooks})
	m := Set(c, &fakeRef{path: "/a"}, SetOptions[int]{})

	if _, err := m.MutateAsync(context.Background(), 1); err != nil {
		t.Fatalf("invalidation panic leaked into the write: %v", err)
	}
	if st := m.State(); st.Status != StatusSuccess {
		t.Fatalf("expected success, got %v", st.Status)
	}

	// fire-and-forget must survive it too
	m.Mutate(context.Background(), 2)
	if st := waitState(t, m); !st.IsSuccess() || st.Data != 2 {
		t.Fatalf("expected success after Mutate, got %+v", st)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.errs) != 2 {
		t.Fatalf("expected 2 reported failures, got %d", len(hooks.errs))
	}
	var ie *InvalidationError
	if !errors.As(hooks.errs[0], &ie) || ie.Key != "/a" {
		t.Fatalf("expected InvalidationError for /a, got %v", hooks.errs[0])
	}
}

func TestFailureCountAccumulatesUntilSuccess(t *testing.T) {
	ref := &fakeRef{path: "/a", err: errors.New("denied")}
	m := Set(New(Options{}), ref, SetOptions[int]{})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, _ = m.MutateAsync(ctx, i)
		if got := m.State().FailureCount; got != i {
			t.Fatalf("after %d failures FailureCount=%d", i, got)
		}
	}
	ref.err = nil
	if _, err := m.MutateAsync(ctx, 4); err != nil {
		t.Fatal(err)
	}
	if got := m.State().FailureCount; got != 0 {
		t.Fatalf("success should clear FailureCount, got %d", got)
	}

	ref.err = errors.New("denied")
	_, _ = m.MutateAsync(ctx, 5)
	m.Reset()
	if got := m.State().FailureCount; got != 0 {
		t.Fatalf("Reset should clear FailureCount, got %d", got)
	}
}

func TestSubscriberLastViewMatchesState(t *testing.T) {
	m := Set(New(Options{}), &fakeRef{path: "/a"}, SetOptions[int]{})
	var mu sync.Mutex
	var last State[int, int]
	m.Subscribe(func(s State[int, int]) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				m.Reset()
				return
			}
			_, _ = m.MutateAsync(context.Background(), i)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if got := m.State(); last.Status != got.Status || last.Data != got.Data || last.Variables != got.Variables {
		t.Fatalf("subscriber last saw %+v, state is %+v", last, got)
	}
}

// abortErrRef reports an abort as an ErrAbort error along with the current value.
type abortErrRef struct {
	fakeRef
	current any
}

func (r *abortErrRef) Transaction(context.Context, func(any) (any, error)) (bool, any, error) {
	return false, r.current, ErrAbort
}

func TestAbortErrorKeepsCurrentValue(t *testing.T) {
	ref := &abortErrRef{fakeRef: fakeRef{path: "/n"}, current: float64(7)}
	m := Transaction(New(Options{}), ref, func(cur int, _ bool) (int, error) {
		return cur, ErrAbort
	}, MutationOptions[struct{}, TransactionResult[int]]{})

	res, err := m.MutateAsync(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("abort should succeed, got %v", err)
	}
	if res.Committed || !res.Exists || res.Value != 7 {
		t.Fatalf("expected uncommitted current value 7, got %+v", res)
	}
}

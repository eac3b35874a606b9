package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "listing-service/internal/domain/listing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(st State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *stateRecorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func newTestLoader(t *testing.T, src *fakeSource) (*Loader, *stateRecorder, *Fetcher) {
	t.Helper()
	rec := &stateRecorder{}
	f := newTestFetcher(src, &testClock{now: time.Now()})
	l := NewLoader(context.Background(), f, zap.NewNop(), rec.record)
	t.Cleanup(l.Close)
	return l, rec, f
}

func waitStatus(t *testing.T, l *Loader, want Status) State {
	t.Helper()
	require.Eventually(t, func() bool { return l.State().Status == want }, time.Second, time.Millisecond)
	return l.State()
}

func TestLoader_LoadSucceeds(t *testing.T) {
	src := newFakeSource()
	l, rec, _ := newTestLoader(t, src)
	key := keyFor("axio", 1)

	assert.Equal(t, StatusIdle, l.State().Status)

	l.Load(key)
	assert.Equal(t, StatusLoading, l.State().Status)
	assert.Nil(t, l.State().Data)

	src.release(key)
	st := waitStatus(t, l, StatusSucceeded)
	require.NotNil(t, st.Data)
	assert.Equal(t, "axio", st.Data.Items[0].Name)

	states := rec.all()
	require.Len(t, states, 2)
	assert.Equal(t, StatusLoading, states[0].Status)
	assert.Equal(t, StatusSucceeded, states[1].Status)
}

func TestLoader_SameKeyIsNoop(t *testing.T) {
	src := newFakeSource()
	l, rec, _ := newTestLoader(t, src)
	key := keyFor("vitz", 1)

	l.Load(key)
	l.Load(key)
	src.release(key)
	waitStatus(t, l, StatusSucceeded)
	l.Load(key)

	assert.Len(t, rec.all(), 2)
	assert.Equal(t, int32(1), src.count.Load())
}

func TestLoader_DiscardsSupersededResult(t *testing.T) {
	src := newFakeSource()
	l, rec, _ := newTestLoader(t, src)
	a, b := keyFor("a", 1), keyFor("b", 1)

	l.Load(a)
	l.Load(b)

	src.release(a)
	time.Sleep(20 * time.Millisecond)
	st := l.State()
	assert.Equal(t, StatusLoading, st.Status)
	assert.Equal(t, b.String(), st.Key.String())
	assert.Nil(t, st.Data)

	src.release(b)
	st = waitStatus(t, l, StatusSucceeded)
	assert.Equal(t, "b", st.Data.Items[0].Name)

	for _, s := range rec.all() {
		if s.Data != nil {
			assert.Equal(t, "b", s.Data.Items[0].Name)
		}
	}
}

func TestLoader_CachedKeyCommitsImmediately(t *testing.T) {
	src := newFakeSource()
	l, _, f := newTestLoader(t, src)
	a, b := keyFor("a", 1), keyFor("b", 1)
	src.release(a)
	src.release(b)

	_, err := f.Fetch(context.Background(), a)
	require.NoError(t, err)

	l.Load(b)
	waitStatus(t, l, StatusSucceeded)

	l.Load(a)
	st := l.State()
	assert.Equal(t, StatusSucceeded, st.Status)
	assert.Equal(t, "a", st.Data.Items[0].Name)
	assert.Equal(t, int32(2), src.count.Load())
}

func TestLoader_FailureAndRetry(t *testing.T) {
	src := newFakeSource()
	l, _, _ := newTestLoader(t, src)
	key := keyFor("harrier", 2)
	src.failWith(key, errors.New("upstream down"))
	src.release(key)

	assert.False(t, l.Retry())

	l.Load(key)
	st := waitStatus(t, l, StatusFailed)
	assert.Equal(t, "upstream down", st.Err)
	assert.Nil(t, st.Data)

	src.failWith(key, nil)
	assert.True(t, l.Retry())
	st = waitStatus(t, l, StatusSucceeded)
	assert.Equal(t, 2, st.Data.Pagination.Page)
	assert.Equal(t, int32(2), src.count.Load())
}

func TestLoader_CloseDropsLateResults(t *testing.T) {
	src := newFakeSource()
	l, rec, _ := newTestLoader(t, src)
	key := keyFor("late", 1)

	l.Load(key)
	l.Close()
	src.release(key)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StatusLoading, l.State().Status)
	assert.Len(t, rec.all(), 1)

	l.Load(keyFor("other", 1))
	assert.Len(t, rec.all(), 1)
}

// slowPeek is a fetcher whose cache lookup waits like a remote tier does.
type slowPeek struct {
	PageFetcher
	entered chan struct{}
	proceed chan struct{}
}

func (p *slowPeek) Peek(ctx context.Context, key Key) (*domain.Page, bool) {
	p.entered <- struct{}{}
	<-p.proceed
	return p.PageFetcher.Peek(ctx, key)
}

func TestLoader_CacheLookupDoesNotBlockState(t *testing.T) {
	src := newFakeSource()
	f := newTestFetcher(src, &testClock{now: time.Now()})
	peek := &slowPeek{PageFetcher: f, entered: make(chan struct{}, 1), proceed: make(chan struct{})}
	l := NewLoader(context.Background(), peek, zap.NewNop(), nil)
	t.Cleanup(l.Close)
	key := keyFor("axio", 1)

	done := make(chan struct{})
	go func() {
		l.Load(key)
		close(done)
	}()
	<-peek.entered

	read := make(chan State, 1)
	go func() { read <- l.State() }()
	select {
	case st := <-read:
		assert.Equal(t, StatusIdle, st.Status)
	case <-time.After(time.Second):
		t.Fatal("State blocked behind the cache lookup")
	}

	close(peek.proceed)
	<-done
	assert.Equal(t, StatusLoading, l.State().Status)
	src.release(key)
	waitStatus(t, l, StatusSucceeded)
}

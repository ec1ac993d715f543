package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/docflow/internal/model"
)

type fakeTimer struct {
	s       *fakeScheduler
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeScheduler records timers; tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, d: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// pending returns unstopped timers scheduled with delay d.
func (s *fakeScheduler) pending(d time.Duration) []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && t.d == d {
			out = append(out, t)
		}
	}
	return out
}

// reconnectDelays lists the delays of every timer except poll timers.
func (s *fakeScheduler) reconnectDelays(poll time.Duration) []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.timers {
		if t.d != poll {
			out = append(out, t.d)
		}
	}
	return out
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire runs the timer callback unless it was stopped.
func (t *fakeTimer) fire() {
	t.s.mu.Lock()
	if t.stopped {
		t.s.mu.Unlock()
		return
	}
	t.stopped = true
	t.s.mu.Unlock()
	t.fn()
}

type fakeConn struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case m := <-c.msgs:
		return m, nil
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type dialResult struct {
	conn Conn
	err  error
}

// fakeDialer hands out queued results; Dial blocks until one is queued.
type fakeDialer struct {
	mu      sync.Mutex
	dials   int
	results chan dialResult
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{results: make(chan dialResult, 16)}
}

func (d *fakeDialer) Dial(ctx context.Context, url, token string) (Conn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	select {
	case r := <-d.results:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	items []model.Activity
	err   error
	gate  chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, limit int) ([]model.Activity, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Activity, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) set(items []model.Activity, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
	f.err = err
}

const testPoll = 30 * time.Second

func newTestFeed(t *testing.T, fetcher Fetcher) (*Feed, *fakeDialer, *fakeScheduler) {
	t.Helper()
	dialer := newFakeDialer()
	sched := &fakeScheduler{}
	f := New(Config{
		URL:           "ws://test/feed",
		Token:         "tok",
		MaxActivities: 50,
		PollInterval:  testPoll,
		Dialer:        dialer,
		Fetcher:       fetcher,
		Scheduler:     sched,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(f.Close)
	return f, dialer, sched
}

func eventMsg(t *testing.T, id string) []byte {
	t.Helper()
	msg, err := model.NewEventMessage(act(id))
	require.NoError(t, err)
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func waitStatus(t *testing.T, f *Feed, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return f.Status() == want }, time.Second, time.Millisecond)
}

func waitTimers(t *testing.T, s *fakeScheduler, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.count() >= n }, time.Second, time.Millisecond)
}

func TestConnectIsIdempotent(t *testing.T) {
	f, dialer, _ := newTestFeed(t, nil)
	ctx := context.Background()

	f.Connect(ctx)
	f.Connect(ctx)
	require.Eventually(t, func() bool { return dialer.dialCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StatusConnecting, f.Status())

	dialer.results <- dialResult{conn: newFakeConn()}
	waitStatus(t, f, StatusConnected)

	f.Connect(ctx)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestBackoffGrowsAndResetsAfterSuccess(t *testing.T) {
	f, dialer, sched := newTestFeed(t, nil)
	f.Connect(context.Background())

	fail := errors.New("refused")
	for i := 0; i < 3; i++ {
		dialer.results <- dialResult{err: fail}
		waitTimers(t, sched, i+1)
		assert.Equal(t, StatusReconnecting, f.Status())
		sched.timer(i).fire()
	}

	conn := newFakeConn()
	dialer.results <- dialResult{conn: conn}
	waitStatus(t, f, StatusConnected)
	assert.Equal(t, 0, f.Attempts())
	assert.NoError(t, f.ConnErr())

	conn.Close()
	waitTimers(t, sched, 4)

	assert.Equal(t, []time.Duration{
		1500 * time.Millisecond,
		2250 * time.Millisecond,
		3375 * time.Millisecond,
		1500 * time.Millisecond,
	}, sched.reconnectDelays(testPoll))
	assert.Equal(t, StatusReconnecting, f.Status())
	assert.Error(t, f.ConnErr())
}

func TestMessagesNeverBreakTheConnection(t *testing.T) {
	f, dialer, _ := newTestFeed(t, nil)
	conn := newFakeConn()
	f.Connect(context.Background())
	dialer.results <- dialResult{conn: conn}
	waitStatus(t, f, StatusConnected)

	conn.msgs <- []byte("{not json")
	conn.msgs <- []byte(`{"type":"mystery","data":{"id":"x"}}`)
	conn.msgs <- []byte(`{"type":"error","message":"quota exceeded"}`)
	conn.msgs <- []byte(`{"type":"event","data":"not an object"}`)
	conn.msgs <- []byte(`{"type":"event","data":{"type":"upload"}}`)
	conn.msgs <- []byte(`{"type":"ping"}`)
	conn.msgs <- eventMsg(t, "e1")
	conn.msgs <- []byte(`{"type":"activity","data":{"id":"e2","type":"brand_new_type","status":"success"}}`)

	require.Eventually(t, func() bool { return len(f.Activities()) == 2 }, time.Second, time.Millisecond)
	items := f.Activities()
	assert.Equal(t, []string{"e2", "e1"}, ids(items))
	assert.Equal(t, model.ActivityUnknown, items[0].Type)
	assert.Equal(t, StatusConnected, f.Status())
	assert.Equal(t, 1, dialer.dialCount())
}

func TestPollSkippedWhileConnected(t *testing.T) {
	fetcher := &fakeFetcher{items: []model.Activity{act("s1")}}
	f, dialer, _ := newTestFeed(t, fetcher)
	ctx := context.Background()

	assert.True(t, f.PollOnce(ctx), "disconnected feed polls")
	assert.Equal(t, 1, fetcher.callCount())

	conn := newFakeConn()
	f.Connect(ctx)
	dialer.results <- dialResult{conn: conn}
	waitStatus(t, f, StatusConnected)

	assert.False(t, f.PollOnce(ctx))
	assert.Equal(t, 1, fetcher.callCount())

	conn.Close()
	waitStatus(t, f, StatusReconnecting)
	assert.True(t, f.PollOnce(ctx))
	assert.Equal(t, 2, fetcher.callCount())
}

func TestPollTimerReschedulesAndRespectsStatus(t *testing.T) {
	fetcher := &fakeFetcher{}
	f, dialer, sched := newTestFeed(t, fetcher)
	f.Start(context.Background())

	// initial load
	require.Eventually(t, func() bool { return fetcher.callCount() == 1 }, time.Second, time.Millisecond)
	dialer.results <- dialResult{conn: newFakeConn()}
	waitStatus(t, f, StatusConnected)

	polls := sched.pending(testPoll)
	require.Len(t, polls, 1)
	polls[0].fire()
	assert.Equal(t, 1, fetcher.callCount(), "no poll while connected")

	next := sched.pending(testPoll)
	require.Len(t, next, 1, "poll rescheduled")
}

func TestPollReplacesPushedEvents(t *testing.T) {
	fetcher := &fakeFetcher{}
	f, dialer, _ := newTestFeed(t, fetcher)
	ctx := context.Background()

	conn := newFakeConn()
	f.Connect(ctx)
	dialer.results <- dialResult{conn: conn}
	waitStatus(t, f, StatusConnected)
	conn.msgs <- eventMsg(t, "pushed")
	require.Eventually(t, func() bool { return len(f.Activities()) == 1 }, time.Second, time.Millisecond)

	conn.Close()
	waitStatus(t, f, StatusReconnecting)

	fetcher.set([]model.Activity{act("s1"), act("s2")}, nil)
	require.True(t, f.PollOnce(ctx))
	assert.Equal(t, []string{"s1", "s2"}, ids(f.Activities()))
}

func TestInitialLoadMergesBehindEarlyPushEvents(t *testing.T) {
	fetcher := &fakeFetcher{
		items: []model.Activity{act("a"), act("early"), act("b")},
		gate:  make(chan struct{}),
	}
	f, dialer, _ := newTestFeed(t, fetcher)
	f.Start(context.Background())

	conn := newFakeConn()
	dialer.results <- dialResult{conn: conn}
	waitStatus(t, f, StatusConnected)
	conn.msgs <- eventMsg(t, "early")
	require.Eventually(t, func() bool { return len(f.Activities()) == 1 }, time.Second, time.Millisecond)

	close(fetcher.gate)
	require.Eventually(t, func() bool { return len(f.Activities()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"early", "a", "b"}, ids(f.Activities()))
	assert.NoError(t, f.LoadErr())
}

func TestInitialLoadFailureDoesNotBlockConnection(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("503")}
	f, dialer, _ := newTestFeed(t, fetcher)
	f.Start(context.Background())

	require.Eventually(t, func() bool { return f.LoadErr() != nil }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return dialer.dialCount() == 1 }, time.Second, time.Millisecond)

	dialer.results <- dialResult{conn: newFakeConn()}
	waitStatus(t, f, StatusConnected)

	fetcher.set([]model.Activity{act("a")}, nil)
	require.NoError(t, f.Reload(context.Background()))
	assert.NoError(t, f.LoadErr())
	assert.Equal(t, []string{"a"}, ids(f.Activities()))
}

func TestCloseCancelsPendingReconnect(t *testing.T) {
	fetcher := &fakeFetcher{}
	f, dialer, sched := newTestFeed(t, fetcher)
	f.Start(context.Background())
	require.Eventually(t, func() bool { return fetcher.callCount() == 1 }, time.Second, time.Millisecond)

	dialer.results <- dialResult{err: errors.New("refused")}
	require.Eventually(t, func() bool {
		return len(sched.reconnectDelays(testPoll)) == 1
	}, time.Second, time.Millisecond)

	sched.mu.Lock()
	all := append([]*fakeTimer(nil), sched.timers...)
	sched.mu.Unlock()

	f.Close()
	assert.Equal(t, StatusDisconnected, f.Status())
	for _, tm := range all {
		assert.True(t, tm.stopped, "timer %v still pending", tm.d)
	}

	// A callback that slipped past Stop must still be a no-op.
	for _, tm := range all {
		tm.fn()
	}
	assert.Equal(t, 1, dialer.dialCount())
	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, StatusDisconnected, f.Status())
	assert.Equal(t, len(all), sched.count())
}

func TestCloseImmediatelyAfterDisconnect(t *testing.T) {
	f, dialer, sched := newTestFeed(t, nil)
	conn := newFakeConn()
	f.Connect(context.Background())
	dialer.results <- dialResult{conn: conn}
	waitStatus(t, f, StatusConnected)

	conn.Close()
	f.Close()

	before := sched.count()
	sched.mu.Lock()
	timers := append([]*fakeTimer(nil), sched.timers...)
	sched.mu.Unlock()
	for _, tm := range timers {
		tm.fn()
	}
	assert.Equal(t, 1, dialer.dialCount())
	assert.Equal(t, before, sched.count())
	assert.Equal(t, StatusDisconnected, f.Status())
}

func TestCloseDuringDial(t *testing.T) {
	f, dialer, sched := newTestFeed(t, nil)
	f.Connect(context.Background())
	require.Eventually(t, func() bool { return dialer.dialCount() == 1 }, time.Second, time.Millisecond)

	f.Close()
	assert.Equal(t, 0, sched.count())
	assert.Equal(t, StatusDisconnected, f.Status())
}

func TestUpdatesSignalsChanges(t *testing.T) {
	f, dialer, _ := newTestFeed(t, nil)
	f.Connect(context.Background())
	dialer.results <- dialResult{conn: newFakeConn()}

	select {
	case <-f.Updates():
	case <-time.After(time.Second):
		t.Fatal("no update signalled")
	}
}

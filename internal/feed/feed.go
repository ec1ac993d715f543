// Package feed maintains a live activity feed: a persistent push channel
// with exponential-backoff reconnects, a bounded de-duplicating buffer,
// and a polling fallback that runs only while push is down.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/docflow/internal/model"
)

// Status is the client-observed state of the push channel.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDisconnected Status = "disconnected"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultMaxActivities = 50
	DefaultPollInterval  = 30 * time.Second
	DefaultInitialLimit  = 20
)

// Config wires a Feed to its endpoints and collaborators.
type Config struct {
	// URL is the push channel endpoint.
	URL string

	// Token authenticates both the push channel and fetches.
	Token string

	MaxActivities int
	PollInterval  time.Duration
	InitialLimit  int

	Dialer    Dialer
	Fetcher   Fetcher
	Scheduler Scheduler
	Logger    *slog.Logger
}

// Feed is a live activity feed owned by a single consumer.
type Feed struct {
	cfg    Config
	log    *slog.Logger
	sched  Scheduler
	dialer Dialer

	mu         sync.Mutex
	buf        *Buffer
	status     Status
	attempts   int
	connErr    error
	loadErr    error
	ctx        context.Context
	cancel     context.CancelFunc
	conn       Conn
	connecting bool
	cancelConn context.CancelFunc
	retryTimer Timer
	pollTimer  Timer
	started    bool
	closed     bool

	updates chan struct{}
	wg      sync.WaitGroup
}

// New returns an idle feed. Nothing happens until Start or Connect.
func New(cfg Config) *Feed {
	if cfg.MaxActivities <= 0 {
		cfg.MaxActivities = DefaultMaxActivities
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.InitialLimit <= 0 {
		cfg.InitialLimit = DefaultInitialLimit
	}
	f := &Feed{
		cfg:     cfg,
		log:     cfg.Logger,
		sched:   cfg.Scheduler,
		dialer:  cfg.Dialer,
		buf:     NewBuffer(cfg.MaxActivities),
		status:  StatusDisconnected,
		updates: make(chan struct{}, 1),
	}
	if f.log == nil {
		f.log = slog.Default()
	}
	if f.sched == nil {
		f.sched = realScheduler{}
	}
	if f.dialer == nil {
		f.dialer = WSDialer{}
	}
	return f
}

// Start begins the initial load, the push connection and the fallback
// poller. They run independently: a failed load is reported through
// LoadErr and does not hold back the connection.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.started || f.closed {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.bindContextLocked(ctx)
	f.schedulePollLocked()
	if f.cfg.Fetcher != nil {
		loadCtx := f.ctx
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.load(loadCtx)
		}()
	}
	f.mu.Unlock()

	f.Connect(ctx)
}

// Connect starts a connection attempt in the background. It does nothing
// if a connection is open or in progress, a reconnect is pending, or the
// feed is closed.
func (f *Feed) Connect(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.conn != nil || f.connecting || f.retryTimer != nil {
		return
	}
	f.bindContextLocked(ctx)
	f.connecting = true
	if f.attempts == 0 {
		f.setStatusLocked(StatusConnecting)
	}

	connCtx, cancel := context.WithCancel(f.ctx)
	f.cancelConn = cancel
	f.wg.Add(1)
	go f.run(connCtx)
}

func (f *Feed) bindContextLocked(ctx context.Context) {
	if f.ctx == nil {
		f.ctx, f.cancel = context.WithCancel(ctx)
	}
}

func (f *Feed) run(ctx context.Context) {
	defer f.wg.Done()

	conn, err := f.dialer.Dial(ctx, f.cfg.URL, f.cfg.Token)
	if err != nil {
		f.handleClose(err)
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.conn = conn
	f.connecting = false
	f.attempts = 0
	f.connErr = nil
	f.setStatusLocked(StatusConnected)
	f.mu.Unlock()
	f.log.Info("feed connected", "url", f.cfg.URL)

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			conn.Close()
			f.handleClose(err)
			return
		}
		f.handleMessage(data)
	}
}

// handleClose schedules a reconnect with backoff unless the feed was torn
// down.
func (f *Feed) handleClose(cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.conn = nil
	f.connecting = false
	if f.cancelConn != nil {
		f.cancelConn()
		f.cancelConn = nil
	}
	if f.closed {
		return
	}
	if f.ctx.Err() != nil {
		f.setStatusLocked(StatusDisconnected)
		return
	}

	f.connErr = cause
	f.setStatusLocked(StatusReconnecting)
	delay := Delay(f.attempts)
	f.retryTimer = f.sched.AfterFunc(delay, f.reconnect)
	f.log.Info("feed disconnected, reconnect scheduled",
		"attempt", f.attempts+1, "delay", delay, "error", cause)
}

func (f *Feed) reconnect() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.retryTimer = nil
	f.attempts++
	ctx := f.ctx
	f.mu.Unlock()

	f.Connect(ctx)
}

func (f *Feed) handleMessage(data []byte) {
	var msg model.PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		f.log.Warn("feed: malformed message", "error", err)
		return
	}

	switch msg.Type {
	case model.MessageEvent, model.MessageActivity:
		var a model.Activity
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			f.log.Warn("feed: malformed event", "error", err)
			return
		}
		if a.ID == "" {
			f.log.Warn("feed: event without id dropped")
			return
		}
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return
		}
		f.buf.Push(a)
		f.mu.Unlock()
		f.notify()
	case model.MessageError:
		f.log.Warn("feed: server error", "message", msg.Message)
	case model.MessageReady, model.MessagePing, model.MessagePong:
		f.log.Debug("feed: control message", "type", msg.Type)
	default:
		f.log.Debug("feed: unknown message type ignored", "type", msg.Type)
	}
}

func (f *Feed) schedulePollLocked() {
	if f.closed {
		return
	}
	f.pollTimer = f.sched.AfterFunc(f.cfg.PollInterval, f.pollTick)
}

func (f *Feed) pollTick() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.wg.Add(1)
	ctx := f.ctx
	f.mu.Unlock()

	f.PollOnce(ctx)
	f.wg.Done()

	f.mu.Lock()
	f.schedulePollLocked()
	f.mu.Unlock()
}

// PollOnce refetches the activity list and replaces the buffer with it,
// unless the push channel is connected. It reports whether a fetch ran.
func (f *Feed) PollOnce(ctx context.Context) bool {
	f.mu.Lock()
	skip := f.closed || f.status == StatusConnected || f.cfg.Fetcher == nil
	f.mu.Unlock()
	if skip {
		return false
	}

	items, err := f.cfg.Fetcher.Fetch(ctx, f.cfg.MaxActivities)
	if err != nil {
		f.log.Warn("feed: poll failed", "error", err)
		return true
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return true
	}
	f.buf.Replace(items)
	f.loadErr = nil
	f.mu.Unlock()
	f.notify()
	return true
}

// Reload retries the initial load. Its error is also kept in LoadErr.
func (f *Feed) Reload(ctx context.Context) error {
	if f.cfg.Fetcher == nil {
		return errors.New("feed has no fetcher")
	}
	return f.load(ctx)
}

// load merges the fetched list behind whatever push already delivered.
func (f *Feed) load(ctx context.Context) error {
	items, err := f.cfg.Fetcher.Fetch(ctx, f.cfg.InitialLimit)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return err
	}
	if err != nil {
		f.loadErr = err
	} else {
		f.loadErr = nil
		f.buf.Merge(items)
	}
	f.mu.Unlock()

	if err != nil {
		f.log.Warn("feed: initial load failed", "error", err)
	}
	f.notify()
	return err
}

// Close tears the feed down: the pending reconnect and poll timers are
// cancelled, the connection is closed, and no callback runs afterwards.
// It waits for background work to finish.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	if f.retryTimer != nil {
		f.retryTimer.Stop()
		f.retryTimer = nil
	}
	if f.pollTimer != nil {
		f.pollTimer.Stop()
		f.pollTimer = nil
	}
	if f.cancelConn != nil {
		f.cancelConn()
	}
	if f.cancel != nil {
		f.cancel()
	}
	conn := f.conn
	f.conn = nil
	f.setStatusLocked(StatusDisconnected)
	f.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	f.wg.Wait()
	f.notify()
}

func (f *Feed) setStatusLocked(s Status) {
	if f.status == s {
		return
	}
	f.status = s
	select {
	case f.updates <- struct{}{}:
	default:
	}
}

// notify signals Updates without blocking; pending signals coalesce.
func (f *Feed) notify() {
	select {
	case f.updates <- struct{}{}:
	default:
	}
}

// Updates signals whenever the buffer, status or errors may have changed.
// Signals coalesce; read the current state with the accessors.
func (f *Feed) Updates() <-chan struct{} {
	return f.updates
}

// Activities returns a snapshot of the buffer, newest first.
func (f *Feed) Activities() []model.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.Items()
}

// Status returns the current connection status.
func (f *Feed) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Attempts returns the number of consecutive failed connection cycles.
func (f *Feed) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// ConnErr returns the error that ended the last connection, cleared on
// the next successful open.
func (f *Feed) ConnErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connErr
}

// LoadErr returns the error of the last initial load, if it failed.
func (f *Feed) LoadErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadErr
}

// Package panel implements the load and optimistic-mutation state machine
// shared by the dashboard views.
package panel

import (
	"fmt"
	"sync"
)

// State is the load state of a panel.
type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Mutation is an optimistic change in flight. Pass it to Settle once the
// backing call returns.
type Mutation[S any] struct {
	Key string
	seq uint64
}

type change[S any] struct {
	seq   uint64
	apply func(S) S
}

// Panel holds a value of type S that is loaded and then changed
// optimistically. The shown value is the last loaded one with every
// pending change replayed over it, so a reload or a failed change never
// drops another change that is still in flight. Each mutation is keyed; a
// second mutation on a key that is still in flight is refused. Panel is
// safe for concurrent use.
type Panel[S any] struct {
	mu       sync.Mutex
	state    State
	base     S
	value    S
	pending  []change[S]
	seq      uint64
	loadErr  error
	notice   string
	inFlight map[string]bool
	clone    func(S) S
}

// New returns a panel in the Loading state. clone deep-copies a value so
// that changes never touch the loaded one; nil means S is copied by
// assignment.
func New[S any](clone func(S) S) *Panel[S] {
	if clone == nil {
		clone = func(s S) S { return s }
	}
	return &Panel[S]{state: Loading, inFlight: make(map[string]bool), clone: clone}
}

// Loading marks a (re)load in progress.
func (p *Panel[S]) Loading() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Loading
	p.loadErr = nil
}

// Loaded stores the loaded value and moves to Ready. Pending changes are
// replayed over it.
func (p *Panel[S]) Loaded(v S) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Ready
	p.base = v
	p.value = p.replayLocked()
	p.loadErr = nil
}

// Failed records a load failure.
func (p *Panel[S]) Failed(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Failed
	p.loadErr = err
}

// Retry moves a failed panel back to Loading. It reports whether the
// caller should reload.
func (p *Panel[S]) Retry() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Failed {
		return false
	}
	p.state = Loading
	p.loadErr = nil
	return true
}

// Begin applies an optimistic change under key. It returns false, and
// changes nothing, when the panel is not Ready or key is already in
// flight. apply may modify its argument; it receives a copy.
func (p *Panel[S]) Begin(key string, apply func(S) S) (Mutation[S], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Ready || p.inFlight[key] {
		return Mutation[S]{}, false
	}
	p.seq++
	m := Mutation[S]{Key: key, seq: p.seq}
	p.inFlight[key] = true
	p.pending = append(p.pending, change[S]{seq: m.seq, apply: apply})
	p.value = apply(p.clone(p.value))
	p.notice = ""
	return m, true
}

// Settle finishes m. On success the change becomes part of the loaded
// value. On error only this change is withdrawn, the others still pending
// stay applied, and a notice is set.
func (p *Panel[S]) Settle(m Mutation[S], err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, m.Key)

	var done *change[S]
	for i := range p.pending {
		if p.pending[i].seq == m.seq {
			c := p.pending[i]
			done = &c
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}
	if done == nil {
		return
	}
	if err != nil {
		p.notice = err.Error()
	} else {
		p.base = done.apply(p.clone(p.base))
	}
	p.value = p.replayLocked()
}

func (p *Panel[S]) replayLocked() S {
	v := p.clone(p.base)
	for _, c := range p.pending {
		v = c.apply(p.clone(v))
	}
	return v
}

// State returns the load state.
func (p *Panel[S]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Value returns a copy of the current value.
func (p *Panel[S]) Value() S {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clone(p.value)
}

// Err returns the last load error.
func (p *Panel[S]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

// Notice returns the message of the last failed mutation.
func (p *Panel[S]) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notice
}

// ClearNotice dismisses the notice.
func (p *Panel[S]) ClearNotice() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice = ""
}

// InFlight reports whether a mutation on key is pending.
func (p *Panel[S]) InFlight(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight[key]
}

// Mutating reports whether any mutation is pending.
func (p *Panel[S]) Mutating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight) > 0
}

// CloneSlice is a clone func for slices of plain values.
func CloneSlice[E any](s []E) []E {
	if s == nil {
		return nil
	}
	out := make([]E, len(s))
	copy(out, s)
	return out
}

package treestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"meetup/internal/domain/repository"
)

// ErrTooManyRetries is returned when a transaction keeps conflicting.
var ErrTooManyRetries = errors.New("treestore: transaction retried too many times")

const (
	defaultMaxRetries = 100
	writeLogSize      = 4096
)

type writeRecord struct {
	version uint64
	segs    []string
}

// Memory is an in-process tree store with the same semantics as the hosted
// database: optimistic transactions that re-run the handler on conflicting
// writes, atomic multi-path updates and child/value subscriptions. It backs
// development mode and tests.
type Memory struct {
	mu         sync.Mutex
	root       interface{}
	version    uint64
	writeLog   []writeRecord
	subs       map[int]*subscription
	nextSubID  int
	maxRetries int
}

func NewMemory() *Memory {
	return &Memory{
		subs:       make(map[int]*subscription),
		maxRetries: defaultMaxRetries,
	}
}

func (m *Memory) Get(ctx context.Context, path string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return deepCopy(valueAt(m.root, SplitPath(path))), nil
}

func (m *Memory) Set(ctx context.Context, path string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	norm, err := Normalize(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(SplitPath(path), norm)
	return nil
}

func (m *Memory) Remove(ctx context.Context, path string) error {
	return m.Set(ctx, path, nil)
}

func (m *Memory) Update(ctx context.Context, values map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	type write struct {
		segs  []string
		value interface{}
	}
	writes := make([]write, 0, len(values))
	for p, v := range values {
		norm, err := Normalize(v)
		if err != nil {
			return fmt.Errorf("update %s: %w", p, err)
		}
		segs := SplitPath(p)
		for _, w := range writes {
			if overlaps(w.segs, segs) {
				return fmt.Errorf("update: overlapping paths %q and %q", JoinPath(w.segs...), p)
			}
		}
		writes = append(writes, write{segs: segs, value: norm})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range writes {
		m.apply(w.segs, w.value)
	}
	return nil
}

func (m *Memory) Transaction(ctx context.Context, path string, fn repository.TransactionFunc) (interface{}, error) {
	segs := SplitPath(path)
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.mu.Lock()
		current := deepCopy(valueAt(m.root, segs))
		seen := m.version
		m.mu.Unlock()

		next, err := fn(deepCopy(current))
		if errors.Is(err, repository.ErrAbortTransaction) {
			return current, nil
		}
		if err != nil {
			return nil, err
		}
		norm, err := Normalize(next)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		if m.conflicts(seen, segs) {
			m.mu.Unlock()
			continue
		}
		m.apply(segs, norm)
		m.mu.Unlock()
		return deepCopy(norm), nil
	}
	return nil, ErrTooManyRetries
}

func (m *Memory) QueryByChild(ctx context.Context, path, child string, value interface{}) (map[string]interface{}, error) {
	node, err := m.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{})
	children, _ := node.(map[string]interface{})
	for k, v := range children {
		if childEquals(v, child, value) {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Memory) Subscribe(ctx context.Context, path string, mode repository.SubscribeMode) (<-chan repository.ChangeEvent, error) {
	segs := SplitPath(path)
	sub := &subscription{
		path:  JoinPath(segs...),
		segs:  segs,
		mode:  mode,
		queue: newEventQueue(),
	}

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = sub
	current := deepCopy(valueAt(m.root, segs))
	// Initial delivery mirrors the hosted database: existing children are
	// reported as added, a value subscription reports the current value.
	sub.queue.push(Diff(sub.path, mode, nil, current)...)
	sub.last = current
	m.mu.Unlock()

	out := make(chan repository.ChangeEvent)
	go sub.queue.pump(ctx, out)
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
		sub.queue.close()
	}()
	return out, nil
}

// apply writes value at segs and notifies overlapping subscriptions.
// Callers hold m.mu.
func (m *Memory) apply(segs []string, value interface{}) {
	m.root = withValue(m.root, segs, deepCopy(value))
	m.version++
	m.writeLog = append(m.writeLog, writeRecord{version: m.version, segs: segs})
	if len(m.writeLog) > writeLogSize {
		m.writeLog = m.writeLog[len(m.writeLog)-writeLogSize:]
	}

	for _, sub := range m.subs {
		if !overlaps(sub.segs, segs) {
			continue
		}
		now := deepCopy(valueAt(m.root, sub.segs))
		sub.queue.push(Diff(sub.path, sub.mode, sub.last, now)...)
		sub.last = now
	}
}

// conflicts reports whether a write overlapping segs happened after version
// seen. Callers hold m.mu.
func (m *Memory) conflicts(seen uint64, segs []string) bool {
	if seen == m.version {
		return false
	}
	if len(m.writeLog) == 0 || m.writeLog[0].version > seen+1 {
		// the log no longer reaches back far enough to tell
		return true
	}
	for i := len(m.writeLog) - 1; i >= 0; i-- {
		w := m.writeLog[i]
		if w.version <= seen {
			break
		}
		if overlaps(w.segs, segs) {
			return true
		}
	}
	return false
}

type subscription struct {
	path  string
	segs  []string
	mode  repository.SubscribeMode
	last  interface{}
	queue *eventQueue
}

// eventQueue decouples writers from slow subscribers: pushes never block.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []repository.ChangeEvent
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(events ...repository.ChangeEvent) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, events...)
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *eventQueue) pump(ctx context.Context, out chan<- repository.ChangeEvent) {
	defer close(out)
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		ev := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

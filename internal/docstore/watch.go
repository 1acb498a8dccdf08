package docstore

import "sync"

// Hub fans query results out to live watchers. Backends call Broadcast
// while holding their write lock so every watcher sees commits in order.
type Hub struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	closed   bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{watchers: make(map[*watcher]struct{})}
}

// Register starts a watcher whose first event is initial.
func (h *Hub) Register(q Query, initial []Document) (Watcher, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	w := &watcher{
		hub:    h,
		query:  q,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		out:    make(chan Event),
	}
	w.push(Event{Docs: CloneDocs(initial)})
	h.watchers[w] = struct{}{}
	go w.pump()
	return w, nil
}

// Broadcast re-runs the query of every watcher on collection through
// evaluate and queues the result. An empty collection selects every
// watcher. An evaluation error is terminal for that watcher.
func (h *Hub) Broadcast(collection string, evaluate func(Query) ([]Document, error)) {
	for _, w := range h.snapshot() {
		if collection != "" && w.query.Collection != collection {
			continue
		}
		docs, err := evaluate(w.query)
		if err != nil {
			w.push(Event{Err: err})
			h.remove(w)
			continue
		}
		w.push(Event{Docs: CloneDocs(docs)})
	}
}

// Len reports the number of live watchers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}

// Close ends every watcher with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	watchers := h.watchers
	h.watchers = make(map[*watcher]struct{})
	h.mu.Unlock()

	for w := range watchers {
		w.push(Event{Err: ErrClosed})
	}
}

func (h *Hub) snapshot() []*watcher {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := make([]*watcher, 0, len(h.watchers))
	for w := range h.watchers {
		list = append(list, w)
	}
	return list
}

func (h *Hub) remove(w *watcher) {
	h.mu.Lock()
	delete(h.watchers, w)
	h.mu.Unlock()
}

// watcher buffers events in an unbounded mailbox so store writers never
// block on a slow reader.
type watcher struct {
	hub   *Hub
	query Query

	mu    sync.Mutex
	queue []Event
	done  bool

	notify   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	out      chan Event
}

func (w *watcher) Events() <-chan Event { return w.out }

func (w *watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.hub.remove(w)
	})
}

func (w *watcher) push(ev Event) {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, ev)
	if ev.Err != nil {
		w.done = true
	}
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *watcher) pump() {
	defer close(w.out)
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			done := w.done
			w.mu.Unlock()
			if done {
				return
			}
			select {
			case <-w.notify:
				continue
			case <-w.stop:
				return
			}
		}
		ev := w.queue[0]
		w.queue[0] = Event{}
		w.queue = w.queue[1:]
		w.mu.Unlock()

		select {
		case w.out <- ev:
		case <-w.stop:
			return
		}
	}
}

package dispatch

import (
	"context"
	"sync"
)

// Mux is an in-process Dispatcher. Safe for concurrent use.
//
// Dispatch runs each matching handler on its own goroutine and returns
// without waiting; handler errors end at the handler boundary. Callers
// that need delivery to settle (tests, shutdown) can use Wait.
type Mux struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[EventType]map[uint64]Handler
	wg     sync.WaitGroup
}

var _ Dispatcher = (*Mux)(nil)

func NewMux() *Mux {
	return &Mux{subs: make(map[EventType]map[uint64]Handler)}
}

func (m *Mux) Subscribe(t EventType, h Handler) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	if m.subs[t] == nil {
		m.subs[t] = make(map[uint64]Handler)
	}
	m.subs[t][id] = h
	return &muxSub{mux: m, t: t, id: id}
}

// Dispatch delivers ev to every handler subscribed to ev.Type().
// Fire-and-forget: handlers run concurrently with the caller.
func (m *Mux) Dispatch(ctx context.Context, ev Event) {
	m.mu.Lock()
	handlers := make([]Handler, 0, len(m.subs[ev.Type()]))
	for _, h := range m.subs[ev.Type()] {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h := h
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			_ = h(ctx, ev)
		}()
	}
}

// Wait blocks until every handler goroutine started so far has returned.
func (m *Mux) Wait() { m.wg.Wait() }

type muxSub struct {
	mux  *Mux
	t    EventType
	id   uint64
	once sync.Once
}

func (s *muxSub) Cancel() {
	s.once.Do(func() {
		s.mux.mu.Lock()
		if hs, ok := s.mux.subs[s.t]; ok {
			delete(hs, s.id)
			if len(hs) == 0 {
				delete(s.mux.subs, s.t)
			}
		}
		s.mux.mu.Unlock()
	})
}

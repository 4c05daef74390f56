package auth

type EventKind int

const (
	SignedIn EventKind = iota
	SignedOut
)

func (k EventKind) String() string {
	if k == SignedIn {
		return "signed_in"
	}
	return "signed_out"
}

// Event reports a session change. SessionID is the token hash, never the
// token itself.
type Event struct {
	Kind      EventKind
	SessionID string
	UID       string
}

// Subscribe registers fn for every later session event. Handlers run on the
// goroutine that caused the event and must not block. The returned func
// removes the subscription and may be called more than once.
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) publish(ev Event) {
	s.mu.RLock()
	handlers := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

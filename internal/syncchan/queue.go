package syncchan

import "sync"

// subscriber delivers events to one handler on its own goroutine, in the
// order they were queued. deliver never blocks.
type subscriber struct {
	path    string
	handler Handler

	mu      sync.Mutex
	pending []Event

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscriber(path string, h Handler) *subscriber {
	s := &subscriber{
		path:    path,
		handler: h,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscriber) deliver(ev Event) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			select {
			case <-s.done:
				return
			default:
			}
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			s.handler(ev)
		}
	}
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

package property

import "sync"

// Subscription cancels an observer registration. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Observable is a push-based, synchronous value sequence.
type Observable[T any] interface {
	Subscribe(fn func(T)) Subscription
}

// ObservableFunc adapts a function to Observable.
type ObservableFunc[T any] func(fn func(T)) Subscription

// Subscribe calls f.
func (f ObservableFunc[T]) Subscribe(fn func(T)) Subscription {
	return f(fn)
}

type onceSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *onceSubscription) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// NewSubscription returns a Subscription that runs cancel at most once.
// A nil cancel yields a no-op subscription.
func NewSubscription(cancel func()) Subscription {
	return &onceSubscription{cancel: cancel}
}

type observer[T any] struct {
	id int
	fn func(T)
}

// Subject is a multicast Observable. Observers run synchronously, in
// subscription order, on the goroutine that calls Publish.
type Subject[T any] struct {
	mu        sync.Mutex
	nextID    int
	observers []observer[T]
}

// NewSubject returns an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe registers fn and returns the Subscription that removes it.
func (s *Subject[T]) Subscribe(fn func(T)) Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, observer[T]{id: id, fn: fn})
	s.mu.Unlock()

	return NewSubscription(func() { s.remove(id) })
}

func (s *Subject[T]) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Publish delivers v to a snapshot of the current observers, so observers may
// subscribe or cancel from inside their callback.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	snapshot := make([]observer[T], len(s.observers))
	copy(snapshot, s.observers)
	s.mu.Unlock()

	for _, o := range snapshot {
		o.fn(v)
	}
}

// HasObservers reports whether any observer is subscribed.
func (s *Subject[T]) HasObservers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers) > 0
}

// Just returns an Observable that emits values synchronously to each new
// subscriber and then stays silent.
func Just[T any](values ...T) Observable[T] {
	return ObservableFunc[T](func(fn func(T)) Subscription {
		for _, v := range values {
			fn(v)
		}
		return NewSubscription(nil)
	})
}

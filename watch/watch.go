package watch

import (
	"sync"

	events "github.com/docker/go-events"
)

// Queue is the structure used to publish events and watch for them.
type Queue struct {
	mu          sync.Mutex
	broadcast   *events.Broadcaster
	cancelFuncs map[events.Sink]func()
}

// NewQueue creates a new publish/subscribe queue which supports watchers.
// Every watcher gets its own unbounded in-memory queue, so a slow watcher
// never blocks publishers.
func NewQueue() *Queue {
	return &Queue{
		broadcast:   events.NewBroadcaster(),
		cancelFuncs: make(map[events.Sink]func()),
	}
}

// Watch returns a channel which will receive all items published to the
// queue from this point, until cancel is called.
func (q *Queue) Watch() (eventq chan events.Event, cancel func()) {
	return q.CallbackWatch(nil)
}

// CallbackWatch returns a channel which will receive all events published to
// the queue from this point that pass the check in the provided callback
// function. The returned cancel function will stop the flow of events.
func (q *Queue) CallbackWatch(matcher events.Matcher) (eventq chan events.Event, cancel func()) {
	ch := events.NewChannel(0)
	queue := events.NewQueue(ch)
	sink := events.Sink(queue)
	if matcher != nil {
		sink = events.NewFilter(sink, matcher)
	}

	q.broadcast.Add(sink)

	var closeOnce sync.Once
	cancelFunc := func() {
		closeOnce.Do(func() {
			q.broadcast.Remove(sink)
			ch.Close()
			queue.Close()
		})
	}

	q.mu.Lock()
	q.cancelFuncs[sink] = cancelFunc
	q.mu.Unlock()

	return ch.C, func() {
		q.mu.Lock()
		cancelFunc := q.cancelFuncs[sink]
		delete(q.cancelFuncs, sink)
		q.mu.Unlock()

		if cancelFunc != nil {
			cancelFunc()
		}
	}
}

// Publish adds an item to the queue.
func (q *Queue) Publish(item events.Event) {
	q.broadcast.Write(item)
}

// Close closes the queue and frees the associated resources.
func (q *Queue) Close() error {
	q.mu.Lock()
	for _, cancelFunc := range q.cancelFuncs {
		cancelFunc()
	}
	q.cancelFuncs = make(map[events.Sink]func())
	q.mu.Unlock()

	return q.broadcast.Close()
}

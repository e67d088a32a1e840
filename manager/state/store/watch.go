package store

import (
	events "github.com/docker/go-events"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/watch"
)

// Matcher returns an events.Matcher that Matches the specifiers with OR logic.
func Matcher(specifiers ...api.Event) events.MatcherFunc {
	return events.MatcherFunc(func(event events.Event) bool {
		for _, s := range specifiers {
			if s.Matches(event) {
				return true
			}
		}
		return false
	})
}

// Watch takes a variable number of events to match against. The subscriber
// will receive events that match any of the arguments passed to Watch.
//
// Examples:
//
// // subscribe to all events
// Watch(q)
//
// // subscribe to all port creation events
// Watch(q, api.EventCreate{Object: &api.Port{}})
//
// // subscribe to changes of one binding result
// Watch(q,
//
//	api.EventUpdate{Object: &api.BindingResult{PortID: "p1", Host: "h1"}},
//	api.EventDelete{Object: &api.BindingResult{PortID: "p1", Host: "h1"}})
func Watch(queue *watch.Queue, specifiers ...api.Event) (eventq chan events.Event, cancel func()) {
	if len(specifiers) == 0 {
		return queue.Watch()
	}
	return queue.CallbackWatch(Matcher(specifiers...))
}

// ViewAndWatch calls a callback which can observe the state of this
// MemoryStore. It also returns a channel that will return further events
// from this point so the snapshot can be kept up to date. The watch channel
// must be released with the returned cancel function when it's no longer
// needed. The channel is guaranteed to get all events after the moment of
// the snapshot, and only those events.
func ViewAndWatch(store *MemoryStore, cb func(ReadTx) error, specifiers ...api.Event) (watch chan events.Event, cancel func(), err error) {
	// Using Update to lock the store and guarantee consistency between
	// the watcher and the state seen by the callback. cb only gets the
	// ReadTx side of the transaction.
	err = store.Update(func(tx Tx) error {
		if err := cb(tx); err != nil {
			return err
		}
		watch, cancel = Watch(store.WatchQueue(), specifiers...)
		return nil
	})
	if watch != nil && err != nil {
		cancel()
		cancel = nil
		watch = nil
	}
	return
}

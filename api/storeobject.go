package api

import (
	"fmt"

	events "github.com/docker/go-events"
)

// Event is the type used for events passed over watcher channels, and also
// the type used to specify filtering in calls to Watch.
type Event interface {
	// Matches checks if this item in a watch queue matches the event
	// description.
	Matches(events.Event) bool
}

// EventCreate is published when an object is created. As a watch filter, a
// nil Object matches every creation, an Object with an empty ID matches
// creations of that kind, and a full Object matches that object only.
type EventCreate struct {
	Object StoreObject
}

// Matches implements Event.
func (e EventCreate) Matches(apiEvent events.Event) bool {
	typedEvent, ok := apiEvent.(EventCreate)
	if !ok {
		return false
	}
	return matchObject(e.Object, typedEvent.Object)
}

// EventUpdate is published when an object is updated. OldObject holds the
// object as it was before the update.
type EventUpdate struct {
	Object    StoreObject
	OldObject StoreObject
}

// Matches implements Event.
func (e EventUpdate) Matches(apiEvent events.Event) bool {
	typedEvent, ok := apiEvent.(EventUpdate)
	if !ok {
		return false
	}
	return matchObject(e.Object, typedEvent.Object)
}

// EventDelete is published when an object is removed.
type EventDelete struct {
	Object StoreObject
}

// Matches implements Event.
func (e EventDelete) Matches(apiEvent events.Event) bool {
	typedEvent, ok := apiEvent.(EventDelete)
	if !ok {
		return false
	}
	return matchObject(e.Object, typedEvent.Object)
}

// EventCommit delineates a transaction boundary.
type EventCommit struct {
	Version *Version
}

// Matches implements Event.
func (e EventCommit) Matches(watchEvent events.Event) bool {
	_, ok := watchEvent.(EventCommit)
	return ok
}

func matchObject(filter, obj StoreObject) bool {
	if filter == nil {
		return true
	}
	if obj == nil || filter.Kind() != obj.Kind() {
		return false
	}
	return filter.GetID() == "" || filter.GetID() == obj.GetID()
}

// StoreActionKind defines the operation to take on the store for the target
// of a storage action.
type StoreActionKind int

const (
	StoreActionKindUnknown StoreActionKind = iota
	StoreActionKindCreate
	StoreActionKindUpdate
	StoreActionKindRemove
)

func (k StoreActionKind) String() string {
	switch k {
	case StoreActionKindCreate:
		return "create"
	case StoreActionKindUpdate:
		return "update"
	case StoreActionKindRemove:
		return "remove"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// StoreAction is one change of a committed transaction, as handed to a
// proposer.
type StoreAction struct {
	Action StoreActionKind
	Target StoreObject
}

// StoreSnapshot is the full content of a store.
type StoreSnapshot struct {
	Networks       []*Network       `json:"networks,omitempty"`
	Ports          []*Port          `json:"ports,omitempty"`
	Segments       []*Segment       `json:"segments,omitempty"`
	PortBindings   []*PortBinding   `json:"port_bindings,omitempty"`
	BindingResults []*BindingResult `json:"binding_results,omitempty"`
	BindingLevels  []*BindingLevel  `json:"binding_levels,omitempty"`
}

// Add appends obj to the matching list of the snapshot.
func (s *StoreSnapshot) Add(obj StoreObject) error {
	switch v := obj.(type) {
	case *Network:
		s.Networks = append(s.Networks, v)
	case *Port:
		s.Ports = append(s.Ports, v)
	case *Segment:
		s.Segments = append(s.Segments, v)
	case *PortBinding:
		s.PortBindings = append(s.PortBindings, v)
	case *BindingResult:
		s.BindingResults = append(s.BindingResults, v)
	case *BindingLevel:
		s.BindingLevels = append(s.BindingLevels, v)
	default:
		return fmt.Errorf("unknown object type %T", obj)
	}
	return nil
}

package api

import "fmt"

// StoreObject is an object that can be handled by the store.
type StoreObject interface {
	GetID() string                // Get ID
	GetMeta() Meta                // Retrieve metadata
	SetMeta(Meta)                 // Set metadata
	CopyStoreObject() StoreObject // Return a deep copy of this object
	Kind() string                 // Name of the table holding this kind of object
}

// Object kinds, one per store table.
const (
	KindNetwork       = "network"
	KindPort          = "port"
	KindSegment       = "segment"
	KindPortBinding   = "port_binding"
	KindBindingResult = "binding_result"
	KindBindingLevel  = "binding_level"
)

// KeySeparator separates the components of composite keys. Store create and
// update operations reject IDs and host names containing it.
const KeySeparator = "\x00"

// BindingKey returns the store ID of the binding result of a port on a host.
func BindingKey(portID, host string) string {
	return portID + KeySeparator + host
}

// BindingKeyPrefix returns the prefix shared by the store IDs of every
// binding result and level of a port.
func BindingKeyPrefix(portID string) string {
	return portID + KeySeparator
}

// LevelKey returns the store ID of a binding level. Levels of the same
// binding sort by level number.
func LevelKey(portID, host string, level int32) string {
	return fmt.Sprintf("%s%s%s%s%010d", portID, KeySeparator, host, KeySeparator, level)
}

// LevelKeyPrefix returns the prefix shared by the store IDs of the levels of
// one (port, host) binding.
func LevelKeyPrefix(portID, host string) string {
	return portID + KeySeparator + host + KeySeparator
}

// Copy returns a deep copy of the network.
func (m *Network) Copy() *Network {
	if m == nil {
		return nil
	}
	o := *m
	return &o
}

func (m *Network) GetID() string                { return m.ID }
func (m *Network) GetMeta() Meta                { return m.Meta }
func (m *Network) SetMeta(meta Meta)            { m.Meta = meta }
func (m *Network) CopyStoreObject() StoreObject { return m.Copy() }
func (m *Network) Kind() string                 { return KindNetwork }

// Copy returns a deep copy of the port.
func (m *Port) Copy() *Port {
	if m == nil {
		return nil
	}
	o := *m
	return &o
}

func (m *Port) GetID() string                { return m.ID }
func (m *Port) GetMeta() Meta                { return m.Meta }
func (m *Port) SetMeta(meta Meta)            { m.Meta = meta }
func (m *Port) CopyStoreObject() StoreObject { return m.Copy() }
func (m *Port) Kind() string                 { return KindPort }

// Copy returns a deep copy of the segment.
func (m *Segment) Copy() *Segment {
	if m == nil {
		return nil
	}
	o := *m
	if m.SegmentationID != nil {
		id := *m.SegmentationID
		o.SegmentationID = &id
	}
	return &o
}

func (m *Segment) GetID() string                { return m.ID }
func (m *Segment) GetMeta() Meta                { return m.Meta }
func (m *Segment) SetMeta(meta Meta)            { m.Meta = meta }
func (m *Segment) CopyStoreObject() StoreObject { return m.Copy() }
func (m *Segment) Kind() string                 { return KindSegment }

// Copy returns a deep copy of the port binding.
func (m *PortBinding) Copy() *PortBinding {
	if m == nil {
		return nil
	}
	o := *m
	return &o
}

func (m *PortBinding) GetID() string                { return m.PortID }
func (m *PortBinding) GetMeta() Meta                { return m.Meta }
func (m *PortBinding) SetMeta(meta Meta)            { m.Meta = meta }
func (m *PortBinding) CopyStoreObject() StoreObject { return m.Copy() }
func (m *PortBinding) Kind() string                 { return KindPortBinding }

// Copy returns a deep copy of the binding result.
func (m *BindingResult) Copy() *BindingResult {
	if m == nil {
		return nil
	}
	o := *m
	return &o
}

func (m *BindingResult) GetID() string                { return BindingKey(m.PortID, m.Host) }
func (m *BindingResult) GetMeta() Meta                { return m.Meta }
func (m *BindingResult) SetMeta(meta Meta)            { m.Meta = meta }
func (m *BindingResult) CopyStoreObject() StoreObject { return m.Copy() }
func (m *BindingResult) Kind() string                 { return KindBindingResult }

// Copy returns a deep copy of the binding level.
func (m *BindingLevel) Copy() *BindingLevel {
	if m == nil {
		return nil
	}
	o := *m
	return &o
}

func (m *BindingLevel) GetID() string                { return LevelKey(m.PortID, m.Host, m.Level) }
func (m *BindingLevel) GetMeta() Meta                { return m.Meta }
func (m *BindingLevel) SetMeta(meta Meta)            { m.Meta = meta }
func (m *BindingLevel) CopyStoreObject() StoreObject { return m.Copy() }
func (m *BindingLevel) Kind() string                 { return KindBindingLevel }

// NewStoreObject returns an empty object of the given kind, ready to be
// decoded into.
func NewStoreObject(kind string) (StoreObject, error) {
	switch kind {
	case KindNetwork:
		return &Network{}, nil
	case KindPort:
		return &Port{}, nil
	case KindSegment:
		return &Segment{}, nil
	case KindPortBinding:
		return &PortBinding{}, nil
	case KindBindingResult:
		return &BindingResult{}, nil
	case KindBindingLevel:
		return &BindingLevel{}, nil
	}
	return nil, fmt.Errorf("unknown object kind %q", kind)
}

// Kinds lists every object kind in dependency order: an object only refers
// to objects of kinds listed before its own.
var Kinds = []string{
	KindNetwork,
	KindPort,
	KindSegment,
	KindPortBinding,
	KindBindingResult,
	KindBindingLevel,
}

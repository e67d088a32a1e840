package api

import "time"

// Version tracks the last time an object in the store was updated.
type Version struct {
	Index uint64 `json:"index"`
}

// Meta contains metadata about objects. Every object contains a meta field.
type Meta struct {
	// Version tracks the current version of the object.
	Version Version `json:"version"`

	// Object timestamps. Zero until the object is committed through a
	// versioned store.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Network is the owner of segments and ports. The network lifecycle is
// managed outside of this module; only identity is tracked here.
type Network struct {
	ID   string `json:"id"`
	Meta Meta   `json:"meta"`
	Name string `json:"name,omitempty"`
}

// Port is a virtual port attached to a network. Only the fields that binding
// logic reads are tracked.
type Port struct {
	ID           string `json:"id"`
	Meta         Meta   `json:"meta"`
	NetworkID    string `json:"network_id"`
	MACAddress   string `json:"mac_address"`
	DeviceID     string `json:"device_id,omitempty"`
	DeviceOwner  string `json:"device_owner,omitempty"`
	AdminStateUp bool   `json:"admin_state_up"`
	Status       string `json:"status,omitempty"`
}

// Segment is one provider segment realizing a network.
type Segment struct {
	ID        string `json:"id"`
	Meta      Meta   `json:"meta"`
	NetworkID string `json:"network_id"`

	// NetworkType is the segment type tag, for example "vlan", "vxlan" or
	// "flat".
	NetworkType string `json:"network_type"`
	// PhysicalNetwork is empty when the segment is not tied to a physical
	// network.
	PhysicalNetwork string `json:"physical_network,omitempty"`
	// SegmentationID is nil when the segment type carries no ID.
	SegmentationID *uint32 `json:"segmentation_id,omitempty"`

	// IsDynamic is set on segments allocated on demand while binding a
	// port, as opposed to segments declared by the network owner.
	IsDynamic bool `json:"is_dynamic"`
	// SegmentIndex orders the segments of a network. Declared segments
	// are numbered 0, 1, 2... and dynamic segments -1, -2, -3... in the
	// order they were added.
	SegmentIndex int32 `json:"segment_index"`
}

// PortBinding is the binding record of a port: the host a binding is
// currently being attempted on. An empty host means the port is unbound.
type PortBinding struct {
	PortID   string `json:"port_id"`
	Meta     Meta   `json:"meta"`
	Host     string `json:"host"`
	VNICType string `json:"vnic_type"`
	Profile  string `json:"profile,omitempty"`
}

// BindingResult is the outcome of a completed binding negotiation for a
// (port, host) pair.
type BindingResult struct {
	PortID  string `json:"port_id"`
	Host    string `json:"host"`
	Meta    Meta   `json:"meta"`
	VIFType string `json:"vif_type"`
	// VIFDetails is opaque to the store. An empty string means the port is
	// bound without extra details.
	VIFDetails string `json:"vif_details"`
}

// BindingLevel is one entry of a hierarchical binding: the driver and
// segment used at a given depth.
type BindingLevel struct {
	PortID    string `json:"port_id"`
	Host      string `json:"host"`
	Level     int32  `json:"level"`
	Meta      Meta   `json:"meta"`
	Driver    string `json:"driver"`
	SegmentID string `json:"segment_id,omitempty"`
}

// Field limits of the persisted tables, in characters.
const (
	MaxIDLength              = 36
	MaxPortIDLength          = 36
	MaxHostLength            = 255
	MaxVIFTypeLength         = 64
	MaxVIFDetailsLength      = 4095
	MaxDriverLength          = 64
	MaxNetworkTypeLength     = 32
	MaxPhysicalNetworkLength = 64
)

// VNICNormal is the vnic type of a new port binding.
const VNICNormal = "normal"

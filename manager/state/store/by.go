package store

import "github.com/vnetkit/bindstate/identity"

// By is an interface type passed to Find methods. Implementations must be
// defined in this package.
type By interface {
	// isBy allows this interface to only be satisfied by certain internal
	// types.
	isBy()
}

type byAll struct{}

func (a byAll) isBy() {
}

// All is an argument that can be passed to find to list all items in the
// set.
var All byAll

type orCombinator struct {
	bys []By
}

func (b orCombinator) isBy() {
}

// Or returns a combinator that applies OR logic on all the supplied By
// arguments.
func Or(bys ...By) By {
	return orCombinator{bys: bys}
}

type byIDPrefix string

func (b byIDPrefix) isBy() {
}

// ByIDPrefix creates an object to pass to Find to select by ID prefix.
func ByIDPrefix(idPrefix string) By {
	return byIDPrefix(idPrefix)
}

type byNetwork string

func (b byNetwork) isBy() {
}

// ByNetworkID creates an object to pass to Find to select by network.
func ByNetworkID(networkID string) By {
	return byNetwork(networkID)
}

type byPort string

func (b byPort) isBy() {
}

// ByPortID creates an object to pass to Find to select the binding results or
// levels of a port, across all hosts.
func ByPortID(portID string) By {
	return byPort(portID)
}

type byBinding struct {
	portID string
	host   string
}

func (b byBinding) isBy() {
}

// ByBinding creates an object to pass to Find to select the levels of the
// binding of a port on one host.
func ByBinding(portID, host string) By {
	return byBinding{portID: portID, host: host}
}

type byHost string

func (b byHost) isBy() {
}

// ByHost creates an object to pass to Find to select by host.
func ByHost(host string) By {
	return byHost(host)
}

type byMACAddress string

func (b byMACAddress) isBy() {
}

// ByMACAddress creates an object to pass to Find to select ports by MAC
// address. Addresses are compared in their normalized form.
func ByMACAddress(mac string) By {
	return byMACAddress(identity.NormalizeMAC(mac))
}

type bySegment string

func (b bySegment) isBy() {
}

// BySegmentID creates an object to pass to Find to select binding levels
// that use a segment.
func BySegmentID(segmentID string) By {
	return bySegment(segmentID)
}

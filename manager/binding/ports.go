package binding

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/log"
	"github.com/vnetkit/bindstate/manager/state/store"
)

// GetLockedPortAndBinding returns a port and its binding record for a
// binding negotiation. Holding tx keeps every other writer out until the
// transaction ends, so both rows stay as read until then. It returns
// (nil, nil) if either row is missing.
func GetLockedPortAndBinding(tx store.Tx, portID string) (*api.Port, *api.PortBinding) {
	port := store.GetPort(tx, portID)
	if port == nil {
		return nil, nil
	}
	binding := store.GetPortBinding(tx, portID)
	if binding == nil {
		return nil, nil
	}
	return port, binding
}

// AddPortBinding creates the binding record of a port, unbound and with the
// normal vnic type. It fails with store.ErrExist if the port already has
// one.
func AddPortBinding(tx store.Tx, portID string) (*api.PortBinding, error) {
	binding := &api.PortBinding{
		PortID:   portID,
		VNICType: api.VNICNormal,
	}
	if err := store.CreatePortBinding(tx, binding); err != nil {
		return nil, err
	}
	return binding, nil
}

// UpdatePortBinding writes the binding record of a port, usually after
// GetLockedPortAndBinding in the same transaction.
func UpdatePortBinding(tx store.Tx, binding *api.PortBinding) error {
	if err := checkKeyPart("host", binding.Host); err != nil {
		return err
	}
	if err := checkLength("host", binding.Host, api.MaxHostLength); err != nil {
		return err
	}
	if binding.VNICType == "" {
		binding.VNICType = api.VNICNormal
	}
	if err := store.UpdatePortBinding(tx, binding); err != nil {
		return err
	}

	log.L.WithFields(logrus.Fields{
		"port.id": binding.PortID,
		"host":    binding.Host,
	}).Debug("port binding updated")
	return nil
}

// GetPort returns the port whose ID starts with portID. It returns nil if
// no port or more than one port matches.
func GetPort(tx store.ReadTx, portID string) *api.Port {
	ports, err := store.FindPorts(tx, store.ByIDPrefix(portID))
	if err != nil {
		return nil
	}

	switch len(ports) {
	case 0:
		return nil
	case 1:
		return ports[0]
	}
	log.L.WithField("port.id", portID).Error("multiple ports have an ID starting with the given prefix")
	return nil
}

// GetPortFromDeviceMAC returns the port with the given MAC address. It
// returns nil if no port or more than one port has it.
func GetPortFromDeviceMAC(tx store.ReadTx, mac string) *api.Port {
	ports, err := store.FindPorts(tx, store.ByMACAddress(mac))
	if err != nil {
		return nil
	}

	switch len(ports) {
	case 0:
		return nil
	case 1:
		return ports[0]
	}
	log.L.WithField("mac", mac).Error("multiple ports have the given MAC address")
	return nil
}

// GetPortBindingHost returns the host the port whose ID starts with portID
// is bound to. The host is empty for an unbound port. ok is false if no
// binding record or more than one matches.
func GetPortBindingHost(tx store.ReadTx, portID string) (host string, ok bool) {
	bindings, err := store.FindPortBindings(tx, store.ByIDPrefix(portID))
	if err != nil {
		return "", false
	}

	switch len(bindings) {
	case 0:
		log.L.WithField("port.id", portID).Debug("no binding found for port")
		return "", false
	case 1:
		return bindings[0].Host, true
	}
	log.L.WithField("port.id", portID).Error("multiple ports have an ID starting with the given prefix")
	return "", false
}

// RequireBinding returns the binding record of a port, creating it if the
// port has none.
func RequireBinding(tx store.Tx, portID string) (*api.PortBinding, error) {
	if binding := store.GetPortBinding(tx, portID); binding != nil {
		return binding, nil
	}
	binding, err := AddPortBinding(tx, portID)
	if err != nil {
		return nil, errors.Wrapf(err, "adding binding record of port %s", portID)
	}
	return binding, nil
}

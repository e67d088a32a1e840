package binding

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/log"
	"github.com/vnetkit/bindstate/manager/state/store"
)

// GetBindingResult returns the binding result of a port on a host, or nil
// if the port is not bound there.
func GetBindingResult(tx store.ReadTx, portID, host string) *api.BindingResult {
	return store.GetBindingResult(tx, portID, host)
}

// GetBindingResults returns the binding results of a port on every host it
// is bound on, ordered by host.
func GetBindingResults(tx store.ReadTx, portID string) []*api.BindingResult {
	results, err := store.FindBindingResults(tx, store.ByPortID(portID))
	if err != nil {
		return nil
	}
	return results
}

// GetBindingLevels returns the levels of the binding of a port on a host,
// ordered by level. A simple binding has no levels.
func GetBindingLevels(tx store.ReadTx, portID, host string) []*api.BindingLevel {
	levels, err := store.FindBindingLevels(tx, store.ByBinding(portID, host))
	if err != nil {
		return nil
	}
	return levels
}

func checkLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return errors.Wrapf(ErrInvalidArgument, "%s is longer than %d characters", field, max)
	}
	return nil
}

// checkKeyPart rejects values that cannot be part of a composite key.
func checkKeyPart(field, value string) error {
	if strings.Contains(value, api.KeySeparator) {
		return errors.Wrapf(ErrInvalidArgument, "%s must not contain NUL characters", field)
	}
	return nil
}

func validateBindingKey(portID, host string) error {
	if portID == "" {
		return errors.Wrap(ErrInvalidArgument, "port ID must not be empty")
	}
	if host == "" {
		return errors.Wrap(ErrInvalidArgument, "host must not be empty")
	}
	if err := checkKeyPart("port ID", portID); err != nil {
		return err
	}
	if err := checkKeyPart("host", host); err != nil {
		return err
	}
	if err := checkLength("port ID", portID, api.MaxPortIDLength); err != nil {
		return err
	}
	return checkLength("host", host, api.MaxHostLength)
}

// sortLevels returns copies of levels ordered by level, checking that they
// belong to the (port, host) pair and are numbered contiguously from 0.
func sortLevels(portID, host string, levels []*api.BindingLevel) ([]*api.BindingLevel, error) {
	sorted := make([]*api.BindingLevel, 0, len(levels))
	for _, l := range levels {
		if l == nil {
			return nil, errors.Wrap(ErrInvalidArgument, "nil binding level")
		}
		if l.PortID != "" && l.PortID != portID {
			return nil, errors.Wrapf(ErrInvalidArgument, "binding level of port %s given for port %s", l.PortID, portID)
		}
		if l.Host != "" && l.Host != host {
			return nil, errors.Wrapf(ErrInvalidArgument, "binding level on host %s given for host %s", l.Host, host)
		}
		if l.Driver == "" {
			return nil, errors.Wrapf(ErrInvalidArgument, "binding level %d has no driver", l.Level)
		}
		if err := checkLength("driver", l.Driver, api.MaxDriverLength); err != nil {
			return nil, err
		}

		c := l.Copy()
		c.PortID = portID
		c.Host = host
		c.Meta = api.Meta{}
		sorted = append(sorted, c)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Level < sorted[j].Level
	})
	for i, l := range sorted {
		if l.Level != int32(i) {
			return nil, errors.Wrapf(ErrInvalidArgument, "binding levels must be numbered 0 to %d", len(sorted)-1)
		}
	}
	return sorted, nil
}

// SetBindingResult records the outcome of a binding negotiation for a port
// on a host, replacing any earlier result and levels of that pair. An empty
// vifDetails means the port is bound without extra details.
//
// Levels need not carry the port and host. If they do, they must match.
func SetBindingResult(tx store.Tx, portID, host, vifType, vifDetails string, levels []*api.BindingLevel) (*api.BindingResult, error) {
	if err := validateBindingKey(portID, host); err != nil {
		return nil, err
	}
	if vifType == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "VIF type must not be empty")
	}
	if err := checkLength("VIF type", vifType, api.MaxVIFTypeLength); err != nil {
		return nil, err
	}
	if err := checkLength("VIF details", vifDetails, api.MaxVIFDetailsLength); err != nil {
		return nil, err
	}
	sorted, err := sortLevels(portID, host, levels)
	if err != nil {
		return nil, err
	}
	if store.GetPort(tx, portID) == nil {
		return nil, errors.Wrapf(store.ErrNotExist, "port %s", portID)
	}

	if err := deleteLevels(tx, portID, host); err != nil {
		return nil, err
	}

	result := store.GetBindingResult(tx, portID, host)
	if result != nil {
		result.VIFType = vifType
		result.VIFDetails = vifDetails
		err = store.UpdateBindingResult(tx, result)
	} else {
		result = &api.BindingResult{
			PortID:     portID,
			Host:       host,
			VIFType:    vifType,
			VIFDetails: vifDetails,
		}
		err = store.CreateBindingResult(tx, result)
	}
	if err != nil {
		return nil, err
	}

	for _, l := range sorted {
		if err := store.CreateBindingLevel(tx, l); err != nil {
			return nil, err
		}
	}

	log.L.WithFields(logrus.Fields{
		"port.id":  portID,
		"host":     host,
		"vif.type": vifType,
		"levels":   len(sorted),
	}).Debug("binding result set")
	return result, nil
}

// ClearBindingResult removes the binding result of a port on a host along
// with its levels. Clearing a missing result is not an error.
func ClearBindingResult(tx store.Tx, portID, host string) error {
	if err := deleteLevels(tx, portID, host); err != nil {
		return err
	}

	if store.GetBindingResult(tx, portID, host) == nil {
		return nil
	}
	if err := store.DeleteBindingResult(tx, portID, host); err != nil {
		return err
	}

	log.L.WithFields(logrus.Fields{
		"port.id": portID,
		"host":    host,
	}).Debug("binding result cleared")
	return nil
}

func deleteLevels(tx store.Tx, portID, host string) error {
	levels, err := store.FindBindingLevels(tx, store.ByBinding(portID, host))
	if err != nil {
		return err
	}
	for _, l := range levels {
		if err := store.DeleteBindingLevel(tx, l.PortID, l.Host, l.Level); err != nil {
			return err
		}
	}
	return nil
}

// ClearHostBindings clears every binding result on a host, for example
// when the host is taken out of service. The results are cleared in
// batches, so other writers may run in between. It returns the number of
// results cleared.
func ClearHostBindings(s *store.MemoryStore, host string) (int, error) {
	var (
		results []*api.BindingResult
		err     error
	)
	s.View(func(tx store.ReadTx) {
		results, err = store.FindBindingResults(tx, store.ByHost(host))
	})
	if err != nil {
		return 0, err
	}

	return s.Batch(func(batch *store.Batch) error {
		for _, r := range results {
			r := r
			if err := batch.Update(func(tx store.Tx) error {
				return ClearBindingResult(tx, r.PortID, r.Host)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

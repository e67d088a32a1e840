package store

import (
	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/identity"
)

const tablePort = "port"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tablePort,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: indexerByID,
				},
				indexNetworkID: {
					Name: indexNetworkID,
					Indexer: objectIndexer(func(o api.StoreObject) (string, bool) {
						return o.(*api.Port).NetworkID, true
					}),
				},
				indexMACAddress: {
					Name:         indexMACAddress,
					AllowMissing: true,
					Indexer: objectIndexer(func(o api.StoreObject) (string, bool) {
						mac := o.(*api.Port).MACAddress
						return mac, mac != ""
					}),
				},
			},
		},
		Save: func(tx ReadTx, snapshot *api.StoreSnapshot) error {
			var err error
			snapshot.Ports, err = FindPorts(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *api.StoreSnapshot) error {
			toStoreObj := make([]api.StoreObject, len(snapshot.Ports))
			for i, x := range snapshot.Ports {
				toStoreObj[i] = x
			}
			return restoreTable(tx, tablePort, toStoreObj)
		},
	})
}

// CreatePort adds a new port to the store. The MAC address is stored in
// normalized form.
// Returns ErrExist if the ID is already taken, and ErrNotExist if the
// network does not exist.
func CreatePort(tx Tx, p *api.Port) error {
	if err := checkID("port ID", p.ID, api.MaxPortIDLength); err != nil {
		return err
	}
	if GetNetwork(tx, p.NetworkID) == nil {
		return errors.Wrapf(ErrNotExist, "network %s", p.NetworkID)
	}
	p.MACAddress = identity.NormalizeMAC(p.MACAddress)
	return tx.create(tablePort, p)
}

// UpdatePort updates an existing port in the store. A port cannot move to
// another network.
// Returns ErrNotExist if the port doesn't exist.
func UpdatePort(tx Tx, p *api.Port) error {
	if old := GetPort(tx, p.ID); old != nil && old.NetworkID != p.NetworkID {
		return errors.Errorf("port %s cannot move from network %s to %s", p.ID, old.NetworkID, p.NetworkID)
	}
	p.MACAddress = identity.NormalizeMAC(p.MACAddress)
	return tx.update(tablePort, p)
}

// DeletePort removes a port from the store, along with its binding record
// and all of its binding results and levels.
// Returns ErrNotExist if the port doesn't exist.
func DeletePort(tx Tx, id string) error {
	if GetPort(tx, id) == nil {
		return ErrNotExist
	}

	levels, err := FindBindingLevels(tx, ByPortID(id))
	if err != nil {
		return err
	}
	for _, l := range levels {
		if err := tx.delete(tableBindingLevel, l.GetID()); err != nil {
			return err
		}
	}

	results, err := FindBindingResults(tx, ByPortID(id))
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := tx.delete(tableBindingResult, r.GetID()); err != nil {
			return err
		}
	}

	if GetPortBinding(tx, id) != nil {
		if err := tx.delete(tablePortBinding, id); err != nil {
			return err
		}
	}

	return tx.delete(tablePort, id)
}

// GetPort looks up a port by ID.
// Returns nil if the port doesn't exist.
func GetPort(tx ReadTx, id string) *api.Port {
	p := tx.get(tablePort, id)
	if p == nil {
		return nil
	}
	return p.(*api.Port)
}

// FindPorts selects a set of ports and returns them.
func FindPorts(tx ReadTx, by By) ([]*api.Port, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byIDPrefix, byNetwork, byMACAddress:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	portList := []*api.Port{}
	appendResult := func(o api.StoreObject) {
		portList = append(portList, o.(*api.Port))
	}

	err := tx.find(tablePort, by, checkType, appendResult)
	return portList, err
}

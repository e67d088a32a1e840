package store

import (
	memdb "github.com/hashicorp/go-memdb"
	"github.com/vnetkit/bindstate/api"
)

const tableNetwork = "network"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableNetwork,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: indexerByID,
				},
			},
		},
		Save: func(tx ReadTx, snapshot *api.StoreSnapshot) error {
			var err error
			snapshot.Networks, err = FindNetworks(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *api.StoreSnapshot) error {
			toStoreObj := make([]api.StoreObject, len(snapshot.Networks))
			for i, x := range snapshot.Networks {
				toStoreObj[i] = x
			}
			return restoreTable(tx, tableNetwork, toStoreObj)
		},
	})
}

// CreateNetwork adds a new network to the store.
// Returns ErrExist if the ID is already taken.
func CreateNetwork(tx Tx, n *api.Network) error {
	if err := checkID("network ID", n.ID, api.MaxIDLength); err != nil {
		return err
	}
	return tx.create(tableNetwork, n)
}

// UpdateNetwork updates an existing network in the store.
// Returns ErrNotExist if the network doesn't exist.
func UpdateNetwork(tx Tx, n *api.Network) error {
	return tx.update(tableNetwork, n)
}

// DeleteNetwork removes a network from the store, along with its ports and
// everything bound to them, and its segments.
// Returns ErrNotExist if the network doesn't exist, and
// ErrReferentialConflict if a binding level on a port of another network
// still uses one of its segments.
func DeleteNetwork(tx Tx, id string) error {
	if GetNetwork(tx, id) == nil {
		return ErrNotExist
	}

	ports, err := FindPorts(tx, ByNetworkID(id))
	if err != nil {
		return err
	}
	for _, p := range ports {
		if err := DeletePort(tx, p.ID); err != nil {
			return err
		}
	}

	segments, err := FindSegments(tx, ByNetworkID(id))
	if err != nil {
		return err
	}
	for _, s := range segments {
		if err := DeleteSegment(tx, s.ID); err != nil {
			return err
		}
	}

	return tx.delete(tableNetwork, id)
}

// GetNetwork looks up a network by ID.
// Returns nil if the network doesn't exist.
func GetNetwork(tx ReadTx, id string) *api.Network {
	n := tx.get(tableNetwork, id)
	if n == nil {
		return nil
	}
	return n.(*api.Network)
}

// FindNetworks selects a set of networks and returns them.
func FindNetworks(tx ReadTx, by By) ([]*api.Network, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byIDPrefix:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	networkList := []*api.Network{}
	appendResult := func(o api.StoreObject) {
		networkList = append(networkList, o.(*api.Network))
	}

	err := tx.find(tableNetwork, by, checkType, appendResult)
	return networkList, err
}

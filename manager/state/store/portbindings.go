package store

import (
	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
)

const tablePortBinding = "port_binding"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tablePortBinding,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: indexerByID,
				},
				indexHost: {
					Name:         indexHost,
					AllowMissing: true,
					Indexer: objectIndexer(func(o api.StoreObject) (string, bool) {
						host := o.(*api.PortBinding).Host
						return host, host != ""
					}),
				},
			},
		},
		Save: func(tx ReadTx, snapshot *api.StoreSnapshot) error {
			var err error
			snapshot.PortBindings, err = FindPortBindings(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *api.StoreSnapshot) error {
			toStoreObj := make([]api.StoreObject, len(snapshot.PortBindings))
			for i, x := range snapshot.PortBindings {
				toStoreObj[i] = x
			}
			return restoreTable(tx, tablePortBinding, toStoreObj)
		},
	})
}

// CreatePortBinding adds the binding record of a port to the store.
// Returns ErrExist if the port already has one, and ErrNotExist if the port
// does not exist.
func CreatePortBinding(tx Tx, b *api.PortBinding) error {
	if err := checkKeyPart("host", b.Host, api.MaxHostLength); err != nil {
		return err
	}
	if GetPort(tx, b.PortID) == nil {
		return errors.Wrapf(ErrNotExist, "port %s", b.PortID)
	}
	return tx.create(tablePortBinding, b)
}

// UpdatePortBinding updates the binding record of a port.
// Returns ErrNotExist if the record doesn't exist.
func UpdatePortBinding(tx Tx, b *api.PortBinding) error {
	if err := checkKeyPart("host", b.Host, api.MaxHostLength); err != nil {
		return err
	}
	return tx.update(tablePortBinding, b)
}

// DeletePortBinding removes the binding record of a port.
// Returns ErrNotExist if the record doesn't exist.
func DeletePortBinding(tx Tx, portID string) error {
	return tx.delete(tablePortBinding, portID)
}

// GetPortBinding looks up the binding record of a port.
// Returns nil if the record doesn't exist.
func GetPortBinding(tx ReadTx, portID string) *api.PortBinding {
	b := tx.get(tablePortBinding, portID)
	if b == nil {
		return nil
	}
	return b.(*api.PortBinding)
}

// FindPortBindings selects a set of port binding records and returns them.
// ByIDPrefix matches on the port ID.
func FindPortBindings(tx ReadTx, by By) ([]*api.PortBinding, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byIDPrefix, byHost:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	bindingList := []*api.PortBinding{}
	appendResult := func(o api.StoreObject) {
		bindingList = append(bindingList, o.(*api.PortBinding))
	}

	err := tx.find(tablePortBinding, by, checkType, appendResult)
	return bindingList, err
}

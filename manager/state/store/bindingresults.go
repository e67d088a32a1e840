package store

import (
	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
)

const tableBindingResult = "binding_result"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableBindingResult,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: indexerByID,
				},
				indexHost: {
					Name: indexHost,
					Indexer: objectIndexer(func(o api.StoreObject) (string, bool) {
						return o.(*api.BindingResult).Host, true
					}),
				},
			},
		},
		Save: func(tx ReadTx, snapshot *api.StoreSnapshot) error {
			var err error
			snapshot.BindingResults, err = FindBindingResults(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *api.StoreSnapshot) error {
			toStoreObj := make([]api.StoreObject, len(snapshot.BindingResults))
			for i, x := range snapshot.BindingResults {
				toStoreObj[i] = x
			}
			return restoreTable(tx, tableBindingResult, toStoreObj)
		},
	})
}

// CreateBindingResult adds the binding result of a (port, host) pair.
// Returns ErrExist if the pair already has a result, and ErrNotExist if the
// port does not exist.
func CreateBindingResult(tx Tx, r *api.BindingResult) error {
	if err := checkKeyPart("host", r.Host, api.MaxHostLength); err != nil {
		return err
	}
	if GetPort(tx, r.PortID) == nil {
		return errors.Wrapf(ErrNotExist, "port %s", r.PortID)
	}
	return tx.create(tableBindingResult, r)
}

// UpdateBindingResult updates the binding result of a (port, host) pair.
// Returns ErrNotExist if the result doesn't exist.
func UpdateBindingResult(tx Tx, r *api.BindingResult) error {
	return tx.update(tableBindingResult, r)
}

// DeleteBindingResult removes the binding result of a (port, host) pair.
// Returns ErrNotExist if the result doesn't exist.
func DeleteBindingResult(tx Tx, portID, host string) error {
	return tx.delete(tableBindingResult, api.BindingKey(portID, host))
}

// GetBindingResult looks up the binding result of a (port, host) pair.
// Returns nil if the result doesn't exist.
func GetBindingResult(tx ReadTx, portID, host string) *api.BindingResult {
	r := tx.get(tableBindingResult, api.BindingKey(portID, host))
	if r == nil {
		return nil
	}
	return r.(*api.BindingResult)
}

// FindBindingResults selects a set of binding results and returns them.
// Results of the same port are ordered by host.
func FindBindingResults(tx ReadTx, by By) ([]*api.BindingResult, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byPort, byHost:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	resultList := []*api.BindingResult{}
	appendResult := func(o api.StoreObject) {
		resultList = append(resultList, o.(*api.BindingResult))
	}

	err := tx.find(tableBindingResult, by, checkType, appendResult)
	return resultList, err
}

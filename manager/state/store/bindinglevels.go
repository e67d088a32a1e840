package store

import (
	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
)

const tableBindingLevel = "binding_level"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableBindingLevel,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: indexerByID,
				},
				indexSegmentID: {
					Name:         indexSegmentID,
					AllowMissing: true,
					Indexer: objectIndexer(func(o api.StoreObject) (string, bool) {
						segmentID := o.(*api.BindingLevel).SegmentID
						return segmentID, segmentID != ""
					}),
				},
			},
		},
		Save: func(tx ReadTx, snapshot *api.StoreSnapshot) error {
			var err error
			snapshot.BindingLevels, err = FindBindingLevels(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *api.StoreSnapshot) error {
			toStoreObj := make([]api.StoreObject, len(snapshot.BindingLevels))
			for i, x := range snapshot.BindingLevels {
				toStoreObj[i] = x
			}
			return restoreTable(tx, tableBindingLevel, toStoreObj)
		},
	})
}

// CreateBindingLevel adds a binding level.
// Returns ErrExist if the level is already taken, and ErrNotExist if the
// port or the segment it names does not exist.
func CreateBindingLevel(tx Tx, l *api.BindingLevel) error {
	if err := checkKeyPart("host", l.Host, api.MaxHostLength); err != nil {
		return err
	}
	if GetPort(tx, l.PortID) == nil {
		return errors.Wrapf(ErrNotExist, "port %s", l.PortID)
	}
	if l.SegmentID != "" && GetSegment(tx, l.SegmentID) == nil {
		return errors.Wrapf(ErrNotExist, "segment %s", l.SegmentID)
	}
	return tx.create(tableBindingLevel, l)
}

// DeleteBindingLevel removes a binding level.
// Returns ErrNotExist if the level doesn't exist.
func DeleteBindingLevel(tx Tx, portID, host string, level int32) error {
	return tx.delete(tableBindingLevel, api.LevelKey(portID, host, level))
}

// GetBindingLevel looks up one binding level.
// Returns nil if the level doesn't exist.
func GetBindingLevel(tx ReadTx, portID, host string, level int32) *api.BindingLevel {
	l := tx.get(tableBindingLevel, api.LevelKey(portID, host, level))
	if l == nil {
		return nil
	}
	return l.(*api.BindingLevel)
}

// FindBindingLevels selects a set of binding levels and returns them.
// Levels of the same binding are ordered by level.
func FindBindingLevels(tx ReadTx, by By) ([]*api.BindingLevel, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byPort, byBinding, bySegment:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	levelList := []*api.BindingLevel{}
	appendResult := func(o api.StoreObject) {
		levelList = append(levelList, o.(*api.BindingLevel))
	}

	err := tx.find(tableBindingLevel, by, checkType, appendResult)
	return levelList, err
}

package store

import (
	"strconv"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
)

const tableSegment = "segment"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableSegment,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: indexerByID,
				},
				indexNetworkID: {
					Name: indexNetworkID,
					Indexer: objectIndexer(func(o api.StoreObject) (string, bool) {
						return o.(*api.Segment).NetworkID, true
					}),
				},
				indexSegmentIndex: {
					Name: indexSegmentIndex,
					Indexer: objectIndexer(func(o api.StoreObject) (string, bool) {
						s := o.(*api.Segment)
						return segmentIndexKey(s.NetworkID, s.SegmentIndex), true
					}),
				},
			},
		},
		Save: func(tx ReadTx, snapshot *api.StoreSnapshot) error {
			var err error
			snapshot.Segments, err = FindSegments(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *api.StoreSnapshot) error {
			toStoreObj := make([]api.StoreObject, len(snapshot.Segments))
			for i, x := range snapshot.Segments {
				toStoreObj[i] = x
			}
			return restoreTable(tx, tableSegment, toStoreObj)
		},
	})
}

func segmentIndexKey(networkID string, index int32) string {
	return networkID + "\x00" + strconv.FormatInt(int64(index), 10)
}

// CreateSegment adds a new segment to the store.
// Returns ErrExist if the ID is already taken, ErrNotExist if the network
// does not exist, and ErrSequenceConflict if the network already has a
// segment with the same segment index.
func CreateSegment(tx Tx, s *api.Segment) error {
	if err := checkID("segment ID", s.ID, api.MaxIDLength); err != nil {
		return err
	}
	if GetNetwork(tx, s.NetworkID) == nil {
		return errors.Wrapf(ErrNotExist, "network %s", s.NetworkID)
	}
	if tx.lookup(tableSegment, indexSegmentIndex, segmentIndexKey(s.NetworkID, s.SegmentIndex)) != nil {
		return errors.Wrapf(ErrSequenceConflict, "network %s already has segment index %d", s.NetworkID, s.SegmentIndex)
	}
	return tx.create(tableSegment, s)
}

// DeleteSegment removes a segment from the store.
// Returns ErrNotExist if the segment doesn't exist, and
// ErrReferentialConflict if a binding level still uses the segment.
func DeleteSegment(tx Tx, id string) error {
	if GetSegment(tx, id) == nil {
		return ErrNotExist
	}
	if tx.lookup(tableBindingLevel, indexSegmentID, id) != nil {
		return errors.Wrapf(ErrReferentialConflict, "segment %s is used by a port binding", id)
	}
	return tx.delete(tableSegment, id)
}

// GetSegment looks up a segment by ID.
// Returns nil if the segment doesn't exist.
func GetSegment(tx ReadTx, id string) *api.Segment {
	s := tx.get(tableSegment, id)
	if s == nil {
		return nil
	}
	return s.(*api.Segment)
}

// FindSegments selects a set of segments and returns them.
func FindSegments(tx ReadTx, by By) ([]*api.Segment, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byIDPrefix, byNetwork:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	segmentList := []*api.Segment{}
	appendResult := func(o api.StoreObject) {
		segmentList = append(segmentList, o.(*api.Segment))
	}

	err := tx.find(tableSegment, by, checkType, appendResult)
	return segmentList, err
}

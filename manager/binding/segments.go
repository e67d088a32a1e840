// Package binding is the accessor layer over the store used by the port
// binding machinery: network segments, binding results and levels, and the
// locked reads a binding negotiation starts from.
//
// Every function runs inside a transaction supplied by the caller, so a
// sequence of calls made from one store.MemoryStore.Update callback commits
// or rolls back as a whole.
package binding

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/identity"
	"github.com/vnetkit/bindstate/log"
	"github.com/vnetkit/bindstate/manager/state/store"
)

// ErrInvalidArgument is returned when an operation is called with input it
// cannot accept.
var ErrInvalidArgument = errors.New("invalid argument")

// AddNetworkSegment adds a segment to a network. The segment gets a new ID
// unless one is set, and the next segment index of its kind: declared
// segments count up from 0 and dynamic segments count down from -1.
func AddNetworkSegment(tx store.Tx, networkID string, segment *api.Segment, isDynamic bool) (*api.Segment, error) {
	if segment == nil || segment.NetworkType == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "segment needs a network type")
	}
	if err := checkLength("network type", segment.NetworkType, api.MaxNetworkTypeLength); err != nil {
		return nil, err
	}
	if err := checkLength("physical network", segment.PhysicalNetwork, api.MaxPhysicalNetworkLength); err != nil {
		return nil, err
	}
	if store.GetNetwork(tx, networkID) == nil {
		return nil, errors.Wrapf(store.ErrNotExist, "network %s", networkID)
	}

	existing, err := store.FindSegments(tx, store.ByNetworkID(networkID))
	if err != nil {
		return nil, err
	}

	seg := segment.Copy()
	if seg.ID == "" {
		seg.ID = identity.NewID()
	}
	seg.Meta = api.Meta{}
	seg.NetworkID = networkID
	seg.IsDynamic = isDynamic
	seg.SegmentIndex = nextSegmentIndex(existing, isDynamic)

	if err := store.CreateSegment(tx, seg); err != nil {
		return nil, err
	}

	log.L.WithFields(logrus.Fields{
		"network.id":    networkID,
		"segment.id":    seg.ID,
		"segment.index": seg.SegmentIndex,
	}).Debugf("added %s segment", seg.NetworkType)
	return seg, nil
}

func nextSegmentIndex(segments []*api.Segment, isDynamic bool) int32 {
	indexes := lo.Map(segments, func(s *api.Segment, _ int) int32 {
		return s.SegmentIndex
	})
	if isDynamic {
		return lo.Min(append(indexes, 0)) - 1
	}
	return lo.Max(append(indexes, -1)) + 1
}

// creationOrder ranks the segments of one kind in the order they were
// added.
func creationOrder(s *api.Segment) int32 {
	if s.IsDynamic {
		return -s.SegmentIndex
	}
	return s.SegmentIndex
}

// GetNetworkSegments returns the dynamic segments of a network if
// filterDynamic is set, and its declared segments otherwise, in the order
// they were added.
func GetNetworkSegments(tx store.ReadTx, networkID string, filterDynamic bool) ([]*api.Segment, error) {
	segments, err := store.FindSegments(tx, store.ByNetworkID(networkID))
	if err != nil {
		return nil, err
	}

	segments = lo.Filter(segments, func(s *api.Segment, _ int) bool {
		return s.IsDynamic == filterDynamic
	})
	sort.Slice(segments, func(i, j int) bool {
		return creationOrder(segments[i]) < creationOrder(segments[j])
	})
	return segments, nil
}

// GetSegmentByID returns a segment, or nil if it does not exist.
func GetSegmentByID(tx store.ReadTx, segmentID string) *api.Segment {
	return store.GetSegment(tx, segmentID)
}

// DeleteNetworkSegment removes a segment. Deleting a missing segment is not
// an error. A segment still used by a binding level is kept and
// store.ErrReferentialConflict is returned.
//
// Declared segment indexes stay dense, so only the most recently added
// declared segment of a network can be removed. Dynamic segments can be
// removed in any order.
func DeleteNetworkSegment(tx store.Tx, segmentID string) error {
	seg := store.GetSegment(tx, segmentID)
	if seg == nil {
		return nil
	}
	if !seg.IsDynamic {
		declared, err := GetNetworkSegments(tx, seg.NetworkID, false)
		if err != nil {
			return err
		}
		if last := declared[len(declared)-1]; last.ID != seg.ID {
			return errors.Wrapf(ErrInvalidArgument, "segment %s is not the last declared segment of network %s", segmentID, seg.NetworkID)
		}
	}
	return store.DeleteSegment(tx, segmentID)
}

// GetDynamicSegment returns the first dynamic segment of a network on the
// given physical network with the given segmentation ID, or nil. An empty
// physicalNetwork or a nil segmentationID matches any.
func GetDynamicSegment(tx store.ReadTx, networkID, physicalNetwork string, segmentationID *uint32) *api.Segment {
	segments, err := GetNetworkSegments(tx, networkID, true)
	if err != nil {
		return nil
	}

	seg, ok := lo.Find(segments, func(s *api.Segment) bool {
		if physicalNetwork != "" && s.PhysicalNetwork != physicalNetwork {
			return false
		}
		if segmentationID != nil && (s.SegmentationID == nil || *s.SegmentationID != *segmentationID) {
			return false
		}
		return true
	})
	if !ok {
		return nil
	}
	return seg
}

// ReleaseDynamicSegment removes a dynamic segment once no binding needs it.
// Releasing a missing segment is not an error.
func ReleaseDynamicSegment(tx store.Tx, segmentID string) error {
	seg := store.GetSegment(tx, segmentID)
	if seg == nil {
		return nil
	}
	if !seg.IsDynamic {
		return errors.Wrapf(ErrInvalidArgument, "segment %s is not dynamic", segmentID)
	}
	return store.DeleteSegment(tx, segmentID)
}

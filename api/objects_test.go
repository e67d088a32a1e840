package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentCopy(t *testing.T) {
	segID := uint32(100)
	s := &Segment{ID: "seg1", NetworkID: "net1", NetworkType: "vlan", SegmentationID: &segID}

	c := s.Copy()
	assert.Equal(t, s, c)

	*c.SegmentationID = 200
	assert.Equal(t, uint32(100), *s.SegmentationID, "copy must not share the segmentation ID")

	var nilSegment *Segment
	assert.Nil(t, nilSegment.Copy())
}

func TestBindingKeys(t *testing.T) {
	r := &BindingResult{PortID: "port1", Host: "host1"}
	assert.Equal(t, BindingKey("port1", "host1"), r.GetID())
	assert.Contains(t, r.GetID(), BindingKeyPrefix("port1"))
	assert.NotContains(t, BindingKey("port10", "host1"), BindingKeyPrefix("port1"))

	l0 := &BindingLevel{PortID: "port1", Host: "host1", Level: 0}
	l10 := &BindingLevel{PortID: "port1", Host: "host1", Level: 10}
	l2 := &BindingLevel{PortID: "port1", Host: "host1", Level: 2}
	assert.True(t, l0.GetID() < l2.GetID())
	assert.True(t, l2.GetID() < l10.GetID(), "level keys must sort numerically")
	assert.Contains(t, l10.GetID(), LevelKeyPrefix("port1", "host1"))
}

func TestEventMatches(t *testing.T) {
	seg := &Segment{ID: "seg1"}
	other := &Segment{ID: "seg2"}
	port := &Port{ID: "seg1"}

	assert.True(t, EventCreate{}.Matches(EventCreate{Object: seg}))
	assert.True(t, EventCreate{Object: &Segment{}}.Matches(EventCreate{Object: seg}))
	assert.True(t, EventCreate{Object: seg}.Matches(EventCreate{Object: seg}))
	assert.False(t, EventCreate{Object: seg}.Matches(EventCreate{Object: other}))
	assert.False(t, EventCreate{Object: &Segment{}}.Matches(EventCreate{Object: port}))
	assert.False(t, EventCreate{Object: seg}.Matches(EventDelete{Object: seg}))
	assert.True(t, EventDelete{Object: seg}.Matches(EventDelete{Object: seg}))
	assert.True(t, EventUpdate{Object: &Segment{}}.Matches(EventUpdate{Object: seg, OldObject: seg}))
	assert.True(t, EventCommit{}.Matches(EventCommit{Version: &Version{Index: 3}}))
}

func TestNewStoreObject(t *testing.T) {
	for _, kind := range Kinds {
		obj, err := NewStoreObject(kind)
		assert.NoError(t, err)
		assert.Equal(t, kind, obj.Kind())
	}

	_, err := NewStoreObject("bogus")
	assert.Error(t, err)
}

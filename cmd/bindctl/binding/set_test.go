package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevels(t *testing.T) {
	levels, err := parseLevels([]string{"tor:seg-1", "openvswitch"})
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, int32(0), levels[0].Level)
	assert.Equal(t, "tor", levels[0].Driver)
	assert.Equal(t, "seg-1", levels[0].SegmentID)
	assert.Equal(t, int32(1), levels[1].Level)
	assert.Equal(t, "openvswitch", levels[1].Driver)
	assert.Equal(t, "", levels[1].SegmentID)

	levels, err = parseLevels(nil)
	require.NoError(t, err)
	assert.Empty(t, levels)

	_, err = parseLevels([]string{":seg-1"})
	assert.Error(t, err)
}

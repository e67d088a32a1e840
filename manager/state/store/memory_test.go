package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/identity"
)

func segmentationID(id uint32) *uint32 {
	return &id
}

var (
	networkSet = []*api.Network{
		{
			ID:   "id1",
			Name: "name1",
		},
		{
			ID:   "id2",
			Name: "name2",
		},
		{
			ID:   "id3",
			Name: "name3",
		},
	}

	portSet = []*api.Port{
		{
			ID:           "port1",
			NetworkID:    "id1",
			MACAddress:   "fa:16:3e:00:00:01",
			AdminStateUp: true,
		},
		{
			ID:         "port2",
			NetworkID:  "id1",
			MACAddress: "fa:16:3e:00:00:02",
		},
		{
			// intentionally conflicting MAC address on another network
			ID:         "port3",
			NetworkID:  "id2",
			MACAddress: "fa:16:3e:00:00:02",
		},
	}

	segmentSet = []*api.Segment{
		{
			ID:              "seg1",
			NetworkID:       "id1",
			NetworkType:     "vlan",
			PhysicalNetwork: "physnet1",
			SegmentationID:  segmentationID(100),
			SegmentIndex:    0,
		},
		{
			ID:           "seg2",
			NetworkID:    "id1",
			NetworkType:  "vxlan",
			SegmentIndex: 1,
		},
		{
			ID:           "seg3",
			NetworkID:    "id2",
			NetworkType:  "flat",
			SegmentIndex: 0,
		},
	}

	portBindingSet = []*api.PortBinding{
		{
			PortID:   "port1",
			Host:     "host1",
			VNICType: api.VNICNormal,
		},
		{
			PortID:   "port2",
			VNICType: api.VNICNormal,
		},
	}

	bindingResultSet = []*api.BindingResult{
		{
			PortID:     "port1",
			Host:       "host1",
			VIFType:    "ovs",
			VIFDetails: `{"port_filter": true}`,
		},
		{
			PortID:  "port1",
			Host:    "host2",
			VIFType: "binding_failed",
		},
	}

	bindingLevelSet = []*api.BindingLevel{
		{
			PortID:    "port1",
			Host:      "host1",
			Level:     1,
			Driver:    "openvswitch",
			SegmentID: "seg2",
		},
		{
			PortID:    "port1",
			Host:      "host1",
			Level:     0,
			Driver:    "tor",
			SegmentID: "seg1",
		},
	}
)

func setupTestStore(t *testing.T, s *MemoryStore) {
	err := s.Update(func(tx Tx) error {
		// Prepopulate networks
		for _, n := range networkSet {
			assert.NoError(t, CreateNetwork(tx, n))
		}
		// Prepopulate ports
		for _, p := range portSet {
			assert.NoError(t, CreatePort(tx, p))
		}
		// Prepopulate segments
		for _, seg := range segmentSet {
			assert.NoError(t, CreateSegment(tx, seg))
		}
		// Prepopulate bindings
		for _, b := range portBindingSet {
			assert.NoError(t, CreatePortBinding(tx, b))
		}
		for _, r := range bindingResultSet {
			assert.NoError(t, CreateBindingResult(tx, r))
		}
		for _, l := range bindingLevelSet {
			assert.NoError(t, CreateBindingLevel(tx, l))
		}

		return nil
	})
	assert.NoError(t, err)
}

func TestStoreNetwork(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	s.View(func(readTx ReadTx) {
		allNetworks, err := FindNetworks(readTx, All)
		assert.NoError(t, err)
		assert.Empty(t, allNetworks)
	})

	setupTestStore(t, s)

	err := s.Update(func(tx Tx) error {
		allNetworks, err := FindNetworks(tx, All)
		assert.NoError(t, err)
		assert.Len(t, allNetworks, len(networkSet))

		assert.Equal(t, ErrExist, CreateNetwork(tx, networkSet[0]), "duplicate IDs must be rejected")
		return nil
	})
	assert.NoError(t, err)

	s.View(func(readTx ReadTx) {
		assert.Equal(t, networkSet[0], GetNetwork(readTx, "id1"))
		assert.Equal(t, networkSet[1], GetNetwork(readTx, "id2"))
		assert.Equal(t, networkSet[2], GetNetwork(readTx, "id3"))
		assert.Nil(t, GetNetwork(readTx, "id4"))

		foundNetworks, err := FindNetworks(readTx, ByIDPrefix("id"))
		assert.NoError(t, err)
		assert.Len(t, foundNetworks, 3)

		_, err = FindNetworks(readTx, ByHost("host1"))
		assert.Equal(t, ErrInvalidFindBy, err)
	})

	err = s.Update(func(tx Tx) error {
		assert.NoError(t, DeleteNetwork(tx, "id3"))
		assert.Nil(t, GetNetwork(tx, "id3"))
		assert.Equal(t, ErrNotExist, DeleteNetwork(tx, "nonexistent"))
		return nil
	})
	assert.NoError(t, err)
}

func TestStorePort(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	setupTestStore(t, s)

	s.View(func(readTx ReadTx) {
		assert.Equal(t, portSet[0], GetPort(readTx, "port1"))

		foundPorts, err := FindPorts(readTx, ByNetworkID("id1"))
		assert.NoError(t, err)
		assert.Len(t, foundPorts, 2)

		foundPorts, err = FindPorts(readTx, ByMACAddress("FA:16:3E:00:00:01"))
		assert.NoError(t, err)
		require.Len(t, foundPorts, 1)
		assert.Equal(t, "port1", foundPorts[0].ID)

		foundPorts, err = FindPorts(readTx, ByMACAddress("fa:16:3e:00:00:02"))
		assert.NoError(t, err)
		assert.Len(t, foundPorts, 2)

		foundPorts, err = FindPorts(readTx, ByIDPrefix("port"))
		assert.NoError(t, err)
		assert.Len(t, foundPorts, 3)
	})

	err := s.Update(func(tx Tx) error {
		err := CreatePort(tx, &api.Port{ID: "port4", NetworkID: "nonexistent"})
		assert.True(t, errors.Is(err, ErrNotExist))

		p := &api.Port{ID: "port5", NetworkID: "id3", MACAddress: "FA-16-3E-00-00-05"}
		assert.NoError(t, CreatePort(tx, p))
		assert.Equal(t, "fa:16:3e:00:00:05", GetPort(tx, "port5").MACAddress)

		moved := GetPort(tx, "port5")
		moved.NetworkID = "id1"
		assert.Error(t, UpdatePort(tx, moved))

		assert.Equal(t, ErrNotExist, UpdatePort(tx, &api.Port{ID: "nonexistent", NetworkID: "id1"}))
		return nil
	})
	assert.NoError(t, err)
}

func TestStoreSegment(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	setupTestStore(t, s)

	s.View(func(readTx ReadTx) {
		assert.Equal(t, segmentSet[0], GetSegment(readTx, "seg1"))

		foundSegments, err := FindSegments(readTx, ByNetworkID("id1"))
		assert.NoError(t, err)
		assert.Len(t, foundSegments, 2)

		foundSegments, err = FindSegments(readTx, ByNetworkID("id3"))
		assert.NoError(t, err)
		assert.Empty(t, foundSegments)
	})

	err := s.Update(func(tx Tx) error {
		// The segment index of a network is taken.
		err := CreateSegment(tx, &api.Segment{ID: "seg4", NetworkID: "id1", NetworkType: "vlan", SegmentIndex: 1})
		assert.True(t, errors.Is(err, ErrSequenceConflict))
		assert.True(t, IsRetryable(err))

		// The same index on another network is fine.
		assert.NoError(t, CreateSegment(tx, &api.Segment{ID: "seg4", NetworkID: "id3", NetworkType: "vlan", SegmentIndex: 1}))

		err = CreateSegment(tx, &api.Segment{ID: "seg5", NetworkID: "nonexistent"})
		assert.True(t, errors.Is(err, ErrNotExist))

		// seg1 is used by a binding level of port1.
		err = DeleteSegment(tx, "seg1")
		assert.True(t, errors.Is(err, ErrReferentialConflict))
		assert.NotNil(t, GetSegment(tx, "seg1"))

		assert.NoError(t, DeleteSegment(tx, "seg3"))
		assert.Equal(t, ErrNotExist, DeleteSegment(tx, "seg3"))
		return nil
	})
	assert.NoError(t, err)
}

func TestStoreBindings(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	setupTestStore(t, s)

	s.View(func(readTx ReadTx) {
		assert.Equal(t, portBindingSet[0], GetPortBinding(readTx, "port1"))
		assert.Nil(t, GetPortBinding(readTx, "port3"))

		foundBindings, err := FindPortBindings(readTx, ByHost("host1"))
		assert.NoError(t, err)
		require.Len(t, foundBindings, 1)
		assert.Equal(t, "port1", foundBindings[0].PortID)

		assert.Equal(t, bindingResultSet[0], GetBindingResult(readTx, "port1", "host1"))
		assert.Nil(t, GetBindingResult(readTx, "port1", "host3"))

		foundResults, err := FindBindingResults(readTx, ByPortID("port1"))
		assert.NoError(t, err)
		assert.Equal(t, bindingResultSet, foundResults)

		foundResults, err = FindBindingResults(readTx, ByHost("host2"))
		assert.NoError(t, err)
		assert.Equal(t, bindingResultSet[1:], foundResults)

		// Levels come back ordered by level.
		foundLevels, err := FindBindingLevels(readTx, ByBinding("port1", "host1"))
		assert.NoError(t, err)
		assert.Equal(t, []*api.BindingLevel{bindingLevelSet[1], bindingLevelSet[0]}, foundLevels)

		foundLevels, err = FindBindingLevels(readTx, BySegmentID("seg2"))
		assert.NoError(t, err)
		assert.Len(t, foundLevels, 1)

		assert.Equal(t, bindingLevelSet[1], GetBindingLevel(readTx, "port1", "host1", 0))
	})

	err := s.Update(func(tx Tx) error {
		assert.Equal(t, ErrExist, CreatePortBinding(tx, &api.PortBinding{PortID: "port1"}))

		err := CreatePortBinding(tx, &api.PortBinding{PortID: "nonexistent"})
		assert.True(t, errors.Is(err, ErrNotExist))

		err = CreateBindingLevel(tx, &api.BindingLevel{PortID: "port2", Host: "host1", Driver: "d", SegmentID: "nonexistent"})
		assert.True(t, errors.Is(err, ErrNotExist))

		r := GetBindingResult(tx, "port1", "host2")
		r.VIFType = "ovs"
		assert.NoError(t, UpdateBindingResult(tx, r))
		assert.Equal(t, "ovs", GetBindingResult(tx, "port1", "host2").VIFType)

		assert.NoError(t, DeleteBindingLevel(tx, "port1", "host1", 1))
		assert.Equal(t, ErrNotExist, DeleteBindingLevel(tx, "port1", "host1", 1))
		assert.NoError(t, DeleteBindingResult(tx, "port1", "host2"))
		return nil
	})
	assert.NoError(t, err)
}

func TestPortIDPrefixIsolation(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	err := s.Update(func(tx Tx) error {
		require.NoError(t, CreateNetwork(tx, &api.Network{ID: "net"}))
		for _, id := range []string{"p1", "p10"} {
			require.NoError(t, CreatePort(tx, &api.Port{ID: id, NetworkID: "net"}))
			require.NoError(t, CreateBindingResult(tx, &api.BindingResult{PortID: id, Host: "h", VIFType: "ovs"}))
			require.NoError(t, CreateBindingLevel(tx, &api.BindingLevel{PortID: id, Host: "h", Driver: "d"}))
		}
		return nil
	})
	require.NoError(t, err)

	s.View(func(readTx ReadTx) {
		results, err := FindBindingResults(readTx, ByPortID("p1"))
		assert.NoError(t, err)
		assert.Len(t, results, 1)

		levels, err := FindBindingLevels(readTx, ByPortID("p1"))
		assert.NoError(t, err)
		assert.Len(t, levels, 1)
	})
}

func TestRejectKeySeparator(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	err := s.Update(func(tx Tx) error {
		require.NoError(t, CreateNetwork(tx, &api.Network{ID: "net"}))
		require.NoError(t, CreatePort(tx, &api.Port{ID: "p", NetworkID: "net"}))
		require.NoError(t, CreateBindingResult(tx, &api.BindingResult{PortID: "p", Host: "h", VIFType: "ovs"}))

		for _, err := range []error{
			CreateNetwork(tx, &api.Network{ID: "net" + api.KeySeparator + "x"}),
			CreatePort(tx, &api.Port{ID: "p" + api.KeySeparator + "h", NetworkID: "net"}),
			CreatePort(tx, &api.Port{ID: strings.Repeat("p", api.MaxPortIDLength+1), NetworkID: "net"}),
			CreateSegment(tx, &api.Segment{ID: "s" + api.KeySeparator, NetworkID: "net", NetworkType: "vlan"}),
			CreatePortBinding(tx, &api.PortBinding{PortID: "p", Host: "h" + api.KeySeparator + "x"}),
			CreateBindingResult(tx, &api.BindingResult{PortID: "p", Host: api.KeySeparator + "h", VIFType: "ovs"}),
			CreateBindingLevel(tx, &api.BindingLevel{PortID: "p", Host: "h" + api.KeySeparator, Driver: "d"}),
		} {
			assert.True(t, errors.Is(err, ErrInvalidID), "got %v", err)
		}

		// Limits count characters.
		require.NoError(t, CreatePort(tx, &api.Port{ID: strings.Repeat("é", api.MaxPortIDLength), NetworkID: "net"}))
		return nil
	})
	require.NoError(t, err)

	err = s.Update(func(tx Tx) error {
		return DeletePort(tx, "p")
	})
	require.NoError(t, err)

	s.View(func(readTx ReadTx) {
		ports, err := FindPorts(readTx, All)
		assert.NoError(t, err)
		assert.Len(t, ports, 1)
	})
}

func TestDeletePortCascades(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	setupTestStore(t, s)

	err := s.Update(func(tx Tx) error {
		return DeletePort(tx, "port1")
	})
	require.NoError(t, err)

	s.View(func(readTx ReadTx) {
		assert.Nil(t, GetPort(readTx, "port1"))
		assert.Nil(t, GetPortBinding(readTx, "port1"))

		results, err := FindBindingResults(readTx, ByPortID("port1"))
		assert.NoError(t, err)
		assert.Empty(t, results)

		levels, err := FindBindingLevels(readTx, ByPortID("port1"))
		assert.NoError(t, err)
		assert.Empty(t, levels)

		// Other ports are untouched.
		assert.NotNil(t, GetPortBinding(readTx, "port2"))
	})

	// With the levels gone, seg1 is free to be deleted.
	err = s.Update(func(tx Tx) error {
		return DeleteSegment(tx, "seg1")
	})
	assert.NoError(t, err)
}

func TestDeleteNetworkCascades(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	setupTestStore(t, s)

	err := s.Update(func(tx Tx) error {
		return DeleteNetwork(tx, "id1")
	})
	require.NoError(t, err)

	s.View(func(readTx ReadTx) {
		ports, err := FindPorts(readTx, ByNetworkID("id1"))
		assert.NoError(t, err)
		assert.Empty(t, ports)

		segments, err := FindSegments(readTx, ByNetworkID("id1"))
		assert.NoError(t, err)
		assert.Empty(t, segments)

		results, err := FindBindingResults(readTx, All)
		assert.NoError(t, err)
		assert.Empty(t, results)

		assert.NotNil(t, GetPort(readTx, "port3"))
		assert.NotNil(t, GetSegment(readTx, "seg3"))
	})
}

func TestStoreSnapshot(t *testing.T) {
	s1 := NewMemoryStore(nil)
	assert.NotNil(t, s1)

	setupTestStore(t, s1)

	s2 := NewMemoryStore(nil)
	assert.NotNil(t, s2)

	copyToS2 := func(readTx ReadTx) error {
		snapshot, err := s1.Save(readTx)
		if err != nil {
			return err
		}
		return s2.Restore(snapshot)
	}

	// Fork
	watcher, cancel, err := ViewAndWatch(s1, copyToS2, api.EventCreate{Object: &api.Port{}})
	require.NoError(t, err)
	defer cancel()

	s2.View(func(tx2 ReadTx) {
		assert.Equal(t, networkSet[0], GetNetwork(tx2, "id1"))
		assert.Equal(t, portSet[2], GetPort(tx2, "port3"))
		assert.Equal(t, segmentSet[0], GetSegment(tx2, "seg1"))
		assert.Equal(t, bindingResultSet[0], GetBindingResult(tx2, "port1", "host1"))
	})

	// Create a segment. It is filtered out of the watch.
	err = s1.Update(func(tx1 Tx) error {
		return CreateSegment(tx1, &api.Segment{ID: "seg4", NetworkID: "id3", NetworkType: "flat"})
	})
	assert.NoError(t, err)

	// Create a port
	createPort := &api.Port{
		ID:        "port4",
		NetworkID: "id3",
	}
	err = s1.Update(func(tx1 Tx) error {
		return CreatePort(tx1, createPort)
	})
	assert.NoError(t, err)

	event := <-watcher
	created, ok := event.(api.EventCreate)
	require.True(t, ok, "expected EventCreate; got %#v", event)
	assert.Equal(t, createPort, created.Object)

	select {
	case event := <-watcher:
		t.Fatalf("unexpected event %#v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFailedTransaction(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	// Create one network
	err := s.Update(func(tx Tx) error {
		assert.NoError(t, CreateNetwork(tx, &api.Network{ID: "id1", Name: "name1"}))
		return nil
	})
	assert.NoError(t, err)

	// Create a second network, but then roll back the transaction
	err = s.Update(func(tx Tx) error {
		assert.NoError(t, CreateNetwork(tx, &api.Network{ID: "id2", Name: "name2"}))
		return errors.New("rollback")
	})
	assert.Error(t, err)

	s.View(func(tx ReadTx) {
		foundNetworks, err := FindNetworks(tx, All)
		assert.NoError(t, err)
		assert.Len(t, foundNetworks, 1)
		assert.Nil(t, GetNetwork(tx, "id2"))
	})
}

func TestPanicRollsBack(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	assert.Panics(t, func() {
		_ = s.Update(func(tx Tx) error {
			assert.NoError(t, CreateNetwork(tx, &api.Network{ID: "id1"}))
			panic("boom")
		})
	})

	// The store is usable again and the network was not kept.
	err := s.Update(func(tx Tx) error {
		assert.Nil(t, GetNetwork(tx, "id1"))
		return CreateNetwork(tx, &api.Network{ID: "id2"})
	})
	assert.NoError(t, err)
}

type mockProposer struct {
	index uint64
}

func (mp *mockProposer) ProposeValue(ctx context.Context, storeAction []api.StoreAction, cb func()) error {
	if cb != nil {
		cb()
	}
	return nil
}

func (mp *mockProposer) GetVersion() *api.Version {
	mp.index += 3
	return &api.Version{Index: mp.index}
}

type failingProposer struct {
	mockProposer
	proposed []api.StoreAction
}

func (fp *failingProposer) ProposeValue(ctx context.Context, storeAction []api.StoreAction, cb func()) error {
	fp.proposed = storeAction
	return errors.New("disk full")
}

func TestProposerFailure(t *testing.T) {
	var proposer failingProposer
	s := NewMemoryStore(&proposer)
	assert.NotNil(t, s)

	watch, cancel := s.WatchQueue().Watch()
	defer cancel()

	err := s.Update(func(tx Tx) error {
		return CreateNetwork(tx, &api.Network{ID: "id1"})
	})
	assert.EqualError(t, err, "disk full")

	require.Len(t, proposer.proposed, 1)
	assert.Equal(t, api.StoreActionKindCreate, proposer.proposed[0].Action)
	assert.Equal(t, "id1", proposer.proposed[0].Target.GetID())

	s.View(func(tx ReadTx) {
		assert.Nil(t, GetNetwork(tx, "id1"))
	})

	select {
	case event := <-watch:
		t.Fatalf("unexpected event %#v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestVersion(t *testing.T) {
	var mockProposer mockProposer
	s := NewMemoryStore(&mockProposer)
	assert.NotNil(t, s)

	var (
		retrievedPort  *api.Port
		retrievedPort2 *api.Port
	)

	err := s.Update(func(tx Tx) error {
		return CreateNetwork(tx, &api.Network{ID: "id1"})
	})
	assert.NoError(t, err)

	// Create one port
	p := &api.Port{
		ID:        "port1",
		NetworkID: "id1",
		Status:    "DOWN",
	}
	err = s.Update(func(tx Tx) error {
		assert.NoError(t, CreatePort(tx, p))
		return nil
	})
	assert.NoError(t, err)

	// Update the port using an object fetched from the store.
	p.Status = "ACTIVE"
	err = s.Update(func(tx Tx) error {
		assert.NoError(t, UpdatePort(tx, p))
		retrievedPort = GetPort(tx, p.ID)
		return nil
	})
	assert.NoError(t, err)

	// Make sure the store is updating our local copy with the version.
	assert.Equal(t, p.Meta.Version, retrievedPort.Meta.Version)

	// Try again, this time using the retrieved port.
	retrievedPort.Status = "BUILD"
	err = s.Update(func(tx Tx) error {
		assert.NoError(t, UpdatePort(tx, retrievedPort))
		retrievedPort2 = GetPort(tx, p.ID)
		return nil
	})
	assert.NoError(t, err)

	// Try to update p again. This should fail because it carries stale
	// sequence information.
	p.Status = "ERROR"
	err = s.Update(func(tx Tx) error {
		assert.Equal(t, ErrSequenceConflict, UpdatePort(tx, p))
		return nil
	})
	assert.NoError(t, err)

	// But using retrievedPort2 should work, since it has the latest
	// sequence information.
	retrievedPort2.Status = "ERROR"
	err = s.Update(func(tx Tx) error {
		assert.NoError(t, UpdatePort(tx, retrievedPort2))
		return nil
	})
	assert.NoError(t, err)
}

func TestTimestamps(t *testing.T) {
	var mockProposer mockProposer
	s := NewMemoryStore(&mockProposer)
	assert.NotNil(t, s)

	var (
		retrievedNetwork *api.Network
		updatedNetwork   *api.Network
	)

	// Create one network
	n := &api.Network{
		ID:   "id1",
		Name: "name1",
	}
	err := s.Update(func(tx Tx) error {
		assert.NoError(t, CreateNetwork(tx, n))
		return nil
	})
	assert.NoError(t, err)

	// Make sure our local copy got updated.
	assert.NotZero(t, n.Meta.CreatedAt)
	assert.NotZero(t, n.Meta.UpdatedAt)
	// Since this is a new network, CreatedAt should equal UpdatedAt.
	assert.Equal(t, n.Meta.CreatedAt, n.Meta.UpdatedAt)

	// Fetch the network from the store and make sure timestamps match.
	s.View(func(tx ReadTx) {
		retrievedNetwork = GetNetwork(tx, n.ID)
	})
	assert.Equal(t, retrievedNetwork.Meta.CreatedAt, n.Meta.CreatedAt)
	assert.Equal(t, retrievedNetwork.Meta.UpdatedAt, n.Meta.UpdatedAt)

	// Make an update.
	time.Sleep(time.Millisecond)
	retrievedNetwork.Name = "name2"
	err = s.Update(func(tx Tx) error {
		assert.NoError(t, UpdateNetwork(tx, retrievedNetwork))
		updatedNetwork = GetNetwork(tx, n.ID)
		return nil
	})
	assert.NoError(t, err)

	// Ensure `CreatedAt` is the same after the update and `UpdatedAt` got updated.
	assert.Equal(t, updatedNetwork.Meta.CreatedAt, n.Meta.CreatedAt)
	assert.NotEqual(t, updatedNetwork.Meta.CreatedAt, updatedNetwork.Meta.UpdatedAt)
}

func TestUpdateExcludesWriters(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.NotNil(t, s)

	setupTestStore(t, s)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		assert.NoError(t, s.Update(func(tx Tx) error {
			close(locked)
			<-release
			record("first")
			return nil
		}))
	}()
	<-locked

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		assert.NoError(t, s.Update(func(tx Tx) error {
			record("second")
			return nil
		}))
	}()

	select {
	case <-secondDone:
		t.Fatal("second writer ran while the first one held the store")
	case <-time.After(50 * time.Millisecond):
	}

	// Readers are not blocked by the writer.
	s.View(func(readTx ReadTx) {
		assert.NotNil(t, GetNetwork(readTx, "id1"))
	})

	close(release)
	<-firstDone
	<-secondDone
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestWriterLockTracksHolder(t *testing.T) {
	var m timedMutex
	m.Lock()
	assert.False(t, m.lockedAt.IsZero())
	m.Unlock()
	assert.True(t, m.lockedAt.IsZero())

	s := NewMemoryStore(nil)
	defer s.Close()
	require.NoError(t, s.Update(func(tx Tx) error {
		assert.False(t, s.updateLock.lockedAt.IsZero(), "held during updates")
		return CreateNetwork(tx, &api.Network{ID: "net"})
	}))
	assert.True(t, s.updateLock.lockedAt.IsZero())
}

func TestBatch(t *testing.T) {
	var mockProposer mockProposer
	s := NewMemoryStore(&mockProposer)
	assert.NotNil(t, s)

	watch, cancel := s.WatchQueue().Watch()
	defer cancel()

	// Create 405 networks. Should get split across 3 transactions.
	committed, err := s.Batch(func(batch *Batch) error {
		for i := 0; i != 2*MaxChangesPerTransaction+5; i++ {
			n := &api.Network{
				ID:   "id" + strconv.Itoa(i),
				Name: "name" + strconv.Itoa(i),
			}

			batch.Update(func(tx Tx) error {
				assert.NoError(t, CreateNetwork(tx, n))
				return nil
			})
		}

		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2*MaxChangesPerTransaction+5, committed)

	for _, count := range []int{MaxChangesPerTransaction, MaxChangesPerTransaction, 5} {
		for i := 0; i != count; i++ {
			event := <-watch
			if _, ok := event.(api.EventCreate); !ok {
				t.Fatalf("expected EventCreate; got %#v", event)
			}
		}
		event := <-watch
		if _, ok := event.(api.EventCommit); !ok {
			t.Fatalf("expected EventCommit; got %#v", event)
		}
	}
}

func TestBatchFailure(t *testing.T) {
	var mockProposer mockProposer
	s := NewMemoryStore(&mockProposer)
	assert.NotNil(t, s)

	watch, cancel := s.WatchQueue().Watch()
	defer cancel()

	// Return an error partway through a transaction.
	committed, err := s.Batch(func(batch *Batch) error {
		for i := 0; ; i++ {
			n := &api.Network{
				ID:   "id" + strconv.Itoa(i),
				Name: "name" + strconv.Itoa(i),
			}

			batch.Update(func(tx Tx) error {
				assert.NoError(t, CreateNetwork(tx, n))
				return nil
			})
			if i == MaxChangesPerTransaction+8 {
				return errors.New("failing the current tx")
			}
		}
	})
	assert.Error(t, err)
	assert.Equal(t, MaxChangesPerTransaction, committed)

	for i := 0; i != MaxChangesPerTransaction; i++ {
		event := <-watch
		if _, ok := event.(api.EventCreate); !ok {
			t.Fatalf("expected EventCreate; got %#v", event)
		}
	}
	event := <-watch
	if _, ok := event.(api.EventCommit); !ok {
		t.Fatalf("expected EventCommit; got %#v", event)
	}

	// Shouldn't be anything after the first transaction
	select {
	case <-watch:
		t.Fatalf("unexpected additional events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoreSaveRestore(t *testing.T) {
	s1 := NewMemoryStore(nil)
	assert.NotNil(t, s1)

	setupTestStore(t, s1)

	var snapshot *api.StoreSnapshot
	s1.View(func(tx ReadTx) {
		var err error
		snapshot, err = s1.Save(tx)
		assert.NoError(t, err)
	})

	s2 := NewMemoryStore(nil)
	assert.NotNil(t, s2)

	// Content restored over is replaced.
	err := s2.Update(func(tx Tx) error {
		return CreateNetwork(tx, &api.Network{ID: "stale"})
	})
	require.NoError(t, err)

	err = s2.Restore(snapshot)
	assert.NoError(t, err)

	s2.View(func(tx ReadTx) {
		assert.Nil(t, GetNetwork(tx, "stale"))

		allNetworks, err := FindNetworks(tx, All)
		assert.NoError(t, err)
		assert.Equal(t, networkSet, allNetworks)

		allPorts, err := FindPorts(tx, All)
		assert.NoError(t, err)
		assert.Equal(t, portSet, allPorts)

		allSegments, err := FindSegments(tx, All)
		assert.NoError(t, err)
		assert.Equal(t, segmentSet, allSegments)

		allBindings, err := FindPortBindings(tx, All)
		assert.NoError(t, err)
		assert.Equal(t, portBindingSet, allBindings)

		allResults, err := FindBindingResults(tx, All)
		assert.NoError(t, err)
		assert.Equal(t, bindingResultSet, allResults)

		allLevels, err := FindBindingLevels(tx, All)
		assert.NoError(t, err)
		assert.Len(t, allLevels, len(bindingLevelSet))
	})
}

const benchmarkNumPorts = 10000

func setupPorts(b *testing.B, n int) (*MemoryStore, []string) {
	s := NewMemoryStore(nil)

	portIDs := make([]string, n)

	for i := 0; i < n; i++ {
		portIDs[i] = identity.NewID()
	}

	err := s.Update(func(tx Tx) error {
		return CreateNetwork(tx, &api.Network{ID: "net"})
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	_ = s.Update(func(tx1 Tx) error {
		for i := 0; i < n; i++ {
			_ = CreatePort(tx1, &api.Port{
				ID:         portIDs[i],
				NetworkID:  "net",
				MACAddress: identity.NewMAC(identity.DefaultMACBase),
			})
		}
		return nil
	})

	return s, portIDs
}

func BenchmarkCreatePort(b *testing.B) {
	setupPorts(b, b.N)
}

func BenchmarkGetPort(b *testing.B) {
	s, portIDs := setupPorts(b, benchmarkNumPorts)
	b.ResetTimer()
	s.View(func(tx1 ReadTx) {
		for i := 0; i < b.N; i++ {
			_ = GetPort(tx1, portIDs[i%benchmarkNumPorts])
		}
	})
}

package store

import (
	memdb "github.com/hashicorp/go-memdb"
	"github.com/vnetkit/bindstate/api"
)

// ObjectStoreConfig provides the necessary methods to store a particular object
// type inside MemoryStore.
type ObjectStoreConfig struct {
	Table   *memdb.TableSchema
	Save    func(ReadTx, *api.StoreSnapshot) error
	Restore func(Tx, *api.StoreSnapshot) error
}

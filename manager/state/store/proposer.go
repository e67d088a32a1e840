package store

import (
	"context"

	"github.com/vnetkit/bindstate/api"
)

// A Proposer makes store transactions durable.
type Proposer interface {
	// ProposeValue persists the actions of one transaction. If this
	// completes successfully, ProposeValue calls cb to commit the
	// proposed changes in memory. The callback is necessary for the
	// Proposer to make sure that the changes are committed before it
	// interacts further with the store.
	ProposeValue(ctx context.Context, storeAction []api.StoreAction, cb func()) error
	// GetVersion returns the version the next transaction is stamped with.
	GetVersion() *api.Version
}

package store

import (
	"context"
	"runtime"
	"sync"
	"time"

	metrics "github.com/docker/go-metrics"
	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/log"
	"github.com/vnetkit/bindstate/watch"
)

const (
	indexID           = "id"
	indexNetworkID    = "networkid"
	indexMACAddress   = "macaddress"
	indexHost         = "host"
	indexSegmentID    = "segmentid"
	indexSegmentIndex = "segmentindex"

	prefix = "_prefix"

	// MaxChangesPerTransaction is the number of changes after which a new
	// transaction should be started within Batch.
	MaxChangesPerTransaction = 200
)

var (
	// ErrExist is returned by create operations if the provided ID is already
	// taken.
	ErrExist = errors.New("object already exists")

	// ErrNotExist is returned by altering operations (update, delete) if the
	// provided ID is not found, and by create operations if an object the new
	// object refers to is not found.
	ErrNotExist = errors.New("object does not exist")

	// ErrInvalidFindBy is returned if an unrecognized type is passed to Find.
	ErrInvalidFindBy = errors.New("invalid find argument type")

	// ErrSequenceConflict is returned when trying to update an object
	// whose sequence information does not match the object in the store's,
	// or when two writers claimed the same segment index. The operation
	// can be retried against fresh state.
	ErrSequenceConflict = errors.New("update out of sequence")

	// ErrInvalidID is returned by create and update operations when an ID
	// or host name cannot be stored.
	ErrInvalidID = errors.New("invalid object ID")

	// ErrReferentialConflict is returned when deleting an object that is
	// still referenced by another object.
	ErrReferentialConflict = errors.New("object is still referenced")
)

var (
	objectStorers = make(map[string]ObjectStoreConfig)
	schema        = &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{},
	}

	// timer to capture the duration for which the memory store mutex is locked
	lockDurationTimer metrics.Timer
	// timers to capture store latencies
	updateLatencyTimer metrics.Timer
	viewLatencyTimer   metrics.Timer
	batchLatencyTimer  metrics.Timer
)

func init() {
	ns := metrics.NewNamespace("bindstate", "store", nil)
	updateLatencyTimer = ns.NewTimer("write_tx_latency",
		"Write transaction latency.")
	viewLatencyTimer = ns.NewTimer("read_tx_latency",
		"Read transaction latency.")
	batchLatencyTimer = ns.NewTimer("batch_latency",
		"Batch latency.")
	lockDurationTimer = ns.NewTimer("memory_store_lock_duration",
		"Duration for which the memory store mutex was held.")
	metrics.Register(ns)
}

func register(os ObjectStoreConfig) {
	objectStorers[os.Table.Name] = os
	schema.Tables[os.Table.Name] = os.Table
}

// IsRetryable reports whether err is a transient conflict that may succeed
// when the transaction is run again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSequenceConflict)
}

// timedMutex is the writer lock of a MemoryStore. The time it is held is
// reported to lockDurationTimer. lockedAt is only accessed by the holder.
type timedMutex struct {
	sync.Mutex
	lockedAt time.Time
}

func (m *timedMutex) Lock() {
	m.Mutex.Lock()
	m.lockedAt = time.Now()
}

func (m *timedMutex) Unlock() {
	held := time.Since(m.lockedAt)
	m.lockedAt = time.Time{}
	m.Mutex.Unlock()
	lockDurationTimer.Update(held)
}

// MemoryStore is a concurrency-safe, in-memory implementation of the Store
// interface.
type MemoryStore struct {
	// updateLock must be held during an update transaction.
	updateLock timedMutex

	memDB *memdb.MemDB
	queue *watch.Queue

	proposer Proposer
}

// NewMemoryStore returns an in-memory store. The argument is an optional
// Proposer which will be used to make changes durable before they are
// committed.
func NewMemoryStore(proposer Proposer) *MemoryStore {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		// This shouldn't fail
		panic(err)
	}

	return &MemoryStore{
		memDB:    memDB,
		queue:    watch.NewQueue(),
		proposer: proposer,
	}
}

// Close closes the memory store and frees its associated resources.
func (s *MemoryStore) Close() error {
	return s.queue.Close()
}

func fromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.Errorf("must provide only a single argument")
	}
	arg, ok := args[0].(string)
	if !ok {
		return nil, errors.Errorf("argument must be a string: %#v", args[0])
	}
	// Add the null character as a terminator
	arg += "\x00"
	return []byte(arg), nil
}

func prefixFromArgs(args ...interface{}) ([]byte, error) {
	val, err := fromArgs(args...)
	if err != nil {
		return nil, err
	}

	// Strip the null terminator, the rest is a prefix
	n := len(val)
	if n > 0 {
		return val[:n-1], nil
	}
	return val, nil
}

// objectIndexer indexes store objects by a string key derived from the
// object. A false second return leaves the object out of the index.
type objectIndexer func(o api.StoreObject) (string, bool)

func (f objectIndexer) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (f objectIndexer) PrefixFromArgs(args ...interface{}) ([]byte, error) {
	return prefixFromArgs(args...)
}

func (f objectIndexer) FromObject(obj interface{}) (bool, []byte, error) {
	o, ok := obj.(api.StoreObject)
	if !ok {
		panic("unexpected type passed to FromObject")
	}

	key, ok := f(o)
	if !ok {
		return false, nil, nil
	}
	// Add the null character as a terminator
	return true, []byte(key + "\x00"), nil
}

var indexerByID = objectIndexer(func(o api.StoreObject) (string, bool) {
	return o.GetID(), true
})

// ReadTx is a read transaction. Note that transaction does not imply
// any internal batching. It only means that the transaction presents a
// consistent view of the data that cannot be affected by other
// transactions.
type ReadTx interface {
	lookup(table, index, id string) api.StoreObject
	get(table, id string) api.StoreObject
	find(table string, by By, checkType func(By) error, appendResult func(api.StoreObject)) error
}

type readTx struct {
	memDBTx *memdb.Txn
}

// View executes a read transaction.
func (s *MemoryStore) View(cb func(ReadTx)) {
	defer metrics.StartTimer(viewLatencyTimer)()
	memDBTx := s.memDB.Txn(false)

	readTx := readTx{
		memDBTx: memDBTx,
	}
	cb(readTx)
	memDBTx.Commit()
}

// Tx is a read/write transaction. Note that transaction does not imply
// any internal batching. The purpose of this transaction is to give the
// user a guarantee that its changes won't be visible to other transactions
// until the transaction is over.
//
// Only one Tx exists at a time, so holding a Tx excludes every other writer
// until the transaction commits or rolls back.
type Tx interface {
	ReadTx
	create(table string, o api.StoreObject) error
	update(table string, o api.StoreObject) error
	delete(table, id string) error
}

type tx struct {
	readTx
	curVersion *api.Version
	changelist []api.Event
}

func (s *MemoryStore) update(proposer Proposer, cb func(Tx) error) error {
	defer metrics.StartTimer(updateLatencyTimer)()
	s.updateLock.Lock()
	defer s.updateLock.Unlock()

	memDBTx := s.memDB.Txn(true)
	// Abort is a no-op once the transaction is committed, so this also
	// rolls back when cb panics.
	defer memDBTx.Abort()

	var curVersion *api.Version

	if proposer != nil {
		curVersion = proposer.GetVersion()
	}

	var tx tx
	tx.init(memDBTx, curVersion)

	err := cb(&tx)

	if err == nil {
		if proposer == nil {
			memDBTx.Commit()
		} else {
			var sa []api.StoreAction
			sa, err = tx.changelistStoreActions()

			if err == nil {
				if len(sa) != 0 {
					err = proposer.ProposeValue(context.Background(), sa, func() {
						memDBTx.Commit()
					})
					if err != nil {
						log.L.WithError(err).Error("failed to persist store transaction")
					}
				} else {
					memDBTx.Commit()
				}
			}
		}
	}

	if err == nil {
		for _, c := range tx.changelist {
			s.queue.Publish(c)
		}
		if len(tx.changelist) != 0 {
			s.queue.Publish(api.EventCommit{Version: curVersion})
		}
	}
	return err
}

func (s *MemoryStore) updateLocal(cb func(Tx) error) error {
	return s.update(nil, cb)
}

// Update executes a read/write transaction. The transaction is committed
// only if cb returns nil and the proposer, if any, accepted the changes.
// Otherwise none of the changes made by cb are kept.
func (s *MemoryStore) Update(cb func(Tx) error) error {
	return s.update(s.proposer, cb)
}

// Batch provides a mechanism to batch updates to a store.
type Batch struct {
	tx    tx
	store *MemoryStore
	// applied counts the times Update has run successfully
	applied int
	// committed is the number of times Update had run successfully as of
	// the time pending changes were committed.
	committed int
	// changelistLen is the last known length of the transaction's
	// changelist.
	changelistLen int
	err           error
}

// Update adds a single change to a batch. Each call to Update is atomic, but
// different calls to Update may be spread across multiple transactions to
// circumvent transaction size limits.
func (batch *Batch) Update(cb func(Tx) error) error {
	if batch.err != nil {
		return batch.err
	}

	if err := cb(&batch.tx); err != nil {
		return err
	}

	batch.applied++
	batch.changelistLen = len(batch.tx.changelist)

	if batch.changelistLen >= MaxChangesPerTransaction {
		if err := batch.commit(); err != nil {
			return err
		}

		// Yield the update lock
		batch.store.updateLock.Unlock()
		runtime.Gosched()
		batch.store.updateLock.Lock()

		batch.newTx()
	}

	return nil
}

func (batch *Batch) newTx() {
	var curVersion *api.Version

	if batch.store.proposer != nil {
		curVersion = batch.store.proposer.GetVersion()
	}

	batch.tx.init(batch.store.memDB.Txn(true), curVersion)
	batch.changelistLen = 0
}

func (batch *Batch) commit() error {
	if batch.store.proposer != nil {
		var sa []api.StoreAction
		sa, batch.err = batch.tx.changelistStoreActions()

		if batch.err == nil {
			if len(sa) != 0 {
				batch.err = batch.store.proposer.ProposeValue(context.Background(), sa, func() {
					batch.tx.memDBTx.Commit()
				})
			} else {
				batch.tx.memDBTx.Commit()
			}
		}
	} else {
		batch.tx.memDBTx.Commit()
	}

	if batch.err != nil {
		batch.tx.memDBTx.Abort()
		return batch.err
	}

	batch.committed = batch.applied

	for _, c := range batch.tx.changelist {
		batch.store.queue.Publish(c)
	}
	if len(batch.tx.changelist) != 0 {
		batch.store.queue.Publish(api.EventCommit{Version: batch.tx.curVersion})
	}

	return nil
}

// Batch performs one or more transactions that allow reads and writes
// It invokes a callback that is passed a Batch object. The callback may
// call batch.Update for each change it wants to make as part of the
// batch. The changes in the batch may be split over multiple
// transactions if necessary to keep transactions below the size limit.
// Batch holds a lock over the state, but will yield this lock every
// it creates a new transaction to allow other writers to proceed.
// Thus, unrelated changes to the state may occur between calls to
// batch.Update.
//
// This method allows the caller to iterate over a data set and apply
// changes in sequence without holding the store write lock for an
// excessive time, or producing a transaction that exceeds the maximum
// size.
//
// If Batch returns an error, no guarantees are made about how many updates
// were committed successfully.
func (s *MemoryStore) Batch(cb func(*Batch) error) (int, error) {
	defer metrics.StartTimer(batchLatencyTimer)()
	s.updateLock.Lock()

	batch := Batch{
		store: s,
	}
	batch.newTx()

	if err := cb(&batch); err != nil {
		batch.tx.memDBTx.Abort()
		s.updateLock.Unlock()
		return batch.committed, err
	}

	err := batch.commit()
	s.updateLock.Unlock()
	return batch.committed, err
}

func (tx *tx) init(memDBTx *memdb.Txn, curVersion *api.Version) {
	tx.memDBTx = memDBTx
	tx.curVersion = curVersion
	tx.changelist = nil
}

func newStoreAction(c api.Event) (api.StoreAction, error) {
	switch v := c.(type) {
	case api.EventCreate:
		return api.StoreAction{Action: api.StoreActionKindCreate, Target: v.Object}, nil
	case api.EventUpdate:
		return api.StoreAction{Action: api.StoreActionKindUpdate, Target: v.Object}, nil
	case api.EventDelete:
		return api.StoreAction{Action: api.StoreActionKindRemove, Target: v.Object}, nil
	}
	return api.StoreAction{}, errors.New("unrecognized event type")
}

func (tx tx) changelistStoreActions() ([]api.StoreAction, error) {
	var actions []api.StoreAction

	for _, c := range tx.changelist {
		sa, err := newStoreAction(c)
		if err != nil {
			return nil, err
		}
		actions = append(actions, sa)
	}

	return actions, nil
}

// lookup is an internal typed wrapper around memdb.
func (tx readTx) lookup(table, index, id string) api.StoreObject {
	j, err := tx.memDBTx.First(table, index, id)
	if err != nil {
		return nil
	}
	if j != nil {
		return j.(api.StoreObject)
	}
	return nil
}

func touchMeta(meta *api.Meta, version *api.Version) {
	// Skip meta update if version is not defined as it means that we're
	// restoring from a snapshot.
	if version == nil {
		return
	}

	now := time.Now().UTC().Round(0)

	meta.Version = *version

	// Updated CreatedAt if not defined
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}

	meta.UpdatedAt = now
}

// create adds a new object to the store.
// Returns ErrExist if the ID is already taken.
func (tx *tx) create(table string, o api.StoreObject) error {
	if tx.lookup(table, indexID, o.GetID()) != nil {
		return ErrExist
	}

	copy := o.CopyStoreObject()
	meta := copy.GetMeta()
	touchMeta(&meta, tx.curVersion)
	copy.SetMeta(meta)

	err := tx.memDBTx.Insert(table, copy)
	if err == nil {
		tx.changelist = append(tx.changelist, api.EventCreate{Object: copy})
		o.SetMeta(meta)
	}
	return err
}

// Update updates an existing object in the store.
// Returns ErrNotExist if the object doesn't exist.
func (tx *tx) update(table string, o api.StoreObject) error {
	oldN := tx.lookup(table, indexID, o.GetID())
	if oldN == nil {
		return ErrNotExist
	}

	meta := o.GetMeta()

	if tx.curVersion != nil {
		if oldN.GetMeta().Version != meta.Version {
			return ErrSequenceConflict
		}
	}

	copy := o.CopyStoreObject()
	touchMeta(&meta, tx.curVersion)
	copy.SetMeta(meta)

	err := tx.memDBTx.Insert(table, copy)
	if err == nil {
		tx.changelist = append(tx.changelist, api.EventUpdate{Object: copy, OldObject: oldN})
		o.SetMeta(meta)
	}
	return err
}

// Delete removes an object from the store.
// Returns ErrNotExist if the object doesn't exist.
func (tx *tx) delete(table, id string) error {
	n := tx.lookup(table, indexID, id)
	if n == nil {
		return ErrNotExist
	}

	err := tx.memDBTx.Delete(table, n)
	if err == nil {
		tx.changelist = append(tx.changelist, api.EventDelete{Object: n})
	}
	return err
}

// Get looks up an object by ID.
// Returns nil if the object doesn't exist.
func (tx readTx) get(table, id string) api.StoreObject {
	o := tx.lookup(table, indexID, id)
	if o == nil {
		return nil
	}
	return o.CopyStoreObject()
}

// findIterators returns a slice of iterators. The union of items from these
// iterators provides the result of the query.
func (tx readTx) findIterators(table string, by By, checkType func(By) error) ([]memdb.ResultIterator, error) {
	switch by.(type) {
	case byAll, orCombinator: // generic types
	default: // all other types
		if err := checkType(by); err != nil {
			return nil, err
		}
	}

	switch v := by.(type) {
	case byAll:
		it, err := tx.memDBTx.Get(table, indexID)
		if err != nil {
			return nil, err
		}
		return []memdb.ResultIterator{it}, nil
	case orCombinator:
		var iters []memdb.ResultIterator
		for _, subBy := range v.bys {
			it, err := tx.findIterators(table, subBy, checkType)
			if err != nil {
				return nil, err
			}
			iters = append(iters, it...)
		}
		return iters, nil
	case byIDPrefix:
		it, err := tx.memDBTx.Get(table, indexID+prefix, string(v))
		if err != nil {
			return nil, err
		}
		return []memdb.ResultIterator{it}, nil
	case byPort:
		it, err := tx.memDBTx.Get(table, indexID+prefix, api.BindingKeyPrefix(string(v)))
		if err != nil {
			return nil, err
		}
		return []memdb.ResultIterator{it}, nil
	case byBinding:
		it, err := tx.memDBTx.Get(table, indexID+prefix, api.LevelKeyPrefix(v.portID, v.host))
		if err != nil {
			return nil, err
		}
		return []memdb.ResultIterator{it}, nil
	case byNetwork:
		it, err := tx.memDBTx.Get(table, indexNetworkID, string(v))
		if err != nil {
			return nil, err
		}
		return []memdb.ResultIterator{it}, nil
	case byHost:
		it, err := tx.memDBTx.Get(table, indexHost, string(v))
		if err != nil {
			return nil, err
		}
		return []memdb.ResultIterator{it}, nil
	case byMACAddress:
		it, err := tx.memDBTx.Get(table, indexMACAddress, string(v))
		if err != nil {
			return nil, err
		}
		return []memdb.ResultIterator{it}, nil
	case bySegment:
		it, err := tx.memDBTx.Get(table, indexSegmentID, string(v))
		if err != nil {
			return nil, err
		}
		return []memdb.ResultIterator{it}, nil
	default:
		return nil, ErrInvalidFindBy
	}
}

// find selects a set of objects calls a callback for each matching object.
func (tx readTx) find(table string, by By, checkType func(By) error, appendResult func(api.StoreObject)) error {
	fromResultIterators := func(its ...memdb.ResultIterator) {
		ids := make(map[string]struct{})
		for _, it := range its {
			for {
				obj := it.Next()
				if obj == nil {
					break
				}
				o := obj.(api.StoreObject)
				id := o.GetID()
				if _, exists := ids[id]; !exists {
					appendResult(o.CopyStoreObject())
					ids[id] = struct{}{}
				}
			}
		}
	}

	iters, err := tx.findIterators(table, by, checkType)
	if err != nil {
		return err
	}

	fromResultIterators(iters...)

	return nil
}

// Save serializes the data in the store.
func (s *MemoryStore) Save(tx ReadTx) (*api.StoreSnapshot, error) {
	var snapshot api.StoreSnapshot
	for _, kind := range api.Kinds {
		if err := objectStorers[kind].Save(tx, &snapshot); err != nil {
			return nil, err
		}
	}

	return &snapshot, nil
}

// Restore sets the contents of the store to the serialized data in the
// argument. Objects keep the metadata they were saved with, and the
// proposer is not consulted.
func (s *MemoryStore) Restore(snapshot *api.StoreSnapshot) error {
	return s.updateLocal(func(tx Tx) error {
		for _, kind := range api.Kinds {
			if err := objectStorers[kind].Restore(tx, snapshot); err != nil {
				return err
			}
		}
		return nil
	})
}

// WatchQueue returns the publish/subscribe queue.
func (s *MemoryStore) WatchQueue() *watch.Queue {
	return s.queue
}

// restoreTable replaces every object of a table with objs.
func restoreTable(tx Tx, table string, objs []api.StoreObject) error {
	var existing []api.StoreObject
	if err := tx.find(table, All, func(By) error { return nil }, func(o api.StoreObject) {
		existing = append(existing, o)
	}); err != nil {
		return err
	}
	for _, o := range existing {
		if err := tx.delete(table, o.GetID()); err != nil {
			return err
		}
	}
	for _, o := range objs {
		if err := tx.create(table, o); err != nil {
			return errors.Wrapf(err, "restoring %s %q", table, o.GetID())
		}
	}
	return nil
}

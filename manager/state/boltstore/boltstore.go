// Package boltstore persists the transactions of a store.MemoryStore in a
// bolt database, so the store can be rebuilt after a restart.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/log"
	bolt "go.etcd.io/bbolt"
)

// Layout:
//
//	bucket(v1) ->
//		meta ->
//			version (big endian uint64 of the last committed version)
//		<kind> ->
//			<object id> (JSON object)
var (
	bucketKeyStorageVersion = []byte("v1")
	bucketKeyMeta           = []byte("meta")
	keyVersion              = []byte("version")
)

type bucketKeyPath [][]byte

func (bk bucketKeyPath) String() string {
	return string(bytes.Join([][]byte(bk), []byte("/")))
}

// Store is a store.Proposer that writes every proposal to bolt before
// letting the memory store commit it.
type Store struct {
	db *bolt.DB

	mu      sync.Mutex
	version uint64
}

// Open opens or creates the bolt database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening bolt database %s", path)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, kind := range api.Kinds {
			if _, err := createBucketIfNotExists(tx, bucketKeyStorageVersion, []byte(kind)); err != nil {
				return err
			}
		}
		bkt, err := createBucketIfNotExists(tx, bucketKeyStorageVersion, bucketKeyMeta)
		if err != nil {
			return err
		}
		if p := bkt.Get(keyVersion); len(p) == 8 {
			s.version = binary.BigEndian.Uint64(p)
		}
		return nil
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetVersion returns the version the next proposal will be committed with.
func (s *Store) GetVersion() *api.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &api.Version{Index: s.version + 1}
}

// ProposeValue writes the actions of one transaction in a single bolt
// transaction. cb is called only once the write is durable.
func (s *Store) ProposeValue(ctx context.Context, actions []api.StoreAction, cb func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.version + 1
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, sa := range actions {
			if err := applyStoreAction(tx, sa); err != nil {
				return err
			}
		}
		bkt := getBucket(tx, bucketKeyStorageVersion, bucketKeyMeta)
		var p [8]byte
		binary.BigEndian.PutUint64(p[:], next)
		return bkt.Put(keyVersion, p[:])
	}); err != nil {
		return errors.Wrap(err, "persisting store actions")
	}

	s.version = next
	log.G(ctx).WithField("version", next).Debugf("persisted %d store actions", len(actions))
	if cb != nil {
		cb()
	}
	return nil
}

func applyStoreAction(tx *bolt.Tx, sa api.StoreAction) error {
	kind := sa.Target.Kind()
	bkt := getBucket(tx, bucketKeyStorageVersion, []byte(kind))
	if bkt == nil {
		return errors.Errorf("no bucket for object kind %q", kind)
	}
	key := []byte(sa.Target.GetID())

	switch sa.Action {
	case api.StoreActionKindCreate, api.StoreActionKindUpdate:
		p, err := json.Marshal(sa.Target)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %q", kind, sa.Target.GetID())
		}
		return bkt.Put(key, p)
	case api.StoreActionKindRemove:
		return bkt.Delete(key)
	}
	return errors.Errorf("unknown store action %v", sa.Action)
}

// Snapshot loads every persisted object.
func (s *Store) Snapshot() (*api.StoreSnapshot, error) {
	var snapshot api.StoreSnapshot

	if err := s.db.View(func(tx *bolt.Tx) error {
		for _, kind := range api.Kinds {
			bkt := getBucket(tx, bucketKeyStorageVersion, []byte(kind))
			if bkt == nil {
				continue
			}
			if err := bkt.ForEach(func(k, v []byte) error {
				obj, err := api.NewStoreObject(kind)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(v, obj); err != nil {
					return errors.Wrapf(err, "decoding %s %q", kind, k)
				}
				return snapshot.Add(obj)
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

func createBucketIfNotExists(tx *bolt.Tx, keys ...[]byte) (*bolt.Bucket, error) {
	bkt, err := tx.CreateBucketIfNotExists(keys[0])
	if err != nil {
		return nil, errors.Wrapf(err, "creating bucket %v", bucketKeyPath(keys[:1]))
	}

	for i, key := range keys[1:] {
		bkt, err = bkt.CreateBucketIfNotExists(key)
		if err != nil {
			return nil, errors.Wrapf(err, "creating bucket %v", bucketKeyPath(keys[:i+2]))
		}
	}

	return bkt, nil
}

func getBucket(tx *bolt.Tx, keys ...[]byte) *bolt.Bucket {
	bkt := tx.Bucket(keys[0])

	for _, key := range keys[1:] {
		if bkt == nil {
			break
		}
		bkt = bkt.Bucket(key)
	}

	return bkt
}

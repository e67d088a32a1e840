// Package pgstore persists the transactions of a store.MemoryStore in
// PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"sync"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/log"
	"github.com/vnetkit/bindstate/manager/state/store"
)

// Store is a store.Proposer that applies every proposal in one SQL
// transaction before letting the memory store commit it.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	version uint64
}

// Open connects to the database at dsn, creates the tables if needed and
// loads the last committed version.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: open")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "postgres: ping")
	}

	s := &Store{db: db}
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the tables if they are missing and loads the stored version.
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "postgres: create schema")
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO store_version (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`); err != nil {
		return errors.Wrap(err, "postgres: create schema")
	}

	version, err := loadVersion(ctx, s.db)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.version = version
	s.mu.Unlock()
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func loadVersion(ctx context.Context, q queryer) (uint64, error) {
	var version int64
	err := q.QueryRowContext(ctx, `SELECT version FROM store_version WHERE id = 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, errors.Wrap(err, "postgres: load version")
	}
	return uint64(version), nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetVersion returns the version the next proposal will be committed with.
func (s *Store) GetVersion() *api.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &api.Version{Index: s.version + 1}
}

// ProposeValue applies the actions of one transaction in a single
// serializable SQL transaction. cb is called only once it has committed.
//
// The actions were computed against the state this store last loaded or
// wrote. If another client of the database committed since, they may be
// stale, so the proposal fails with store.ErrSequenceConflict and the
// caller has to reload with Snapshot before trying again.
func (s *Store) ProposeValue(ctx context.Context, actions []api.StoreAction, cb func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.version + 1

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback()

	var stored int64
	if err := tx.QueryRowContext(ctx,
		`SELECT version FROM store_version WHERE id = 1 FOR UPDATE`).Scan(&stored); err != nil {
		return mapError(err)
	}
	if uint64(stored) != s.version {
		return errors.Wrapf(store.ErrSequenceConflict, "database is at version %d, store at %d", stored, s.version)
	}

	for _, sa := range actions {
		if err := applyStoreAction(ctx, tx, sa); err != nil {
			return mapError(err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE store_version SET version = $1 WHERE id = 1`, int64(next)); err != nil {
		return mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapError(err)
	}

	s.version = next
	log.G(ctx).WithField("version", next).Debugf("persisted %d store actions", len(actions))
	if cb != nil {
		cb()
	}
	return nil
}

// mapError turns write conflicts with other clients of the database into
// store.ErrSequenceConflict.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "40001": // unique_violation, serialization_failure
			return errors.Wrap(store.ErrSequenceConflict, pqErr.Message)
		}
	}
	return errors.Wrap(err, "postgres: apply store actions")
}

func applyStoreAction(ctx context.Context, tx *sql.Tx, sa api.StoreAction) error {
	switch sa.Action {
	case api.StoreActionKindCreate:
		return insertObject(ctx, tx, sa.Target)
	case api.StoreActionKindUpdate:
		res, err := updateObject(ctx, tx, sa.Target)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return errors.Wrapf(store.ErrSequenceConflict, "%s %q is not stored", sa.Target.Kind(), sa.Target.GetID())
		}
		return nil
	case api.StoreActionKindRemove:
		res, err := deleteObject(ctx, tx, sa.Target)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return errors.Wrapf(store.ErrSequenceConflict, "%s %q is not stored", sa.Target.Kind(), sa.Target.GetID())
		}
		return nil
	}
	return errors.Errorf("unknown store action %v", sa.Action)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullSegmentationID(id *uint32) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func insertObject(ctx context.Context, tx *sql.Tx, obj api.StoreObject) error {
	m := obj.GetMeta()
	var err error
	switch v := obj.(type) {
	case *api.Network:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO networks (id, name, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
			v.ID, v.Name, int64(m.Version.Index), m.CreatedAt, m.UpdatedAt)
	case *api.Port:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ports (id, network_id, mac_address, device_id, device_owner, admin_state_up, status, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			v.ID, v.NetworkID, v.MACAddress, v.DeviceID, v.DeviceOwner, v.AdminStateUp, v.Status,
			int64(m.Version.Index), m.CreatedAt, m.UpdatedAt)
	case *api.Segment:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO network_segments (id, network_id, network_type, physical_network, segmentation_id, is_dynamic, segment_index, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			v.ID, v.NetworkID, v.NetworkType, v.PhysicalNetwork, nullSegmentationID(v.SegmentationID), v.IsDynamic, v.SegmentIndex,
			int64(m.Version.Index), m.CreatedAt, m.UpdatedAt)
	case *api.PortBinding:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO port_bindings (port_id, host, vnic_type, profile, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			v.PortID, v.Host, v.VNICType, v.Profile, int64(m.Version.Index), m.CreatedAt, m.UpdatedAt)
	case *api.BindingResult:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO port_binding_results (port_id, host, vif_type, vif_details, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			v.PortID, v.Host, v.VIFType, v.VIFDetails, int64(m.Version.Index), m.CreatedAt, m.UpdatedAt)
	case *api.BindingLevel:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO port_binding_levels (port_id, host, level, driver, segment_id, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			v.PortID, v.Host, v.Level, v.Driver, nullString(v.SegmentID), int64(m.Version.Index), m.CreatedAt, m.UpdatedAt)
	default:
		return errors.Errorf("unknown object type %T", obj)
	}
	return err
}

func updateObject(ctx context.Context, tx *sql.Tx, obj api.StoreObject) (sql.Result, error) {
	m := obj.GetMeta()
	switch v := obj.(type) {
	case *api.Network:
		return tx.ExecContext(ctx,
			`UPDATE networks SET name = $2, version = $3, updated_at = $4 WHERE id = $1`,
			v.ID, v.Name, int64(m.Version.Index), m.UpdatedAt)
	case *api.Port:
		return tx.ExecContext(ctx,
			`UPDATE ports SET mac_address = $2, device_id = $3, device_owner = $4, admin_state_up = $5, status = $6,
			version = $7, updated_at = $8 WHERE id = $1`,
			v.ID, v.MACAddress, v.DeviceID, v.DeviceOwner, v.AdminStateUp, v.Status,
			int64(m.Version.Index), m.UpdatedAt)
	case *api.Segment:
		return tx.ExecContext(ctx,
			`UPDATE network_segments SET network_type = $2, physical_network = $3, segmentation_id = $4,
			version = $5, updated_at = $6 WHERE id = $1`,
			v.ID, v.NetworkType, v.PhysicalNetwork, nullSegmentationID(v.SegmentationID),
			int64(m.Version.Index), m.UpdatedAt)
	case *api.PortBinding:
		return tx.ExecContext(ctx,
			`UPDATE port_bindings SET host = $2, vnic_type = $3, profile = $4, version = $5, updated_at = $6
			WHERE port_id = $1`,
			v.PortID, v.Host, v.VNICType, v.Profile, int64(m.Version.Index), m.UpdatedAt)
	case *api.BindingResult:
		return tx.ExecContext(ctx,
			`UPDATE port_binding_results SET vif_type = $3, vif_details = $4, version = $5, updated_at = $6
			WHERE port_id = $1 AND host = $2`,
			v.PortID, v.Host, v.VIFType, v.VIFDetails, int64(m.Version.Index), m.UpdatedAt)
	case *api.BindingLevel:
		return tx.ExecContext(ctx,
			`UPDATE port_binding_levels SET driver = $4, segment_id = $5, version = $6, updated_at = $7
			WHERE port_id = $1 AND host = $2 AND level = $3`,
			v.PortID, v.Host, v.Level, v.Driver, nullString(v.SegmentID), int64(m.Version.Index), m.UpdatedAt)
	}
	return nil, errors.Errorf("unknown object type %T", obj)
}

func deleteObject(ctx context.Context, tx *sql.Tx, obj api.StoreObject) (sql.Result, error) {
	switch v := obj.(type) {
	case *api.Network:
		return tx.ExecContext(ctx, `DELETE FROM networks WHERE id = $1`, v.ID)
	case *api.Port:
		return tx.ExecContext(ctx, `DELETE FROM ports WHERE id = $1`, v.ID)
	case *api.Segment:
		return tx.ExecContext(ctx, `DELETE FROM network_segments WHERE id = $1`, v.ID)
	case *api.PortBinding:
		return tx.ExecContext(ctx, `DELETE FROM port_bindings WHERE port_id = $1`, v.PortID)
	case *api.BindingResult:
		return tx.ExecContext(ctx,
			`DELETE FROM port_binding_results WHERE port_id = $1 AND host = $2`, v.PortID, v.Host)
	case *api.BindingLevel:
		return tx.ExecContext(ctx,
			`DELETE FROM port_binding_levels WHERE port_id = $1 AND host = $2 AND level = $3`, v.PortID, v.Host, v.Level)
	}
	return nil, errors.Errorf("unknown object type %T", obj)
}

package pgstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeta(version int64, createdAt, updatedAt time.Time) api.Meta {
	return api.Meta{
		Version:   api.Version{Index: uint64(version)},
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
}

// Snapshot loads every stored row from one consistent view of the
// database. It also catches the store up with the version other clients of
// the database committed, so it can be used to refresh a stale memory store.
func (s *Store) Snapshot(ctx context.Context) (*api.StoreSnapshot, error) {
	var snapshot api.StoreSnapshot

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback()

	version, err := loadVersion(ctx, tx)
	if err != nil {
		return nil, err
	}

	queries := []struct {
		kind  string
		query string
		scan  func(rowScanner) (api.StoreObject, error)
	}{
		{api.KindNetwork, `SELECT id, name, version, created_at, updated_at FROM networks ORDER BY id`, scanNetwork},
		{api.KindPort, `SELECT id, network_id, mac_address, device_id, device_owner, admin_state_up, status,
			version, created_at, updated_at FROM ports ORDER BY id`, scanPort},
		{api.KindSegment, `SELECT id, network_id, network_type, physical_network, segmentation_id, is_dynamic, segment_index,
			version, created_at, updated_at FROM network_segments ORDER BY id`, scanSegment},
		{api.KindPortBinding, `SELECT port_id, host, vnic_type, profile, version, created_at, updated_at
			FROM port_bindings ORDER BY port_id`, scanPortBinding},
		{api.KindBindingResult, `SELECT port_id, host, vif_type, vif_details, version, created_at, updated_at
			FROM port_binding_results ORDER BY port_id, host`, scanBindingResult},
		{api.KindBindingLevel, `SELECT port_id, host, level, driver, segment_id, version, created_at, updated_at
			FROM port_binding_levels ORDER BY port_id, host, level`, scanBindingLevel},
	}

	for _, q := range queries {
		if err := load(ctx, tx, &snapshot, q.query, q.scan); err != nil {
			return nil, errors.Wrapf(err, "postgres: load %s", q.kind)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "postgres: load snapshot")
	}

	s.mu.Lock()
	if version > s.version {
		s.version = version
	}
	s.mu.Unlock()
	return &snapshot, nil
}

func load(ctx context.Context, tx *sql.Tx, snapshot *api.StoreSnapshot, query string, scan func(rowScanner) (api.StoreObject, error)) error {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		obj, err := scan(rows)
		if err != nil {
			return err
		}
		if err := snapshot.Add(obj); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanNetwork(row rowScanner) (api.StoreObject, error) {
	var (
		n                    api.Network
		version              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&n.ID, &n.Name, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	n.Meta = scanMeta(version, createdAt, updatedAt)
	return &n, nil
}

func scanPort(row rowScanner) (api.StoreObject, error) {
	var (
		p                    api.Port
		version              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&p.ID, &p.NetworkID, &p.MACAddress, &p.DeviceID, &p.DeviceOwner, &p.AdminStateUp, &p.Status,
		&version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Meta = scanMeta(version, createdAt, updatedAt)
	return &p, nil
}

func scanSegment(row rowScanner) (api.StoreObject, error) {
	var (
		seg                  api.Segment
		segmentationID       sql.NullInt64
		version              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&seg.ID, &seg.NetworkID, &seg.NetworkType, &seg.PhysicalNetwork, &segmentationID, &seg.IsDynamic, &seg.SegmentIndex,
		&version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if segmentationID.Valid {
		id := uint32(segmentationID.Int64)
		seg.SegmentationID = &id
	}
	seg.Meta = scanMeta(version, createdAt, updatedAt)
	return &seg, nil
}

func scanPortBinding(row rowScanner) (api.StoreObject, error) {
	var (
		b                    api.PortBinding
		version              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&b.PortID, &b.Host, &b.VNICType, &b.Profile, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	b.Meta = scanMeta(version, createdAt, updatedAt)
	return &b, nil
}

func scanBindingResult(row rowScanner) (api.StoreObject, error) {
	var (
		r                    api.BindingResult
		version              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&r.PortID, &r.Host, &r.VIFType, &r.VIFDetails, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Meta = scanMeta(version, createdAt, updatedAt)
	return &r, nil
}

func scanBindingLevel(row rowScanner) (api.StoreObject, error) {
	var (
		l                    api.BindingLevel
		segmentID            sql.NullString
		version              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&l.PortID, &l.Host, &l.Level, &l.Driver, &segmentID, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.SegmentID = segmentID.String
	l.Meta = scanMeta(version, createdAt, updatedAt)
	return &l, nil
}

package pgstore

// schema creates the tables backing the store. Rows of a port go away with
// the port, rows of a network with the network.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS networks (
		id varchar(36) PRIMARY KEY,
		name varchar(255) NOT NULL DEFAULT '',
		version bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ports (
		id varchar(36) PRIMARY KEY,
		network_id varchar(36) NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		mac_address varchar(32) NOT NULL DEFAULT '',
		device_id varchar(255) NOT NULL DEFAULT '',
		device_owner varchar(255) NOT NULL DEFAULT '',
		admin_state_up boolean NOT NULL DEFAULT true,
		status varchar(16) NOT NULL DEFAULT '',
		version bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS network_segments (
		id varchar(36) PRIMARY KEY,
		network_id varchar(36) NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		network_type varchar(32) NOT NULL,
		physical_network varchar(64) NOT NULL DEFAULT '',
		segmentation_id bigint,
		is_dynamic boolean NOT NULL DEFAULT false,
		segment_index integer NOT NULL,
		version bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		UNIQUE (network_id, segment_index)
	)`,
	`CREATE TABLE IF NOT EXISTS port_bindings (
		port_id varchar(36) PRIMARY KEY REFERENCES ports(id) ON DELETE CASCADE,
		host varchar(255) NOT NULL DEFAULT '',
		vnic_type varchar(64) NOT NULL DEFAULT 'normal',
		profile varchar(4095) NOT NULL DEFAULT '',
		version bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS port_binding_results (
		port_id varchar(36) NOT NULL REFERENCES ports(id) ON DELETE CASCADE,
		host varchar(255) NOT NULL,
		vif_type varchar(64) NOT NULL,
		vif_details varchar(4095) NOT NULL DEFAULT '',
		version bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		PRIMARY KEY (port_id, host)
	)`,
	`CREATE TABLE IF NOT EXISTS port_binding_levels (
		port_id varchar(36) NOT NULL REFERENCES ports(id) ON DELETE CASCADE,
		host varchar(255) NOT NULL,
		level integer NOT NULL,
		driver varchar(64) NOT NULL,
		segment_id varchar(36) REFERENCES network_segments(id),
		version bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		PRIMARY KEY (port_id, host, level)
	)`,
	`CREATE TABLE IF NOT EXISTS store_version (
		id integer PRIMARY KEY,
		version bigint NOT NULL
	)`,
}

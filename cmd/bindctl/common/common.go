package common

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/config"
	"github.com/vnetkit/bindstate/log"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/boltstore"
	"github.com/vnetkit/bindstate/manager/state/pgstore"
	"github.com/vnetkit/bindstate/manager/state/store"
)

// boltFile is the name of the database file inside the state directory.
const boltFile = "bindstate.db"

// MaxConflictRetries bounds how many times a command retries a transaction
// that lost a race with another writer.
const MaxConflictRetries = 5

// Store is a memory store backed by the configured persistence backend.
type Store struct {
	*store.MemoryStore
	backend  io.Closer
	snapshot func(context.Context) (*api.StoreSnapshot, error)
}

// Apply runs cb in a store transaction. When the transaction loses a race
// with another client of the backend, the store is reloaded and cb runs
// again.
func (s *Store) Apply(ctx context.Context, cb func(store.Tx) error) error {
	return s.Retry(ctx, func(ms *store.MemoryStore) error {
		return ms.Update(cb)
	})
}

// Retry is Apply for operations that run their own transactions, such as
// binding.ClearHostBindings. fn may be called again after some of its
// transactions committed, so it must pick up where an earlier call left
// off.
func (s *Store) Retry(ctx context.Context, fn func(*store.MemoryStore) error) error {
	return binding.RetryOnConflict(ctx, MaxConflictRetries, func() error {
		err := fn(s.MemoryStore)
		if !store.IsRetryable(err) {
			return err
		}
		if rerr := s.reload(ctx); rerr != nil {
			return rerr
		}
		return err
	})
}

func (s *Store) reload(ctx context.Context) error {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.Restore(snapshot); err != nil {
		return errors.Wrap(err, "reloading state")
	}
	log.G(ctx).Debug("state reloaded after a conflict")
	return nil
}

// Close closes the memory store and its backend.
func (s *Store) Close() error {
	if err := s.MemoryStore.Close(); err != nil {
		return err
	}
	return s.backend.Close()
}

// AddFlags registers the flags LoadConfig and Open read.
func AddFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", config.DefaultPath(), "Path to the configuration file")
	flags.String("backend", config.BackendBolt, "Storage backend (bolt or postgres)")
	flags.String("state-dir", config.DefaultStateDir(), "Directory of the bolt database")
	flags.String("postgres-dsn", "", "Connection string of the postgres backend")
	flags.String("log-level", "info", "Logging level (debug, info, warn, error)")
}

// LoadConfig reads the config file named by the --config flag and applies
// the flags the user set on top of it.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	for flag, field := range map[string]*string{
		"backend":      &cfg.Backend,
		"state-dir":    &cfg.StateDir,
		"postgres-dsn": &cfg.PostgresDSN,
		"log-level":    &cfg.LogLevel,
	} {
		if !flags.Changed(flag) {
			continue
		}
		v, err := flags.GetString(flag)
		if err != nil {
			return nil, err
		}
		*field = v
	}
	return cfg, cfg.Validate()
}

// Open opens the configured backend and loads its contents into a memory
// store whose transactions are persisted to it.
func Open(cmd *cobra.Command) (*Store, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := Context(cmd)

	var (
		proposer interface {
			store.Proposer
			io.Closer
		}
		snapshotFn func(context.Context) (*api.StoreSnapshot, error)
	)
	switch cfg.Backend {
	case config.BackendBolt:
		if err := os.MkdirAll(cfg.StateDir, 0700); err != nil {
			return nil, errors.Wrap(err, "creating state directory")
		}
		db, err := boltstore.Open(filepath.Join(cfg.StateDir, boltFile))
		if err != nil {
			return nil, err
		}
		proposer = db
		snapshotFn = func(context.Context) (*api.StoreSnapshot, error) {
			return db.Snapshot()
		}
	case config.BackendPostgres:
		db, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		proposer = db
		snapshotFn = db.Snapshot
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}

	snapshot, err := snapshotFn(ctx)
	if err != nil {
		proposer.Close()
		return nil, err
	}
	s := store.NewMemoryStore(proposer)
	if err := s.Restore(snapshot); err != nil {
		s.Close()
		proposer.Close()
		return nil, errors.Wrap(err, "loading state")
	}
	log.G(ctx).WithField("backend", cfg.Backend).Debug("state loaded")
	return &Store{MemoryStore: s, backend: proposer, snapshot: snapshotFn}, nil
}

// Context returns a request context based on CLI arguments.
func Context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return log.WithModule(ctx, "bindctl")
}

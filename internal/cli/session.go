package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/config"
	"github.com/roach88/loam/internal/engine"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/kvstore"
	"github.com/roach88/loam/internal/snapshot"
	"github.com/roach88/loam/internal/store"
)

// session is an open database plus the engine for the configured graph.
type session struct {
	store  *store.Store
	snaps  snapshot.Store
	engine *engine.Engine
	logger *slog.Logger

	badger *kvstore.Store // nil unless the badger backend is in use
}

// openSession opens the event database and snapshot backend and rebuilds
// the configured graph. Failures are command errors.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg := opts.Config()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: opts.logLevel()}))

	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	s := &session{store: st, snaps: st, logger: logger}

	if cfg.SnapshotBackend == config.BackendBadger {
		kv, err := kvstore.Open(cfg.SnapshotDir())
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open snapshot store", err)
		}
		s.badger = kv
		s.snaps = kv
	}

	eng, err := engine.Open(ctx, ir.GraphID(cfg.Graph), st,
		engine.WithSnapshots(s.snaps),
		engine.WithCheckpointEvery(cfg.CheckpointEvery),
		engine.WithLogger(logger),
	)
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open graph", err)
	}
	s.engine = eng

	logger.Debug("session opened",
		"db", cfg.DB,
		"graph", cfg.Graph,
		"snapshots", cfg.SnapshotBackend,
		"last_event", eng.LastEventID(),
	)
	return s, nil
}

// Close releases the snapshot backend and the database.
func (s *session) Close() error {
	var errs []error
	if s.badger != nil {
		errs = append(errs, s.badger.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

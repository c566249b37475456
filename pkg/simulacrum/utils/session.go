package simulacrumutils

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/dotdir"
	"github.com/papercomputeco/simulacrum/pkg/simulacrum"
)

// storeSubdir is where the memory store lives inside the .simulacrum/
// directory when storage.dir is not configured.
const storeSubdir = "store"

// OpenSessionOpts are overrides applied on top of the persisted config
// when opening the active session's store. Zero values defer to config.
type OpenSessionOpts struct {
	// ConfigDir overrides .simulacrum/ directory discovery.
	ConfigDir string

	// StoreDir overrides storage.dir.
	StoreDir string

	// BudgetTokens overrides budget.total_tokens.
	BudgetTokens uint

	Logger *zap.Logger
}

// OpenSession opens the memory store for the active CLI session. If no
// session state exists yet, a new session is started and persisted so
// subsequent invocations append to the same stream.
func OpenSession(ctx context.Context, o OpenSessionOpts) (*simulacrum.Store, *dotdir.SessionState, error) {
	cfger, err := config.NewConfiger(o.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	dm := dotdir.NewManager()
	state, err := dm.LoadSessionState(o.ConfigDir)
	if err != nil {
		return nil, nil, err
	}
	if state == nil {
		state = &dotdir.SessionState{
			SessionID: uuid.NewString(),
			StartedAt: time.Now().UTC(),
		}
		if err := dm.SaveSessionState(state, o.ConfigDir); err != nil {
			return nil, nil, err
		}
	}

	opts := OptsFromConfig(cfg, state.SessionID, o.Logger)

	if o.StoreDir != "" {
		opts.Dir = o.StoreDir
	}
	if opts.Dir == "" {
		target, err := dm.Target(o.ConfigDir)
		if err != nil {
			return nil, nil, err
		}
		opts.Dir = filepath.Join(target, storeSubdir)
	}

	if o.BudgetTokens > 0 {
		opts.BudgetTokens = o.BudgetTokens
	}

	store, err := NewStore(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	return store, state, nil
}

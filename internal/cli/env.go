package cli

import (
	"context"

	"stockledger-backend/internal/audit"
	"stockledger-backend/internal/config"
	"stockledger-backend/internal/database"
	"stockledger-backend/internal/inventory"
	"stockledger-backend/internal/ledger"
	"stockledger-backend/internal/logging"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Env is what commands run against.
type Env struct {
	Service *inventory.Service
	DB      *gorm.DB
	Log     *zap.Logger
}

// Opener builds an Env.
type Opener func(ctx context.Context) (*Env, error)

// OpenFromConfig connects using the same environment variables as the server.
// The CLI logs at warn level in console format unless LOG_LEVEL says otherwise.
func OpenFromConfig(ctx context.Context) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if level == "info" {
		level = "warn"
	}
	log, err := logging.New(level, "console")
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewEnv(db, log, ledger.GormOptions{
		TxTimeout:   cfg.TxTimeout,
		LockTimeout: cfg.AcquireTimeout,
	}), nil
}

// NewEnv wires the service over an already migrated database.
func NewEnv(db *gorm.DB, log *zap.Logger, opts ledger.GormOptions) *Env {
	store := ledger.NewGormStore(db, opts)
	svc := inventory.NewService(store, log.Named("inventory"),
		inventory.WithAuditor(audit.NewService(db)))
	return &Env{Service: svc, DB: db, Log: log}
}

func (o *RootOptions) environment(ctx context.Context) (*Env, error) {
	if o.env != nil {
		return o.env, nil
	}
	env, err := o.open(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	o.env = env
	return env, nil
}

func (o *RootOptions) close() error {
	if o.env == nil {
		return nil
	}
	env := o.env
	o.env = nil
	_ = env.Log.Sync()
	sqlDB, err := env.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

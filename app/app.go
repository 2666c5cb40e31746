// Package app wires config into a ready Service. Both binaries start here.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/banco-de-horas/config"
	"github.com/warp/banco-de-horas/factory"
	"github.com/warp/banco-de-horas/logger"
	"github.com/warp/banco-de-horas/store/sqlite"
	"github.com/warp/banco-de-horas/timebank"
)

// App holds the long-lived dependencies.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Store   *sqlite.Store
	Service *timebank.Service
}

// NewLogger builds the logger described by cfg.Log.
func NewLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(cfg.Log.Level, cfg.Log.Format, logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

// Open opens the store, loads the rule set and builds the service.
func Open(cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	rules, tax, err := factory.NewRulesFactory().LoadFile(cfg.Bank.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	svc := timebank.NewService(store, rules, tax,
		timebank.WithSheets(cfg.Storage.UserSheet, cfg.Storage.EntrySheet),
		timebank.WithResetMode(timebank.ResetMode(cfg.Bank.ResetMode)),
		timebank.WithLogger(log.Named("timebank")),
	)

	log.Debug("application opened",
		zap.String("db", cfg.Storage.Path),
		zap.String("rules_file", cfg.Bank.RulesFile),
		zap.String("reset_mode", cfg.Bank.ResetMode),
	)
	return &App{Config: cfg, Logger: log, Store: store, Service: svc}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

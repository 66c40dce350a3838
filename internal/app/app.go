// Package app wires together configuration, the World Bank client, and the
// local store into a single Deps struct that commands receive at runtime.
package app

import (
	"github.com/random-logic/sta137-final/internal/config"
	"github.com/random-logic/sta137-final/internal/store"
	"github.com/random-logic/sta137-final/internal/wbank"
)

// Deps holds all runtime dependencies injected into command Run functions.
// The store is opened lazily: most commands work on stdin/CSV input and
// never touch the database.
type Deps struct {
	Config *config.Config
	Client *wbank.Client

	st *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	client := wbank.NewClient(
		cfg.BaseURL,
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	)
	return &Deps{
		Config: cfg,
		Client: client,
	}
}

// RequireStore opens the bbolt store at the configured path on first use
// and returns the same handle afterwards.
func (d *Deps) RequireStore() (*store.Store, error) {
	if d.st != nil {
		return d.st, nil
	}
	st, err := store.Open(d.Config.DBPath)
	if err != nil {
		return nil, err
	}
	d.st = st
	return st, nil
}

// Close releases any open resources. Safe to call when the store was
// never opened.
func (d *Deps) Close() error {
	if d.st == nil {
		return nil
	}
	err := d.st.Close()
	d.st = nil
	return err
}

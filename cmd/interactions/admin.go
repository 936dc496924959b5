package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rvald/interactions/internal/admin"
	"github.com/rvald/interactions/internal/commands"
	"github.com/rvald/interactions/internal/credentials"
	"github.com/rvald/interactions/internal/discord"
	"github.com/rvald/interactions/internal/metrics"
	"github.com/rvald/interactions/internal/store"
)

// openStore picks Postgres when DATABASE_URL is set and the state
// directory file store otherwise.
func openStore(ctx context.Context) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		s, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	}
	s, err := store.NewFileStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open file store: %w", err)
	}
	return s, nil
}

// newRegistrar wires the token cache, REST client and id store around the
// built-in command set. The caller closes the returned store.
func newRegistrar(ctx context.Context) (*admin.Registrar, *discord.Client, store.Store, error) {
	if err := cfg.ValidateForRegister(); err != nil {
		return nil, nil, nil, err
	}

	bp, err := commands.Blueprint()
	if err != nil {
		return nil, nil, nil, err
	}

	cache := credentials.NewCache(cfg.Fetcher(), credentials.WithLogger(slog.Default()))
	cache.OnRefresh = metrics.ObserveTokenRefresh

	client := discord.New(cfg.ClientID, cache,
		discord.WithBaseURL(cfg.APIBaseURL),
		discord.WithDryRun(bool(cfg.DontRegister)),
		discord.WithLogger(slog.Default()),
	)

	ids, err := openStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return admin.NewRegistrar(bp.Commands, client, ids, slog.Default()), client, ids, nil
}

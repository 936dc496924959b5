// Package admin drives the administrative side of an application: bulk
// registration of the command set and per-guild permission overwrites.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/rvald/interactions/internal/interactions"
	"github.com/rvald/interactions/internal/store"
)

// ErrCommandNotRegistered means no platform id is known for a command name.
var ErrCommandNotRegistered = errors.New("command not registered")

// ErrGuildRequired is returned by permission calls without a guild id.
var ErrGuildRequired = errors.New("permissions require a guild id")

// API is the subset of the REST client the registrar calls.
type API interface {
	OverwriteCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
	GetCommandPermissions(ctx context.Context, guildID, commandID string) ([]*discordgo.ApplicationCommandPermissions, error)
	SetCommandPermissions(ctx context.Context, guildID, commandID string, perms []*discordgo.ApplicationCommandPermissions) error
}

// Registrar registers the commands of one registry.
type Registrar struct {
	commands *interactions.CommandRegistry
	api      API
	store    store.Store
	logger   *slog.Logger
}

// NewRegistrar wires a registry to the REST API. ids may be nil, in which
// case assigned ids live only on the descriptors.
func NewRegistrar(commands *interactions.CommandRegistry, api API, ids store.Store, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{commands: commands, api: api, store: ids, logger: logger}
}

// UpdateCommands overwrites the platform's command set for guildID (global
// when empty) with the registry contents and records the assigned ids.
func (r *Registrar) UpdateCommands(ctx context.Context, guildID string) (map[string]string, error) {
	dump := r.commands.Dump()
	registered, err := r.api.OverwriteCommands(ctx, guildID, dump)
	if err != nil {
		return nil, fmt.Errorf("unable to register commands: %w", err)
	}

	ids := make(map[string]string, len(registered))
	for _, cmd := range registered {
		if cmd == nil || cmd.ID == "" {
			continue
		}
		if !r.commands.SetID(cmd.Name, cmd.ID) {
			r.logger.Warn("platform returned unknown command", "name", cmd.Name, "id", cmd.ID)
			continue
		}
		ids[cmd.Name] = cmd.ID
	}
	if len(ids) != len(dump) {
		r.logger.Warn("some commands were not assigned ids", "sent", len(dump), "assigned", len(ids))
	}

	if r.store != nil {
		if err := r.store.Save(ctx, store.Scope(guildID), ids); err != nil {
			return ids, fmt.Errorf("unable to register commands: save ids: %w", err)
		}
	}

	r.logger.Info("commands registered", "scope", store.Scope(guildID), "count", len(ids))
	return ids, nil
}

// CommandID resolves a command name to its platform id, preferring the id on
// the descriptor and falling back to the store. Guild commands are looked up
// in the guild scope first, then the global one.
func (r *Registrar) CommandID(ctx context.Context, guildID, name string) (string, error) {
	if cmd, ok := r.commands.Get(name); ok && cmd.ID != "" {
		return cmd.ID, nil
	}
	if r.store != nil {
		scopes := []string{store.Scope(guildID)}
		if guildID != "" {
			scopes = append(scopes, store.GlobalScope)
		}
		for _, scope := range scopes {
			id, ok, err := r.store.Lookup(ctx, scope, name)
			if err != nil {
				return "", fmt.Errorf("lookup %s: %w", name, err)
			}
			if ok {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrCommandNotRegistered, name)
}

// Permissions returns the permission overwrites of a command in a guild.
func (r *Registrar) Permissions(ctx context.Context, guildID, name string) ([]*discordgo.ApplicationCommandPermissions, error) {
	if guildID == "" {
		return nil, ErrGuildRequired
	}
	id, err := r.CommandID(ctx, guildID, name)
	if err != nil {
		return nil, err
	}
	perms, err := r.api.GetCommandPermissions(ctx, guildID, id)
	if err != nil {
		return nil, fmt.Errorf("get permissions for %s: %w", name, err)
	}
	return perms, nil
}

// SetPermissions replaces the permission overwrites of a command in a guild.
func (r *Registrar) SetPermissions(ctx context.Context, guildID, name string, perms []*discordgo.ApplicationCommandPermissions) error {
	if guildID == "" {
		return ErrGuildRequired
	}
	id, err := r.CommandID(ctx, guildID, name)
	if err != nil {
		return err
	}
	if err := r.api.SetCommandPermissions(ctx, guildID, id, perms); err != nil {
		return fmt.Errorf("set permissions for %s: %w", name, err)
	}
	r.logger.Info("command permissions updated", "guild_id", guildID, "command", name, "count", len(perms))
	return nil
}

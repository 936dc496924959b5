// Package store persists the ids the platform assigns to registered commands,
// so a later process can address a command by name.
package store

import "context"

// GlobalScope names the application-wide command scope.
const GlobalScope = "global"

// Store maps a scope and command name to the command id.
type Store interface {
	// Save replaces every id recorded for scope.
	Save(ctx context.Context, scope string, ids map[string]string) error
	Lookup(ctx context.Context, scope, name string) (string, bool, error)
	List(ctx context.Context, scope string) (map[string]string, error)
	Close() error
}

// Scope returns the store scope of a guild id; empty means global.
func Scope(guildID string) string {
	if guildID == "" {
		return GlobalScope
	}
	return guildID
}

package admin

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ParsePermission parses an overwrite written as "ID:allow" or "ID:deny".
// A bare "ID" means allow.
func ParsePermission(kind discordgo.ApplicationCommandPermissionType, entry string) (*discordgo.ApplicationCommandPermissions, error) {
	id, mode, hasMode := strings.Cut(strings.TrimSpace(entry), ":")
	if id == "" {
		return nil, fmt.Errorf("invalid permission %q: missing id", entry)
	}
	allow := true
	if hasMode {
		switch strings.ToLower(mode) {
		case "allow", "true", "":
		case "deny", "false":
			allow = false
		default:
			return nil, fmt.Errorf("invalid permission %q: mode must be allow or deny", entry)
		}
	}
	return &discordgo.ApplicationCommandPermissions{ID: id, Type: kind, Permission: allow}, nil
}

// ParsePermissions builds an overwrite list from role, user and channel entries.
func ParsePermissions(roles, users, channels []string) ([]*discordgo.ApplicationCommandPermissions, error) {
	out := make([]*discordgo.ApplicationCommandPermissions, 0, len(roles)+len(users)+len(channels))
	groups := []struct {
		kind    discordgo.ApplicationCommandPermissionType
		entries []string
	}{
		{discordgo.ApplicationCommandPermissionTypeRole, roles},
		{discordgo.ApplicationCommandPermissionTypeUser, users},
		{discordgo.ApplicationCommandPermissionTypeChannel, channels},
	}
	for _, g := range groups {
		for _, entry := range g.entries {
			p, err := ParsePermission(g.kind, entry)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// FormatPermission renders an overwrite in the form ParsePermission reads.
func FormatPermission(p *discordgo.ApplicationCommandPermissions) string {
	kind := "channel"
	switch p.Type {
	case discordgo.ApplicationCommandPermissionTypeRole:
		kind = "role"
	case discordgo.ApplicationCommandPermissionTypeUser:
		kind = "user"
	}
	mode := "deny"
	if p.Permission {
		mode = "allow"
	}
	return fmt.Sprintf("%s %s:%s", kind, p.ID, mode)
}

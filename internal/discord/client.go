package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultBaseURL is the platform REST API root.
const DefaultBaseURL = "https://discord.com/api/v10"

// Authorizer supplies the Authorization header for administrative calls.
type Authorizer interface {
	AuthHeader(ctx context.Context) (string, error)
}

// invalidator is implemented by authorizers that cache credentials.
type invalidator interface {
	Invalidate()
}

// Client calls the administrative REST endpoints for one application.
type Client struct {
	appID   string
	auth    Authorizer
	http    *http.Client
	baseURL string
	dryRun  bool
	logger  *slog.Logger
}

// New creates a client for the application appID.
func New(appID string, auth Authorizer, opts ...Option) *Client {
	c := &Client{
		appID:   appID,
		auth:    auth,
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: DefaultBaseURL,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

// DryRun reports whether calls are simulated.
func (c *Client) DryRun() bool { return c.dryRun }

// CommandsPath returns the bulk-overwrite path for the application, or for
// one guild when guildID is set.
func (c *Client) CommandsPath(guildID string) string {
	if guildID == "" {
		return fmt.Sprintf("/applications/%s/commands", c.appID)
	}
	return fmt.Sprintf("/applications/%s/guilds/%s/commands", c.appID, guildID)
}

// PermissionsPath returns the permission overwrite path for one command.
func (c *Client) PermissionsPath(guildID, commandID string) string {
	return fmt.Sprintf("/applications/%s/guilds/%s/commands/%s/permissions", c.appID, guildID, commandID)
}

// OverwriteCommands replaces every command in scope with cmds and returns the
// registered commands with their assigned ids.
func (c *Client) OverwriteCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	if c.dryRun {
		out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
		for _, cmd := range cmds {
			cp := *cmd
			cp.ID = cmd.Name
			cp.ApplicationID = c.appID
			cp.GuildID = guildID
			out = append(out, &cp)
		}
		c.logger.Info("dry run: skipped command overwrite", "count", len(cmds), "guild_id", guildID)
		return out, nil
	}

	var out []*discordgo.ApplicationCommand
	if err := c.doJSON(ctx, http.MethodPut, c.CommandsPath(guildID), cmds, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCommands returns the commands currently registered in scope.
func (c *Client) ListCommands(ctx context.Context, guildID string) ([]*discordgo.ApplicationCommand, error) {
	if c.dryRun {
		return []*discordgo.ApplicationCommand{}, nil
	}
	var out []*discordgo.ApplicationCommand
	if err := c.doJSON(ctx, http.MethodGet, c.CommandsPath(guildID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCommandPermissions returns the permission overwrites of a command in a
// guild. A command without overwrites yields an empty list.
func (c *Client) GetCommandPermissions(ctx context.Context, guildID, commandID string) ([]*discordgo.ApplicationCommandPermissions, error) {
	if c.dryRun {
		return []*discordgo.ApplicationCommandPermissions{}, nil
	}

	var out discordgo.GuildApplicationCommandPermissions
	err := c.doJSON(ctx, http.MethodGet, c.PermissionsPath(guildID, commandID), nil, &out)
	if IsNotFound(err) {
		return []*discordgo.ApplicationCommandPermissions{}, nil
	}
	if err != nil {
		return nil, err
	}
	if out.Permissions == nil {
		out.Permissions = []*discordgo.ApplicationCommandPermissions{}
	}
	return out.Permissions, nil
}

// SetCommandPermissions replaces the permission overwrites of a command in a
// guild.
func (c *Client) SetCommandPermissions(ctx context.Context, guildID, commandID string, perms []*discordgo.ApplicationCommandPermissions) error {
	if c.dryRun {
		c.logger.Info("dry run: skipped permission overwrite", "guild_id", guildID, "command_id", commandID, "count", len(perms))
		return nil
	}
	if perms == nil {
		perms = []*discordgo.ApplicationCommandPermissions{}
	}
	body := discordgo.ApplicationCommandPermissionsList{Permissions: perms}
	return c.doJSON(ctx, http.MethodPut, c.PermissionsPath(guildID, commandID), body, nil)
}

// doJSON sends one request. It never retries; a 401 drops the cached
// credential so the next call fetches a fresh one.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	authHeader, err := c.auth.AuthHeader(ctx)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord http: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		if res.StatusCode == http.StatusUnauthorized {
			if inv, ok := c.auth.(invalidator); ok {
				inv.Invalidate()
			}
		}
		return &APIError{Method: method, Path: path, Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

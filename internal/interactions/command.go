package interactions

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc handles a command invocation, component interaction, or
// modal submission.
type HandlerFunc func(ctx context.Context, ic *Context) (Response, error)

// AutocompleteFunc returns suggestions for the focused option of a command.
type AutocompleteFunc func(ctx context.Context, ic *Context) ([]*discordgo.ApplicationCommandOptionChoice, error)

// Command describes a registered application command.
//
// A command with Subcommands is a group: its children are dispatched by the
// subcommand option of the incoming interaction, and a child that has
// Subcommands of its own is a subcommand group. Groups carry no Handler.
type Command struct {
	Name                     string
	Description              string
	Type                     discordgo.ApplicationCommandType
	Options                  []*discordgo.ApplicationCommandOption
	DefaultMemberPermissions *int64
	DMPermission             *bool
	NameLocalizations        map[discordgo.Locale]string
	DescriptionLocalizations map[discordgo.Locale]string

	Handler      HandlerFunc
	Autocomplete AutocompleteFunc
	Subcommands  []*Command

	// ID is assigned by the platform on registration.
	ID string
}

func (c *Command) validate() error {
	if c == nil {
		return errors.New("command is nil")
	}
	if c.Name == "" {
		return errors.New("command name is required")
	}
	if c.Handler == nil && len(c.Subcommands) == 0 {
		return fmt.Errorf("command %q has no handler", c.Name)
	}
	for _, sub := range c.Subcommands {
		if err := sub.validate(); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}

// Subcommand returns the direct child with the given name.
func (c *Command) Subcommand(name string) (*Command, bool) {
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			return sub, true
		}
	}
	return nil, false
}

// ApplicationCommand converts the descriptor to its registration payload.
func (c *Command) ApplicationCommand() *discordgo.ApplicationCommand {
	typ := c.Type
	if typ == 0 {
		typ = discordgo.ChatApplicationCommand
	}
	ac := &discordgo.ApplicationCommand{
		ID:                       c.ID,
		Type:                     typ,
		Name:                     c.Name,
		DefaultMemberPermissions: c.DefaultMemberPermissions,
		DMPermission:             c.DMPermission,
		Options:                  []*discordgo.ApplicationCommandOption{},
	}
	if typ == discordgo.ChatApplicationCommand {
		ac.Description = c.Description
	}
	if len(c.NameLocalizations) > 0 {
		m := maps.Clone(c.NameLocalizations)
		ac.NameLocalizations = &m
	}
	if len(c.DescriptionLocalizations) > 0 {
		m := maps.Clone(c.DescriptionLocalizations)
		ac.DescriptionLocalizations = &m
	}

	if len(c.Subcommands) > 0 {
		for _, sub := range c.Subcommands {
			ac.Options = append(ac.Options, sub.option())
		}
	} else {
		ac.Options = append(ac.Options, c.Options...)
	}
	return ac
}

// option converts a child descriptor to a SubCommand or SubCommandGroup option.
func (c *Command) option() *discordgo.ApplicationCommandOption {
	opt := &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionSubCommand,
		Name:                     c.Name,
		Description:              c.Description,
		NameLocalizations:        c.NameLocalizations,
		DescriptionLocalizations: c.DescriptionLocalizations,
		Options:                  c.Options,
	}
	if len(c.Subcommands) > 0 {
		opt.Type = discordgo.ApplicationCommandOptionSubCommandGroup
		opt.Options = nil
		for _, sub := range c.Subcommands {
			opt.Options = append(opt.Options, sub.option())
		}
	}
	return opt
}

// CommandRegistry maps command names to descriptors.
//
// It is populated at startup and read concurrently afterwards without
// locking; do not register commands while serving.
type CommandRegistry struct {
	order    []string
	commands map[string]*Command
}

// NewCommandRegistry returns an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]*Command)}
}

// Register adds cmd, replacing any command with the same name.
func (r *CommandRegistry) Register(cmd *Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	r.put(cmd)
	return nil
}

func (r *CommandRegistry) put(cmd *Command) {
	if _, ok := r.commands[cmd.Name]; !ok {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Get returns the command registered under name. Names are case-sensitive.
func (r *CommandRegistry) Get(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Len returns the number of registered commands.
func (r *CommandRegistry) Len() int {
	return len(r.commands)
}

// Names returns command names in registration order.
func (r *CommandRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Merge copies every command of other into r. Commands of other win on name
// collisions; the colliding names are returned.
func (r *CommandRegistry) Merge(other *CommandRegistry) []string {
	var collisions []string
	for _, name := range other.order {
		if _, ok := r.commands[name]; ok {
			collisions = append(collisions, name)
		}
		r.put(other.commands[name])
	}
	return collisions
}

// Collisions returns the names of other that r already holds.
func (r *CommandRegistry) Collisions(other *CommandRegistry) []string {
	var out []string
	for _, name := range other.order {
		if _, ok := r.commands[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// SetID records the platform-assigned id for a command.
func (r *CommandRegistry) SetID(name, id string) bool {
	cmd, ok := r.commands[name]
	if !ok {
		return false
	}
	cmd.ID = id
	return true
}

// Dump returns the registration payload for every command, in order.
func (r *CommandRegistry) Dump() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name].ApplicationCommand())
	}
	return out
}

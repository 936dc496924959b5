package interactions

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Context is what a handler sees of the interaction it serves.
type Context struct {
	Interaction *discordgo.Interaction

	// Command is the resolved leaf command, nil for components and modals.
	Command *Command
	// Path is the full command path, e.g. ["info", "user"].
	Path []string
	// Options are the options of the leaf command.
	Options []*discordgo.ApplicationCommandInteractionDataOption

	// CustomID is the raw custom id of a component or modal interaction.
	CustomID string
	// Args are the custom id segments after the primary id.
	Args []string

	Logger *slog.Logger
}

// User returns the invoking user, in a guild or a DM.
func (c *Context) User() *discordgo.User {
	if c.Interaction.Member != nil && c.Interaction.Member.User != nil {
		return c.Interaction.Member.User
	}
	return c.Interaction.User
}

func (c *Context) GuildID() string   { return c.Interaction.GuildID }
func (c *Context) ChannelID() string { return c.Interaction.ChannelID }
func (c *Context) Locale() string    { return string(c.Interaction.Locale) }

// CommandName returns the space-joined command path.
func (c *Context) CommandName() string {
	return strings.Join(c.Path, " ")
}

// Option returns the leaf option with the given name.
func (c *Context) Option(name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range c.Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return nil, false
}

// StringOption returns a string option value, or fallback when absent.
func (c *Context) StringOption(name, fallback string) string {
	opt, ok := c.Option(name)
	if !ok {
		return fallback
	}
	if s, ok := opt.Value.(string); ok {
		return s
	}
	return fallback
}

// IntOption returns an integer option value, or fallback when absent.
func (c *Context) IntOption(name string, fallback int64) int64 {
	opt, ok := c.Option(name)
	if !ok {
		return fallback
	}
	if f, ok := opt.Value.(float64); ok {
		return int64(f)
	}
	return fallback
}

// BoolOption returns a boolean option value, or fallback when absent.
func (c *Context) BoolOption(name string, fallback bool) bool {
	opt, ok := c.Option(name)
	if !ok {
		return fallback
	}
	if b, ok := opt.Value.(bool); ok {
		return b
	}
	return fallback
}

// Focused returns the option the user is typing in during autocomplete.
func (c *Context) Focused() (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range c.Options {
		if opt.Focused {
			return opt, true
		}
	}
	return nil, false
}

// Target returns the user or message id a context-menu command was used on.
func (c *Context) Target() string {
	if data, ok := c.Interaction.Data.(discordgo.ApplicationCommandInteractionData); ok {
		return data.TargetID
	}
	return ""
}

// Values returns the selected values of a select menu interaction.
func (c *Context) Values() []string {
	if data, ok := c.Interaction.Data.(discordgo.MessageComponentInteractionData); ok {
		return data.Values
	}
	return nil
}

// ModalValue returns the submitted value of the text input with customID.
func (c *Context) ModalValue(customID string) (string, bool) {
	data, ok := c.Interaction.Data.(discordgo.ModalSubmitInteractionData)
	if !ok {
		return "", false
	}
	return findTextInput(data.Components, customID)
}

func findTextInput(components []discordgo.MessageComponent, customID string) (string, bool) {
	for _, comp := range components {
		switch v := comp.(type) {
		case *discordgo.TextInput:
			if v.CustomID == customID {
				return v.Value, true
			}
		case discordgo.TextInput:
			if v.CustomID == customID {
				return v.Value, true
			}
		case *discordgo.ActionsRow:
			if s, ok := findTextInput(v.Components, customID); ok {
				return s, true
			}
		case discordgo.ActionsRow:
			if s, ok := findTextInput(v.Components, customID); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Arg returns the i-th custom id argument, or "" if absent.
func (c *Context) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// IntArg parses the i-th custom id argument as an integer.
func (c *Context) IntArg(i int) (int64, error) {
	if i < 0 || i >= len(c.Args) {
		return 0, fmt.Errorf("custom id argument %d missing", i)
	}
	n, err := strconv.ParseInt(c.Args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("custom id argument %d: %w", i, err)
	}
	return n, nil
}

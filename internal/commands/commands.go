// Package commands is the built-in command set served by the interactions
// binary. It exercises every handler class: chat commands, autocomplete,
// buttons, modals, subcommand groups and a user context menu.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/rvald/interactions/internal/interactions"
)

// Custom ids used by the components this package emits.
const (
	CounterID       = "counter"
	FeedbackModalID = "feedback"
	FeedbackInputID = "feedback_text"
)

// maxChoices is the platform limit on autocomplete suggestions.
const maxChoices = 25

var greetings = []string{
	"world", "friend", "everyone", "team", "stranger",
	"gopher", "moderators", "newcomers", "night owls", "early birds",
}

// Blueprint returns the built-in commands and component handlers.
func Blueprint() (*interactions.Blueprint, error) {
	bp := interactions.NewBlueprint()
	manage := int64(discordgo.PermissionManageGuild)

	cmds := []*interactions.Command{
		{
			Name:        "ping",
			Description: "Check that the bot is reachable",
			Handler:     ping,
		},
		{
			Name:        "greet",
			Description: "Say hello to someone",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Who to greet", Autocomplete: true},
			},
			NameLocalizations:        map[discordgo.Locale]string{discordgo.German: "gruessen", discordgo.SpanishES: "saludar"},
			DescriptionLocalizations: map[discordgo.Locale]string{discordgo.German: "Jemanden begruessen", discordgo.SpanishES: "Saludar a alguien"},
			Handler:                  greet,
			Autocomplete:             greetAutocomplete,
		},
		{
			Name:        "counter",
			Description: "Post a button that counts its clicks",
			Handler:     counter,
		},
		{
			Name:                     "feedback",
			Description:              "Send feedback to the server admins",
			DefaultMemberPermissions: &manage,
			Handler:                  feedback,
		},
		{
			Name:        "info",
			Description: "Show information",
			Subcommands: []*interactions.Command{
				{Name: "user", Description: "About you", Handler: infoUser},
				{Name: "server", Description: "About this server", Handler: infoServer},
			},
		},
		{
			Name:    "Profile",
			Type:    discordgo.UserApplicationCommand,
			Handler: profile,
		},
	}
	for _, c := range cmds {
		if err := bp.Command(c); err != nil {
			return nil, fmt.Errorf("command %s: %w", c.Name, err)
		}
	}

	if err := bp.Handler(CounterID, counterClick); err != nil {
		return nil, err
	}
	if err := bp.Handler(FeedbackModalID, feedbackSubmit); err != nil {
		return nil, err
	}
	return bp, nil
}

func ping(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	return interactions.Text("🏓 Pong!"), nil
}

func greet(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	name := ic.StringOption("name", "")
	if name == "" {
		if u := ic.User(); u != nil {
			name = u.Username
		} else {
			name = "world"
		}
	}
	return interactions.Text(fmt.Sprintf("👋 Hello, %s!", name)), nil
}

func greetAutocomplete(ctx context.Context, ic *interactions.Context) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	prefix := ""
	if opt, ok := ic.Focused(); ok {
		if s, ok := opt.Value.(string); ok {
			prefix = strings.ToLower(s)
		}
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for _, g := range greetings {
		if !strings.HasPrefix(g, prefix) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: g, Value: g})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices, nil
}

// counterMessage renders the counter with a button carrying the next count.
func counterMessage(n int64) (*interactions.Message, error) {
	id, err := interactions.EncodeCustomID(CounterID, n)
	if err != nil {
		return nil, err
	}
	return &interactions.Message{
		Content: fmt.Sprintf("🔢 Count: %d", n),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "+1", Style: discordgo.PrimaryButton, CustomID: id},
			}},
		},
	}, nil
}

func counter(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	return counterMessage(0)
}

func counterClick(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	n, err := ic.IntArg(0)
	if err != nil {
		return nil, err
	}
	msg, err := counterMessage(n + 1)
	if err != nil {
		return nil, err
	}
	msg.Update = true
	return msg, nil
}

func feedback(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	return &interactions.Modal{
		CustomID: FeedbackModalID,
		Title:    "Feedback",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    FeedbackInputID,
					Label:       "What should we improve?",
					Style:       discordgo.TextInputParagraph,
					Placeholder: "Be specific",
					Required:    true,
					MaxLength:   1000,
				},
			}},
		},
	}, nil
}

func feedbackSubmit(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	text, ok := ic.ModalValue(FeedbackInputID)
	if !ok || strings.TrimSpace(text) == "" {
		return interactions.Ephemeral("❌ Feedback was empty"), nil
	}
	ic.Logger.Info("feedback received", "guild_id", ic.GuildID(), "length", len(text))
	return interactions.Ephemeral("✅ Thanks for your feedback!"), nil
}

func infoUser(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	u := ic.User()
	if u == nil {
		return interactions.Ephemeral("❓ Unknown user"), nil
	}
	return interactions.Ephemeral(fmt.Sprintf("👤 %s (%s)", u.Username, u.ID)), nil
}

func infoServer(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	if ic.GuildID() == "" {
		return interactions.Ephemeral("💬 This is a direct message, not a server"), nil
	}
	return interactions.Ephemeral(fmt.Sprintf("🏠 Server %s, channel %s", ic.GuildID(), ic.ChannelID())), nil
}

func profile(ctx context.Context, ic *interactions.Context) (interactions.Response, error) {
	target := ic.Target()
	name := target
	if data, ok := ic.Interaction.Data.(discordgo.ApplicationCommandInteractionData); ok && data.Resolved != nil {
		if u, ok := data.Resolved.Users[target]; ok {
			name = u.Username
		}
	}
	return &interactions.Message{
		Content:         fmt.Sprintf("🪪 Profile of %s (<@%s>)", name, target),
		Ephemeral:       true,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, nil
}

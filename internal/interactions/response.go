package interactions

import (
	"github.com/bwmarrin/discordgo"
)

// Response is what a handler returns: either a *Message or a *Modal.
type Response interface {
	variant() variant
}

type variant int

const (
	variantMessage variant = iota + 1
	variantModal
)

// Message is a message reply.
//
// Update edits the message the component was attached to instead of sending
// a new one. Deferred acknowledges now and leaves the content to a follow-up.
type Message struct {
	Content         string
	TTS             bool
	Embeds          []*discordgo.MessageEmbed
	Components      []discordgo.MessageComponent
	AllowedMentions *discordgo.MessageAllowedMentions
	Ephemeral       bool
	Update          bool
	Deferred        bool
}

func (*Message) variant() variant { return variantMessage }

// Modal opens a popup form.
type Modal struct {
	CustomID   string
	Title      string
	Components []discordgo.MessageComponent
}

func (*Modal) variant() variant { return variantModal }

// Text is shorthand for a plain message.
func Text(content string) *Message {
	return &Message{Content: content}
}

// Ephemeral is shorthand for a message only the invoking user can see.
func Ephemeral(content string) *Message {
	return &Message{Content: content, Ephemeral: true}
}

func (m *Message) responseType() discordgo.InteractionResponseType {
	switch {
	case m.Update && m.Deferred:
		return discordgo.InteractionResponseDeferredMessageUpdate
	case m.Update:
		return discordgo.InteractionResponseUpdateMessage
	case m.Deferred:
		return discordgo.InteractionResponseDeferredChannelMessageWithSource
	default:
		return discordgo.InteractionResponseChannelMessageWithSource
	}
}

func (m *Message) encode() *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		TTS:             m.TTS,
		Content:         m.Content,
		Components:      m.Components,
		Embeds:          m.Embeds,
		AllowedMentions: m.AllowedMentions,
	}
	if m.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{Type: m.responseType(), Data: data}
}

func (m *Modal) encode() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   m.CustomID,
			Title:      m.Title,
			Components: m.Components,
		},
	}
}

func pong() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}
}

func autocompleteResult(choices []*discordgo.ApplicationCommandOptionChoice) *discordgo.InteractionResponse {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}
}

// normalize checks a handler's response against what the interaction type
// permits and encodes it.
func normalize(t discordgo.InteractionType, resp Response) (*discordgo.InteractionResponse, error) {
	switch r := resp.(type) {
	case *Message:
		if r == nil {
			return nil, ErrEmptyResponse
		}
		if r.Update && t != discordgo.InteractionMessageComponent && t != discordgo.InteractionModalSubmit {
			return nil, ErrUpdateNotAllowed
		}
		return r.encode(), nil
	case *Modal:
		if r == nil {
			return nil, ErrEmptyResponse
		}
		if t != discordgo.InteractionApplicationCommand && t != discordgo.InteractionMessageComponent {
			return nil, ErrModalNotAllowed
		}
		return r.encode(), nil
	default:
		return nil, ErrEmptyResponse
	}
}

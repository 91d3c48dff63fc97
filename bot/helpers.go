package bot

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"rolegate/lib/sl"
)

func (b *Bot) replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Warn("sending interaction response", sl.Err(err))
	}
}

// deferEphemeral acknowledges the interaction so slower subcommands do not
// hit the platform's response deadline.
func (b *Bot) deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &text,
	})
	if err != nil {
		b.log.Warn("editing interaction response", sl.Err(err))
	}
}

func (b *Bot) editReplyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		b.log.Warn("editing interaction response", sl.Err(err))
	}
}

// reportError logs the underlying cause and shows the user a generic
// message; command users never see internals.
func (b *Bot) reportError(s *discordgo.Session, i *discordgo.InteractionCreate, command string, err error) {
	b.log.Error("bot command failed",
		slog.String("command", command),
		slog.String("guild_id", i.GuildID),
		sl.Err(err),
	)
	b.editReply(s, i, "An error occurred while processing your request. Please try again.")
}

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"toolshed/internal/domain"
)

// Discord limits embed descriptions to 4096 characters; announcements stay
// well under that
const maxDescription = 300

const embedColor = 0x5865f2

// embedSender is the part of *discordgo.Session the announcer uses
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAnnouncer posts newly listed tools to a Discord channel. It only
// uses the REST API, so no gateway connection is opened.
type DiscordAnnouncer struct {
	sender    embedSender
	channelID string
	logger    *slog.Logger
}

// NewDiscordAnnouncer creates an announcer from a bot token
func NewDiscordAnnouncer(token, channelID string, logger *slog.Logger) (*DiscordAnnouncer, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &DiscordAnnouncer{sender: session, channelID: channelID, logger: logger}, nil
}

// Announce posts an embed describing the tool
func (a *DiscordAnnouncer) Announce(ctx context.Context, tool *domain.Tool) error {
	msg, err := a.sender.ChannelMessageSendEmbed(a.channelID, buildEmbed(tool), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to announce tool %s: %w", tool.ID, err)
	}

	a.logger.Info("Tool announced",
		"tool_id", tool.ID,
		"channel_id", a.channelID,
		"message_id", msg.ID,
	)
	return nil
}

func buildEmbed(tool *domain.Tool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       tool.Name,
		URL:         tool.URL,
		Description: truncate(tool.Description, maxDescription),
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Categories", Value: strings.Join(tool.Categories, ", "), Inline: true},
			{Name: "Price", Value: string(tool.Price), Inline: true},
			{Name: "Ease of use", Value: string(tool.EaseOfUse), Inline: true},
		},
		Timestamp: tool.SubmittedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	if tool.Justification != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Why it's useful",
			Value: truncate(tool.Justification, maxDescription),
		})
	}
	if tool.SubmittedBy != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Submitted by " + tool.SubmittedBy}
	}
	if tool.ImageURL != nil && *tool.ImageURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: *tool.ImageURL}
	}

	return embed
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/domain"
	"toolshed/internal/pkg/logger"
)

type fakeSender struct {
	channelID string
	embed     *discordgo.MessageEmbed
	err       error
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.channelID = channelID
	f.embed = embed
	return &discordgo.Message{ID: "m1"}, nil
}

func testTool() *domain.Tool {
	image := "https://example.com/og.png"
	return &domain.Tool{
		ID:            "t1",
		URL:           "https://example.com",
		Name:          "Example",
		Description:   "Writes things",
		Categories:    []string{"writing", "productivity"},
		Price:         domain.PriceFreemium,
		EaseOfUse:     domain.EaseOfUseBeginner,
		SubmittedBy:   "sam",
		Justification: "Great for release notes",
		ImageURL:      &image,
		SubmittedAt:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAnnounce(t *testing.T) {
	sender := &fakeSender{}
	a := &DiscordAnnouncer{sender: sender, channelID: "c1", logger: logger.Discard()}

	require.NoError(t, a.Announce(context.Background(), testTool()))

	assert.Equal(t, "c1", sender.channelID)
	require.NotNil(t, sender.embed)
	assert.Equal(t, "Example", sender.embed.Title)
	assert.Equal(t, "https://example.com", sender.embed.URL)
	assert.Equal(t, "writing, productivity", sender.embed.Fields[0].Value)
	assert.Equal(t, "https://example.com/og.png", sender.embed.Thumbnail.URL)
	assert.Equal(t, "Submitted by sam", sender.embed.Footer.Text)
	assert.Equal(t, "2026-06-01T12:00:00Z", sender.embed.Timestamp)
}

func TestAnnounceError(t *testing.T) {
	a := &DiscordAnnouncer{sender: &fakeSender{err: errors.New("403")}, channelID: "c1", logger: logger.Discard()}

	err := a.Announce(context.Background(), testTool())
	assert.Error(t, err)
}

func TestBuildEmbedWithoutOptionalFields(t *testing.T) {
	tool := testTool()
	tool.ImageURL = nil
	tool.SubmittedBy = ""
	tool.Justification = ""

	embed := buildEmbed(tool)

	assert.Nil(t, embed.Thumbnail)
	assert.Nil(t, embed.Footer)
	assert.Len(t, embed.Fields, 3)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("é", 400)
	got := truncate(long, maxDescription)
	assert.Equal(t, maxDescription, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

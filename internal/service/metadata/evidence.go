package metadata

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// Evidence modes
const (
	EvidenceTags     = "tags"
	EvidenceMarkdown = "markdown"
)

// EvidenceBuilder renders what was found on a page as prompt text. In
// markdown mode a truncated markdown projection of the page is appended.
type EvidenceBuilder struct {
	mode     string
	maxChars int
	conv     *converter.Converter
}

// NewEvidenceBuilder creates a builder for the given mode
func NewEvidenceBuilder(mode string, maxChars int) *EvidenceBuilder {
	b := &EvidenceBuilder{mode: mode, maxChars: maxChars}
	if mode == EvidenceMarkdown {
		b.conv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
	}
	return b
}

// Build renders tag and oEmbed values, plus page markdown in markdown mode
func (b *EvidenceBuilder) Build(pageURL, rawHTML string, tags Tags, oembed *OEmbedResult) string {
	var sb strings.Builder

	writeField(&sb, "Title", tags.Title)
	writeField(&sb, "Description", tags.Description)
	writeField(&sb, "Image URL", tags.ImageURL)

	if oembed != nil {
		sb.WriteString("oEmbed provider: ")
		sb.WriteString(oembed.Provider)
		sb.WriteString("\n")
		writeField(&sb, "oEmbed title", oembed.Title)
		writeField(&sb, "oEmbed description", oembed.Description)
	}

	if b.conv != nil && rawHTML != "" {
		if md := b.markdown(pageURL, rawHTML); md != "" {
			sb.WriteString("\nPage content (markdown, may be truncated):\n")
			sb.WriteString(md)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (b *EvidenceBuilder) markdown(pageURL, rawHTML string) string {
	md, err := b.conv.ConvertString(rawHTML, converter.WithDomain(pageURL))
	if err != nil {
		return ""
	}
	return truncateRunes(strings.TrimSpace(md), b.maxChars)
}

func writeField(sb *strings.Builder, label string, value Optional[string]) {
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(value.OrElse("(not found)"))
	sb.WriteString("\n")
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

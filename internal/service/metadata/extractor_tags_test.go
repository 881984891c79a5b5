package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTagsImagePriority(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		baseURL string
		want    string
		absent  bool
	}{
		{
			name: "og:image beats icon",
			html: `<head><link rel="icon" href="/favicon.ico">
				<meta property="og:image" content="https://cdn.example.com/og.png"></head>`,
			baseURL: "https://example.com/",
			want:    "https://cdn.example.com/og.png",
		},
		{
			name:    "Relative path resolved against page",
			html:    `<meta property="og:image" content="/img/logo.svg">`,
			baseURL: "https://example.com/page",
			want:    "https://example.com/img/logo.svg",
		},
		{
			name:    "Relative path without leading slash",
			html:    `<meta property="og:image" content="assets/card.png">`,
			baseURL: "https://example.com/tools/page",
			want:    "https://example.com/tools/assets/card.png",
		},
		{
			name:    "Protocol relative URL",
			html:    `<meta property="og:image" content="//cdn.example.com/a.png">`,
			baseURL: "https://example.com",
			want:    "https://cdn.example.com/a.png",
		},
		{
			name:    "Attribute order and case are free",
			html:    `<META CONTENT="https://example.com/og.png" PROPERTY="OG:IMAGE">`,
			baseURL: "https://example.com",
			want:    "https://example.com/og.png",
		},
		{
			name:    "Single quoted attributes",
			html:    `<meta property='og:image' content='/single.png'>`,
			baseURL: "https://example.com",
			want:    "https://example.com/single.png",
		},
		{
			name: "twitter:image when og:image missing",
			html: `<link rel="apple-touch-icon" href="/apple.png">
				<meta name="twitter:image" content="https://example.com/tw.png">`,
			baseURL: "https://example.com",
			want:    "https://example.com/tw.png",
		},
		{
			name: "apple-touch-icon beats icon",
			html: `<link rel="icon" href="/favicon.ico">
				<link rel="apple-touch-icon" href="/apple.png">`,
			baseURL: "https://example.com",
			want:    "https://example.com/apple.png",
		},
		{
			name: "Sized icon beats plain icon",
			html: `<link rel="icon" href="/favicon.ico">
				<link rel="icon" type="image/png" sizes="192x192" href="/icon-192.png">`,
			baseURL: "https://example.com",
			want:    "https://example.com/icon-192.png",
		},
		{
			name:    "Shortcut icon counts as icon",
			html:    `<link rel="shortcut icon" href="/favicon.ico">`,
			baseURL: "https://example.com",
			want:    "https://example.com/favicon.ico",
		},
		{
			name: "First match in document order wins within a tier",
			html: `<meta property="og:image" content="https://example.com/first.png">
				<meta property="og:image" content="https://example.com/second.png">`,
			baseURL: "https://example.com",
			want:    "https://example.com/first.png",
		},
		{
			name:    "Entity encoded query string",
			html:    `<meta property="og:image" content="https://example.com/og?w=1&amp;h=2">`,
			baseURL: "https://example.com",
			want:    "https://example.com/og?w=1&h=2",
		},
		{
			name:    "No image tags at all",
			html:    `<html><head><title>Plain</title></head><body><img src="/hero.png"></body></html>`,
			baseURL: "https://example.com",
			absent:  true,
		},
		{
			name:    "Malformed value is absent",
			html:    `<meta property="og:image" content="http://[::1">`,
			baseURL: "https://example.com",
			absent:  true,
		},
		{
			name:    "Non-http scheme is absent",
			html:    `<meta property="og:image" content="javascript:alert(1)">`,
			baseURL: "https://example.com",
			absent:  true,
		},
		{
			name:    "Data URI is absent",
			html:    `<link rel="icon" href="data:image/png;base64,AAAA">`,
			baseURL: "https://example.com",
			absent:  true,
		},
		{
			name:    "Relative path with unusable base is absent",
			html:    `<meta property="og:image" content="/logo.png">`,
			baseURL: "not a url",
			absent:  true,
		},
		{
			name: "Unresolvable winner means no image",
			html: `<meta property="og:image" content="http://[::1">
				<link rel="icon" href="/favicon.ico">`,
			baseURL: "https://example.com",
			absent:  true,
		},
		{
			name: "Blank og:image does not win",
			html: `<meta property="og:image" content="  ">
				<link rel="icon" href="/favicon.ico">`,
			baseURL: "https://example.com",
			want:    "https://example.com/favicon.ico",
		},
		{
			name:    "Quoted value containing a closing bracket",
			html:    `<meta content="https://example.com/og.png?q=a>b" property="og:image">`,
			baseURL: "https://example.com",
			want:    "https://example.com/og.png?q=a>b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := ExtractTags(tt.html, tt.baseURL, true)
			got, ok := tags.ImageURL.Get()
			if tt.absent {
				assert.False(t, ok, "expected no image, got %q", got)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTagsTitle(t *testing.T) {
	tags := ExtractTags(`<TITLE lang="en">
		Midjourney &amp; Friends   </TITLE><title>Second</title>`, "https://example.com", true)
	title, ok := tags.Title.Get()
	assert.True(t, ok)
	assert.Equal(t, "Midjourney & Friends", title)

	empty := ExtractTags(`<title>   </title>`, "https://example.com", true)
	assert.False(t, empty.Title.Present())
}

func TestExtractTagsDescriptionPriority(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		summarize bool
		want      string
		absent    bool
	}{
		{
			name: "og:description beats description",
			html: `<meta name="description" content="Plain description">
				<meta property="og:description" content="Open Graph description">`,
			summarize: true,
			want:      "Open Graph description",
		},
		{
			name:      "description meta",
			html:      `<meta content="An editor built for pair programming with AI." name="description">`,
			summarize: true,
			want:      "An editor built for pair programming with AI.",
		},
		{
			name:      "Quoted value containing a closing bracket",
			html:      `<meta content="Fast > slow: an AI tool" property="og:description">`,
			summarize: true,
			want:      "Fast > slow: an AI tool",
		},
		{
			name:      "twitter:description is not a description",
			html:      `<meta name="twitter:description" content="Tweet text"><p>Short</p>`,
			summarize: false,
			absent:    true,
		},
		{
			name: "Summary from first meaningful paragraph",
			html: `<h1>Cursor</h1><p>Accept</p>
				<p>Cursor is the <b>AI code editor</b>. Built to make you extraordinarily productive.</p>`,
			summarize: true,
			want:      "Cursor is the AI code editor.",
		},
		{
			name: "Summary joins heading and paragraph",
			html: `<h1>Perplexity</h1>
				<p>Answers to any question, with sources you can check. Free to try.</p>`,
			summarize: true,
			want:      "Perplexity: Answers to any question, with sources you can check.",
		},
		{
			name:      "Summary from paragraph alone",
			html:      `<p>An assistant that drafts your meeting notes for you.</p>`,
			summarize: true,
			want:      "An assistant that drafts your meeting notes for you.",
		},
		{
			name:      "Summary falls back to heading",
			html:      `<h1>Whimsical <span>AI</span></h1><p>Hi</p>`,
			summarize: true,
			want:      "Whimsical AI",
		},
		{
			name:      "Scripts are ignored",
			html:      `<script>var p = "<p>This is not part of the page text at all.</p>";</script><h1>Real</h1>`,
			summarize: true,
			want:      "Real",
		},
		{
			name:      "Summary disabled",
			html:      `<h1>Cursor</h1><p>Cursor is the AI code editor used by thousands.</p>`,
			summarize: false,
			absent:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := ExtractTags(tt.html, "https://example.com", tt.summarize)
			got, ok := tags.Description.Get()
			if tt.absent {
				assert.False(t, ok, "expected no description, got %q", got)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTagsEmptyDocument(t *testing.T) {
	tags := ExtractTags("", "https://example.com", true)
	assert.True(t, tags.Empty())
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, `Tom & Jerry's "AI"`, cleanText(`  Tom &amp; Jerry&#39;s <em>&quot;AI&quot;</em> `))
	assert.Equal(t, "a b c", cleanText("a\n\t b   c"))
}

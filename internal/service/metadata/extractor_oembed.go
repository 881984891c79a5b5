package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OEmbedExtractor looks up metadata through a provider's oEmbed API
type OEmbedExtractor struct {
	registry   *OEmbedRegistry
	logger     *slog.Logger
	httpClient *http.Client
}

// OEmbedResult holds the literal values an oEmbed provider reported
type OEmbedResult struct {
	Provider     string
	Title        Optional[string]
	Description  Optional[string]
	ThumbnailURL Optional[string]
}

// oEmbedResponse is the standard oEmbed JSON response.
// See: https://oembed.com/#section2.3
type oEmbedResponse struct {
	Type         string      `json:"type"`
	Version      interface{} `json:"version"` // some providers send a number
	Title        string      `json:"title"`
	AuthorName   string      `json:"author_name"`
	ProviderName string      `json:"provider_name"`
	ThumbnailURL string      `json:"thumbnail_url"`
	Description  string      `json:"description"` // not in the standard, some providers include it
}

// shortLinkDomains redirect to canonical URLs that oEmbed endpoints accept
var shortLinkDomains = map[string]bool{
	"youtu.be": true,
}

// NewOEmbedExtractor creates an extractor whose requests are bounded by timeout
func NewOEmbedExtractor(registry *OEmbedRegistry, timeout time.Duration, logger *slog.Logger) *OEmbedExtractor {
	return &OEmbedExtractor{
		registry:   registry,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// TryExtract returns nil, nil when no provider serves the URL. An error means
// a provider exists but the lookup failed.
func (e *OEmbedExtractor) TryExtract(ctx context.Context, resourceURL string) (*OEmbedResult, error) {
	resolvedURL, err := e.resolveShortLink(ctx, resourceURL)
	if err != nil {
		e.logger.Debug("Failed to resolve short link, using original URL",
			"original_url", resourceURL,
			"error", err)
		resolvedURL = resourceURL
	}

	provider := e.registry.Match(resolvedURL)
	if provider == nil {
		provider = e.registry.Match(resourceURL)
	}
	if provider == nil {
		return nil, nil
	}

	oembedURL, err := buildOEmbedURL(provider.Endpoint, resolvedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build oEmbed URL: %w", err)
	}

	e.logger.Debug("Making oEmbed API request",
		"provider", provider.Name,
		"oembed_api_url", oembedURL)

	data, err := e.fetchOEmbed(ctx, oembedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data from %s: %w", provider.Name, err)
	}

	result := &OEmbedResult{
		Provider:     provider.Name,
		Title:        nonEmpty(cleanText(data.Title)),
		Description:  nonEmpty(cleanText(data.Description)),
		ThumbnailURL: nonEmpty(resolveImageURL(data.ThumbnailURL, resolvedURL)),
	}

	e.logger.Info("oEmbed extraction successful",
		"provider", provider.Name,
		"url", resourceURL,
		"has_title", result.Title.Present(),
		"has_image", result.ThumbnailURL.Present())

	return result, nil
}

// buildOEmbedURL adds the resource and format parameters to an endpoint
func buildOEmbedURL(endpoint, resourceURL string) (string, error) {
	endpoint = strings.ReplaceAll(endpoint, "{format}", "json")

	baseURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL: %w", err)
	}

	query := baseURL.Query()
	query.Set("url", resourceURL)
	query.Set("format", "json")
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

func (e *OEmbedExtractor) fetchOEmbed(ctx context.Context, oembedURL string) (*oEmbedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("HTTP error: %s (body: %s)", resp.Status, string(body))
	}

	var data oEmbedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return &data, nil
}

// resolveShortLink follows one redirect for known short link domains
func (e *OEmbedExtractor) resolveShortLink(ctx context.Context, rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, err
	}

	if !shortLinkDomains[parsedURL.Host] {
		return rawURL, nil
	}

	// Capture the Location header instead of following it
	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return rawURL, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return rawURL, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return rawURL, nil
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return rawURL, fmt.Errorf("redirect response but no Location header")
	}

	resolvedURL, err := url.Parse(location)
	if err != nil {
		return rawURL, fmt.Errorf("failed to parse redirect location: %w", err)
	}
	if !resolvedURL.IsAbs() {
		resolvedURL = parsedURL.ResolveReference(resolvedURL)
	}

	e.logger.Debug("Resolved short link redirect",
		"short_url", rawURL,
		"resolved_url", resolvedURL.String(),
		"status_code", resp.StatusCode)

	return resolvedURL.String(), nil
}

func nonEmpty(s string) Optional[string] {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

package metadata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// The embedded list is a subset of oembed.com/providers.json: hosts where
// tools publish demos, sandboxes and design files
//
//go:embed oembed_providers.json
var oembedProvidersJSON []byte

// OEmbedProvider is an oEmbed endpoint with the URL patterns it serves
type OEmbedProvider struct {
	Name     string
	Endpoint string
	Schemes  []*regexp.Regexp
}

// OEmbedRegistry matches submitted tool URLs to oEmbed providers
type OEmbedRegistry struct {
	providers []*OEmbedProvider
}

type providerEntry struct {
	Name      string `json:"provider_name"`
	Endpoints []struct {
		Schemes []string `json:"schemes"`
		URL     string   `json:"url"`
	} `json:"endpoints"`
}

// NewOEmbedRegistry loads the embedded provider list
func NewOEmbedRegistry() (*OEmbedRegistry, error) {
	return parseOEmbedRegistry(oembedProvidersJSON)
}

func parseOEmbedRegistry(data []byte) (*OEmbedRegistry, error) {
	var entries []providerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse oEmbed providers: %w", err)
	}

	registry := &OEmbedRegistry{providers: make([]*OEmbedProvider, 0, len(entries))}
	for _, entry := range entries {
		if provider := compileProvider(entry); provider != nil {
			registry.providers = append(registry.providers, provider)
		}
	}
	return registry, nil
}

// compileProvider returns nil for entries without an endpoint URL or a
// single usable scheme. Only the first endpoint is used.
func compileProvider(entry providerEntry) *OEmbedProvider {
	if len(entry.Endpoints) == 0 || entry.Endpoints[0].URL == "" {
		return nil
	}
	endpoint := entry.Endpoints[0]

	provider := &OEmbedProvider{Name: entry.Name, Endpoint: endpoint.URL}
	seen := make(map[string]bool)
	for _, scheme := range endpoint.Schemes {
		for _, variant := range hostVariants(scheme) {
			pattern := schemeToRegex(variant)
			if seen[pattern] {
				continue
			}
			seen[pattern] = true

			regex, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			provider.Schemes = append(provider.Schemes, regex)
		}
	}

	if len(provider.Schemes) == 0 {
		return nil
	}
	return provider
}

// hostVariants adds the bare host form of a scheme. People paste tool links
// with and without www., and "*.host" in a scheme never matches the bare host.
func hostVariants(scheme string) []string {
	variants := []string{scheme}
	for _, prefix := range []string{"://www.", "://*."} {
		if strings.Contains(scheme, prefix) {
			variants = append(variants, strings.Replace(scheme, prefix, "://", 1))
		}
	}
	return variants
}

// Match finds the provider for rawURL, nil when none serves it
func (r *OEmbedRegistry) Match(rawURL string) *OEmbedProvider {
	for _, provider := range r.providers {
		for _, pattern := range provider.Schemes {
			if pattern.MatchString(rawURL) {
				return provider
			}
		}
	}
	return nil
}

// schemeToRegex anchors an oEmbed scheme, turning * into .* and escaping
// everything else
func schemeToRegex(scheme string) string {
	pattern := regexp.QuoteMeta(scheme)
	pattern = strings.ReplaceAll(pattern, `\*`, ".*")
	return "^" + pattern + "$"
}

// ProviderCount returns the number of usable providers
func (r *OEmbedRegistry) ProviderCount() int {
	return len(r.providers)
}

// Provider returns a provider by name (case-sensitive)
func (r *OEmbedRegistry) Provider(name string) *OEmbedProvider {
	for _, provider := range r.providers {
		if provider.Name == name {
			return provider
		}
	}
	return nil
}

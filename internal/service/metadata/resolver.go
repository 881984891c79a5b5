package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"toolshed/internal/domain"
	"toolshed/internal/llm"
	"toolshed/internal/metrics"
	"toolshed/internal/pkg/urlnorm"
)

// Source records where a resolved field's value came from
type Source string

const (
	SourcePage      Source = "page"
	SourceOEmbed    Source = "oembed"
	SourceKnowledge Source = "knowledge"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Resolution tiers, reported in metrics and logs
const (
	TierKnowledge    = "knowledge"
	TierPage         = "page"
	TierFetchFailure = "fetch_failure"
	TierFallback     = "fallback"
)

// FieldSources holds the Source of every metadata field
type FieldSources struct {
	Title       Source `json:"title"`
	Description Source `json:"description"`
	Categories  Source `json:"categories"`
	Image       Source `json:"image"`
}

// Resolution is the outcome of resolving one URL. Title and Description of
// Metadata are never empty and Categories always has at least one entry.
type Resolution struct {
	Metadata domain.ToolMetadata `json:"metadata"`
	Sources  FieldSources        `json:"sources"`
	Tier     string              `json:"tier"`

	// ImageAttempted is false when neither the page nor an oEmbed provider
	// could be consulted; a nil ImageURL with ImageAttempted set means no
	// image exists
	ImageAttempted bool   `json:"imageAttempted"`
	FetchError     string `json:"fetchError,omitempty"`
}

// Options selects resolver behaviour
type Options struct {
	KnowledgeFirst       bool
	SummarizeFromBody    bool
	TrustGeneratedImages bool
	MaxCategories        int
}

// Deps are the collaborators of a Resolver. OEmbed, Evidence and Metrics may be nil.
type Deps struct {
	Fetcher   Fetcher
	OEmbed    *OEmbedExtractor
	Generator llm.Generator
	Evidence  *EvidenceBuilder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Resolver derives tool metadata for a URL from its page, oEmbed and a
// structured generation capability, falling back tier by tier
type Resolver struct {
	fetcher   Fetcher
	oembed    *OEmbedExtractor
	generator llm.Generator
	evidence  *EvidenceBuilder
	metrics   *metrics.Metrics
	logger    *slog.Logger
	opts      Options
}

// NewResolver creates a resolver
func NewResolver(deps Deps, opts Options) *Resolver {
	if opts.MaxCategories <= 0 {
		opts.MaxCategories = 3
	}
	evidence := deps.Evidence
	if evidence == nil {
		evidence = NewEvidenceBuilder(EvidenceTags, 0)
	}

	return &Resolver{
		fetcher:   deps.Fetcher,
		oembed:    deps.OEmbed,
		generator: deps.Generator,
		evidence:  evidence,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		opts:      opts,
	}
}

// pageEvidence is everything gathered from the page itself
type pageEvidence struct {
	fetch  domain.FetchResult
	tags   Tags
	oembed *OEmbedResult
}

// Resolve never fails. Knowledge generation runs concurrently with the page
// fetch and oEmbed lookup; the page prompt is only sent once the fetch is done.
func (r *Resolver) Resolve(ctx context.Context, pageURL, justification string) Resolution {
	start := time.Now()
	log := r.logger.With("url", pageURL)

	if err := ctx.Err(); err != nil {
		log.Warn("Context done before resolution, using fallback", "error", err)
		r.metrics.ObserveResolution(TierFallback, time.Since(start))
		return Fallback(pageURL, justification)
	}

	var (
		wg           sync.WaitGroup
		knowledge    *generatedMetadata
		knowledgeErr error
	)
	if r.opts.KnowledgeFirst {
		wg.Add(1)
		go func() {
			defer wg.Done()
			knowledge, knowledgeErr = r.generate(ctx, promptKnowledge, knowledgeRequest(pageURL, justification))
		}()
	}

	page := r.gatherEvidence(ctx, pageURL)
	wg.Wait()

	if knowledgeErr != nil {
		log.Debug("Knowledge generation failed", "error", knowledgeErr)
	}

	var (
		generated *generatedMetadata
		genSource = SourceGenerated
		tier      string
	)

	switch {
	case usable(knowledge):
		generated, genSource, tier = knowledge, SourceKnowledge, TierKnowledge
	case page.fetch.OK():
		tier = TierPage
		evidence := r.evidence.Build(pageURL, page.fetch.HTMLContent, page.tags, page.oembed)
		out, err := r.generate(ctx, promptPage, pageRequest(pageURL, justification, evidence))
		if err != nil {
			log.Warn("Page generation failed", "error", err)
		}
		generated = out
	default:
		tier = TierFetchFailure
		out, err := r.generate(ctx, promptFetchFailure, fetchFailureRequest(pageURL, justification, page.fetch.Err))
		if err != nil {
			log.Warn("Fetch-failure generation failed", "error", err)
		}
		generated = out
	}

	if generated == nil {
		tier = TierFallback
	}

	res := r.assemble(pageURL, justification, page, generated, genSource, knowledge)
	res.Tier = tier

	r.metrics.ObserveResolution(tier, time.Since(start))
	r.metrics.ObserveFieldSource("title", string(res.Sources.Title))
	r.metrics.ObserveFieldSource("description", string(res.Sources.Description))
	r.metrics.ObserveFieldSource("categories", string(res.Sources.Categories))
	r.metrics.ObserveFieldSource("image", string(res.Sources.Image))

	log.Info("Resolved metadata",
		"tier", tier,
		"title_source", res.Sources.Title,
		"image_source", res.Sources.Image,
		"has_image", res.Metadata.HasImage(),
		"fetch_error", res.FetchError,
		"elapsed", time.Since(start))

	return res
}

// gatherEvidence fetches the page and looks up oEmbed concurrently. Neither
// failure affects the other.
func (r *Resolver) gatherEvidence(ctx context.Context, pageURL string) pageEvidence {
	var (
		ev pageEvidence
		wg sync.WaitGroup
	)

	if r.oembed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := r.oembed.TryExtract(ctx, pageURL)
			if err != nil {
				r.logger.Debug("oEmbed lookup failed", "url", pageURL, "error", err)
				return
			}
			ev.oembed = result
		}()
	}

	ev.fetch = r.safeFetch(ctx, pageURL)
	r.metrics.ObserveFetch(ev.fetch.OK())
	if ev.fetch.OK() {
		ev.tags = ExtractTags(ev.fetch.HTMLContent, pageURL, r.opts.SummarizeFromBody)
	}

	wg.Wait()
	return ev
}

func (r *Resolver) safeFetch(ctx context.Context, pageURL string) (result domain.FetchResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Fetcher panicked", "url", pageURL, "panic", rec)
			result = domain.FetchFailed(fmt.Sprintf("fetcher panicked: %v", rec))
		}
	}()
	return r.fetcher.Fetch(ctx, pageURL)
}

// generate runs one prompt and decodes the result. Panics and decode
// failures are reported as errors like any other generation failure.
func (r *Resolver) generate(ctx context.Context, prompt string, req llm.Request) (out *generatedMetadata, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("%w: generator panicked: %v", llm.ErrGeneration, rec)
		}
		r.metrics.ObserveGeneration(prompt, err)
	}()

	raw, err := r.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	var decoded generatedMetadata
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", llm.ErrSchema, err)
	}
	decoded.Title = strings.TrimSpace(decoded.Title)
	decoded.Description = strings.TrimSpace(decoded.Description)
	return &decoded, nil
}

func usable(m *generatedMetadata) bool {
	return m != nil && m.Title != "" && m.Description != ""
}

type candidate struct {
	value  string
	source Source
}

// pick returns the first non-empty candidate
func pick(candidates ...candidate) (string, Source) {
	for _, c := range candidates {
		if v := strings.TrimSpace(c.value); v != "" {
			return v, c.source
		}
	}
	return "", SourceFallback
}

// assemble applies the field priority: literal page values, then oEmbed,
// then generated values, then a partial knowledge answer, then fallbacks
// derived from the submission itself
func (r *Resolver) assemble(pageURL, justification string, page pageEvidence, generated *generatedMetadata, genSource Source, knowledge *generatedMetadata) Resolution {
	res := Resolution{ImageAttempted: page.fetch.OK() || page.oembed != nil}
	if !page.fetch.OK() {
		res.FetchError = page.fetch.Err
	}

	var gen, partial generatedMetadata
	if generated != nil {
		gen = *generated
	}
	if knowledge != nil && knowledge != generated {
		partial = *knowledge
	}

	var oembed OEmbedResult
	if page.oembed != nil {
		oembed = *page.oembed
	}

	var titleCandidates, descriptionCandidates []candidate
	if genSource != SourceKnowledge {
		titleCandidates = append(titleCandidates,
			candidate{page.tags.Title.OrElse(""), SourcePage},
			candidate{oembed.Title.OrElse(""), SourceOEmbed})
		descriptionCandidates = append(descriptionCandidates,
			candidate{page.tags.Description.OrElse(""), SourcePage},
			candidate{oembed.Description.OrElse(""), SourceOEmbed})
	}
	titleCandidates = append(titleCandidates,
		candidate{gen.Title, genSource},
		candidate{partial.Title, SourceKnowledge},
		candidate{urlnorm.Hostname(pageURL), SourceFallback},
		candidate{domain.UntitledToolName, SourceFallback})
	descriptionCandidates = append(descriptionCandidates,
		candidate{gen.Description, genSource},
		candidate{partial.Description, SourceKnowledge},
		candidate{justification, SourceFallback},
		candidate{domain.NoDescriptionAvailable, SourceFallback})

	res.Metadata.Title, res.Sources.Title = pick(titleCandidates...)
	res.Metadata.Description, res.Sources.Description = pick(descriptionCandidates...)

	categories := NormalizeCategories(gen.Categories, r.opts.MaxCategories)
	res.Sources.Categories = genSource
	if len(categories) == 0 {
		categories = NormalizeCategories(partial.Categories, r.opts.MaxCategories)
		res.Sources.Categories = SourceKnowledge
	}
	if len(categories) == 0 {
		categories = []string{domain.DefaultCategory}
		res.Sources.Categories = SourceFallback
	}
	res.Metadata.Categories = categories

	imageCandidates := []candidate{
		{page.tags.ImageURL.OrElse(""), SourcePage},
		{oembed.ThumbnailURL.OrElse(""), SourceOEmbed},
	}
	if r.opts.TrustGeneratedImages {
		imageCandidates = append(imageCandidates,
			candidate{trustedImage(gen.ImageURL), genSource},
			candidate{trustedImage(partial.ImageURL), SourceKnowledge})
	}
	image, imageSource := pick(imageCandidates...)
	res.Sources.Image = imageSource
	if image != "" {
		res.Metadata.ImageURL = &image
	}

	return res
}

// trustedImage accepts a generated image URL only when it is absolute http(s)
func trustedImage(raw *string) string {
	if raw == nil {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(*raw))
	if err != nil || !u.IsAbs() {
		return ""
	}
	return absoluteHTTPURL(u)
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeCategories slugifies, dedupes and caps a category list
func NormalizeCategories(categories []string, limit int) []string {
	out := make([]string, 0, len(categories))
	seen := make(map[string]bool, len(categories))

	for _, c := range categories {
		slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(c)), "-"), "-")
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Fallback is the record built from the submission alone
func Fallback(pageURL, justification string) Resolution {
	title, titleSource := pick(
		candidate{urlnorm.Hostname(pageURL), SourceFallback},
		candidate{domain.UntitledToolName, SourceFallback})
	description, descriptionSource := pick(
		candidate{justification, SourceFallback},
		candidate{domain.NoDescriptionAvailable, SourceFallback})

	return Resolution{
		Metadata: domain.ToolMetadata{
			Title:       title,
			Description: description,
			Categories:  []string{domain.DefaultCategory},
		},
		Sources: FieldSources{
			Title:       titleSource,
			Description: descriptionSource,
			Categories:  SourceFallback,
			Image:       SourceFallback,
		},
		Tier: TierFallback,
	}
}

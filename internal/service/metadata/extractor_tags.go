package metadata

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Tags is what pattern extraction found in a page's markup
type Tags struct {
	Title       Optional[string]
	Description Optional[string]
	ImageURL    Optional[string]
}

// Empty reports whether no field was found
func (t Tags) Empty() bool {
	return !t.Title.Present() && !t.Description.Present() && !t.ImageURL.Present()
}

// tagRule matches one kind of <meta> or <link> element. The element matches
// when one of keyAttrs holds key as a whitespace separated token.
type tagRule struct {
	name     string
	element  string
	keyAttrs []string
	key      string
	needs    string // attribute that must also be present
	value    string // attribute holding the extracted value
}

// Rules are tried in order and the first rule with a non-empty match wins
var (
	descriptionRules = []tagRule{
		{name: "og:description", element: "meta", keyAttrs: []string{"property", "name"}, key: "og:description", value: "content"},
		{name: "description", element: "meta", keyAttrs: []string{"name"}, key: "description", value: "content"},
	}

	imageRules = []tagRule{
		{name: "og:image", element: "meta", keyAttrs: []string{"property", "name"}, key: "og:image", value: "content"},
		{name: "twitter:image", element: "meta", keyAttrs: []string{"name", "property"}, key: "twitter:image", value: "content"},
		{name: "apple-touch-icon", element: "link", keyAttrs: []string{"rel"}, key: "apple-touch-icon", value: "href"},
		{name: "sized icon", element: "link", keyAttrs: []string{"rel"}, key: "icon", needs: "sizes", value: "href"},
		{name: "icon", element: "link", keyAttrs: []string{"rel"}, key: "icon", value: "href"},
	}
)

var (
	elementPattern   = regexp.MustCompile(`(?is)<(meta|link)\b((?:"[^"]*"|'[^']*'|[^'">])*)>`)
	attributePattern = regexp.MustCompile(`(?is)([a-z_:][-a-z0-9_:.]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+))`)
	titlePattern     = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title\s*>`)
	headingPattern   = regexp.MustCompile(`(?is)<h1\b[^>]*>(.*?)</h1\s*>`)
	paragraphPattern = regexp.MustCompile(`(?is)<p\b[^>]*>(.*?)</p\s*>`)
	scriptPattern    = regexp.MustCompile(`(?is)<(script|style|noscript)\b[^>]*>.*?</(script|style|noscript)\s*>`)
	sentenceEnd      = regexp.MustCompile(`[.!?](\s|$)`)
	whitespace       = regexp.MustCompile(`\s+`)
)

var stripPolicy = bluemonday.StrictPolicy()

// minParagraphLength skips cookie banners and button labels wrapped in <p>
const minParagraphLength = 20

type element struct {
	name  string
	attrs map[string]string
}

// ExtractTags pulls title, description and image out of raw HTML. It is a
// pure function. Relative image URLs are resolved against baseURL and an
// image that cannot be made absolute is treated as absent.
// summarize enables the heading and paragraph fallback for the description.
func ExtractTags(rawHTML, baseURL string, summarize bool) Tags {
	rawHTML = scriptPattern.ReplaceAllString(rawHTML, "")
	elements := parseElements(rawHTML)

	tags := Tags{
		Title:       extractTitle(rawHTML),
		Description: firstRuleMatch(elements, descriptionRules, cleanText),
	}

	if !tags.Description.Present() && summarize {
		tags.Description = summarizeBody(rawHTML)
	}

	// The winning candidate is final: if it cannot be resolved there is no image
	if candidate, ok := firstRuleValue(elements, imageRules); ok {
		if image := resolveImageURL(candidate, baseURL); image != "" {
			tags.ImageURL = Some(image)
		}
	}

	return tags
}

func parseElements(rawHTML string) []element {
	matches := elementPattern.FindAllStringSubmatch(rawHTML, -1)
	elements := make([]element, 0, len(matches))

	for _, m := range matches {
		el := element{name: strings.ToLower(m[1]), attrs: make(map[string]string)}
		for _, a := range attributePattern.FindAllStringSubmatch(m[2], -1) {
			name := strings.ToLower(a[1])
			if _, seen := el.attrs[name]; seen {
				continue
			}
			el.attrs[name] = a[2] + a[3] + a[4]
		}
		elements = append(elements, el)
	}
	return elements
}

// firstRuleMatch walks rules in priority order and, within a rule, elements
// in document order. transform may reject a value by returning "".
func firstRuleMatch(elements []element, rules []tagRule, transform func(string) string) Optional[string] {
	for _, rule := range rules {
		for _, el := range elements {
			if !rule.matches(el) {
				continue
			}
			if v := transform(el.attrs[rule.value]); v != "" {
				return Some(v)
			}
		}
	}
	return None[string]()
}

// firstRuleValue returns the raw value of the winning element: the first
// element in document order matching the highest priority rule that has a
// non-blank value
func firstRuleValue(elements []element, rules []tagRule) (string, bool) {
	for _, rule := range rules {
		for _, el := range elements {
			if rule.matches(el) && strings.TrimSpace(el.attrs[rule.value]) != "" {
				return el.attrs[rule.value], true
			}
		}
	}
	return "", false
}

func (r tagRule) matches(el element) bool {
	if el.name != r.element {
		return false
	}
	if r.needs != "" {
		if _, ok := el.attrs[r.needs]; !ok {
			return false
		}
	}
	for _, attr := range r.keyAttrs {
		for _, token := range strings.Fields(strings.ToLower(el.attrs[attr])) {
			if token == r.key {
				return true
			}
		}
	}
	return false
}

func extractTitle(rawHTML string) Optional[string] {
	m := titlePattern.FindStringSubmatch(rawHTML)
	if m == nil {
		return None[string]()
	}
	if title := cleanText(m[1]); title != "" {
		return Some(title)
	}
	return None[string]()
}

// summarizeBody builds a one sentence description from the first heading
// and the first meaningful paragraph. Either may be missing.
func summarizeBody(rawHTML string) Optional[string] {
	var heading, sentence string
	if m := headingPattern.FindStringSubmatch(rawHTML); m != nil {
		heading = cleanText(m[1])
	}
	for _, m := range paragraphPattern.FindAllStringSubmatch(rawHTML, -1) {
		if text := cleanText(m[1]); len(text) >= minParagraphLength {
			sentence = firstSentence(text)
			break
		}
	}

	switch {
	case heading == "" && sentence == "":
		return None[string]()
	case heading == "":
		return Some(sentence)
	case sentence == "":
		return Some(heading)
	case strings.Contains(strings.ToLower(sentence), strings.ToLower(heading)):
		return Some(sentence)
	default:
		return Some(heading + ": " + sentence)
	}
}

func firstSentence(text string) string {
	if loc := sentenceEnd.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]+1])
	}
	return text
}

// cleanText strips markup, decodes entities and collapses whitespace
func cleanText(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// resolveImageURL makes candidate absolute against baseURL. Anything that
// does not end up as an http(s) URL with a host is rejected.
func resolveImageURL(candidate, baseURL string) string {
	candidate = strings.TrimSpace(html.UnescapeString(candidate))
	if candidate == "" || strings.HasPrefix(candidate, "data:") {
		return ""
	}

	ref, err := url.Parse(candidate)
	if err != nil {
		return ""
	}

	if !ref.IsAbs() {
		base, err := url.Parse(baseURL)
		if err != nil || !base.IsAbs() {
			return ""
		}
		ref = base.ResolveReference(ref)
	}

	return absoluteHTTPURL(ref)
}

func absoluteHTTPURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

package domain

// ToolMetadata is the best-effort record derived for a submitted URL
type ToolMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`

	// ImageURL is nil when no image was found. When set it is always absolute.
	ImageURL *string `json:"imageUrl,omitempty"`
}

// HasImage reports whether an image URL was found
func (m ToolMetadata) HasImage() bool {
	return m.ImageURL != nil && *m.ImageURL != ""
}

// FetchResult is the outcome of retrieving a page. Exactly one of HTMLContent
// and Err is meaningful: a failed fetch is a value, not an error return.
type FetchResult struct {
	HTMLContent string `json:"htmlContent,omitempty"`
	Err         string `json:"error,omitempty"`
}

// FetchOK builds a successful fetch result
func FetchOK(htmlContent string) FetchResult {
	return FetchResult{HTMLContent: htmlContent}
}

// FetchFailed builds a failed fetch result carrying a human-readable reason
func FetchFailed(reason string) FetchResult {
	if reason == "" {
		reason = "unknown fetch error"
	}
	return FetchResult{Err: reason}
}

// OK reports whether the page was retrieved
func (r FetchResult) OK() bool {
	return r.Err == ""
}

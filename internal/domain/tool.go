package domain

import "time"

// Tool represents one catalogued AI tool and its community metadata
type Tool struct {
	ID            string    `json:"id" db:"id" bson:"_id"`
	URL           string    `json:"url" db:"url" bson:"url"`
	URLKey        string    `json:"-" db:"url_key" bson:"url_key"`
	Name          string    `json:"name" db:"name" bson:"name"`
	Description   string    `json:"description" db:"description" bson:"description"`
	Categories    []string  `json:"categories" db:"categories" bson:"categories"`
	Price         Price     `json:"price" db:"price" bson:"price"`
	EaseOfUse     EaseOfUse `json:"easeOfUse" db:"ease_of_use" bson:"ease_of_use"`
	SubmittedBy   string    `json:"submittedBy" db:"submitted_by" bson:"submitted_by"`
	Justification string    `json:"justification" db:"justification" bson:"justification"`
	Upvotes       int       `json:"upvotes" db:"upvotes" bson:"upvotes"`
	Downvotes     int       `json:"downvotes" db:"downvotes" bson:"downvotes"`
	ImageURL      *string   `json:"imageUrl,omitempty" db:"image_url" bson:"image_url,omitempty"`

	// Timestamps are always UTC once they leave a repository
	SubmittedAt   time.Time  `json:"submittedAt" db:"submitted_at" bson:"submitted_at"`
	LastUpdatedAt *time.Time `json:"lastUpdatedAt,omitempty" db:"last_updated_at" bson:"last_updated_at,omitempty"`
}

// DedupeKey is the normalized URL two submissions must share to be the same
// tool. URL keeps the address as it was submitted.
func (t *Tool) DedupeKey() string {
	if t.URLKey != "" {
		return t.URLKey
	}
	return t.URL
}

// Price is the pricing tier shown on a tool card
type Price string

const (
	PriceFree     Price = "Free"
	PriceFreemium Price = "Freemium"
	PricePaid     Price = "Paid"
)

// EaseOfUse is the skill level a tool expects from its users
type EaseOfUse string

const (
	EaseOfUseBeginner     EaseOfUse = "Beginner"
	EaseOfUseIntermediate EaseOfUse = "Intermediate"
	EaseOfUseExpert       EaseOfUse = "Expert"
)

// Defaults applied to newly submitted tools
const (
	DefaultPrice           = PriceFreemium
	DefaultEaseOfUse       = EaseOfUseBeginner
	InitialUpvotes         = 1
	InitialDownvotes       = 0
	DefaultCategory        = "general"
	UntitledToolName       = "Untitled Tool"
	NoDescriptionAvailable = "No description available."
)

// ToolUpdate carries the fields a resubmission or refresh may overwrite.
// Nil fields are left untouched by the repository.
type ToolUpdate struct {
	Name          *string
	Description   *string
	Categories    []string
	ImageURL      *string
	Justification *string
	LastUpdatedAt time.Time
}

// IsEmpty reports whether the update would only bump LastUpdatedAt
func (u ToolUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && len(u.Categories) == 0 &&
		u.ImageURL == nil && u.Justification == nil
}

// VoteDelta is a signed change to a tool's vote counters
type VoteDelta struct {
	Upvotes   int `json:"upvoteIncrement"`
	Downvotes int `json:"downvoteIncrement"`
}

// IsZero reports whether applying the delta would change nothing
func (d VoteDelta) IsZero() bool {
	return d.Upvotes == 0 && d.Downvotes == 0
}

// Valid reports whether both deltas are toggle transitions in {-1, 0, +1}
func (d VoteDelta) Valid() bool {
	return validToggle(d.Upvotes) && validToggle(d.Downvotes)
}

func validToggle(n int) bool {
	return n >= -1 && n <= 1
}

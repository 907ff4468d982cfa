package domain

import "fmt"

// Mode selects how the recommender interprets the search string.
type Mode string

const (
	ModeUser  Mode = "user"
	ModeAnime Mode = "anime"
)

// ParseMode validates a front-end mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeUser, ModeAnime:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q: choose 'user' or 'anime'", s)
}

// Candidate is a ranked recommender result before the metadata join.
// Distance is nil when the recommender omitted it or sent null.
type Candidate struct {
	ID       int64    `json:"id"`
	Distance *float64 `json:"distance"`
}

// NewCandidate returns a candidate with a distance set.
func NewCandidate(id int64, distance float64) Candidate {
	return Candidate{ID: id, Distance: &distance}
}

// Metadata column names.
const (
	ColumnTitle    = "title"
	ColumnDistance = "distance"
	ColumnLink     = "link"
	ColumnMean     = "mean"
	ColumnNSFW     = "nsfw"
)

// MetadataRow is one entry of the metadata table. Columns records which
// fields were present and non-null in the source.
type MetadataRow struct {
	ID      int64
	Title   string
	Link    string
	Mean    float64
	NSFW    string
	Columns map[string]bool
}

// Has reports whether the column was present and non-null.
func (r MetadataRow) Has(column string) bool {
	return r.Columns[column]
}

// MetadataTable maps anime ID to its metadata row.
type MetadataTable map[int64]MetadataRow

// Recommendation is a fully joined, display-ready record.
type Recommendation struct {
	Title    string  `json:"title"`
	MatchPct int     `json:"match_pct"`
	Link     string  `json:"link"`
	Mean     float64 `json:"mean"`
	NSFW     string  `json:"nsfw"`
}

// IsNSFW reports whether the content flag marks adult content.
func (r Recommendation) IsNSFW() bool {
	return r.NSFW == "black"
}

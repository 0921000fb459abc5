// Package knowledge persists knowledge entries with optional project scoping
// and answers similarity queries under a project-visibility filter.
package knowledge

import "time"

// Difficulty grades a knowledge entry.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty normalizes a difficulty string. Unknown or empty values
// fall back to intermediate, matching the suggestion default.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return Difficulty(s)
	}
	return DifficultyIntermediate
}

// Entry is a persisted, embeddable unit of knowledge. An empty ProjectID
// marks the entry global: visible from every project's search and immune
// to project-scoped deletes. Entries are never mutated in place; replace
// is delete followed by add.
type Entry struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Category   string     `json:"category"`
	Topic      string     `json:"topic,omitempty"`
	Difficulty Difficulty `json:"difficulty"`
	Tags       []string   `json:"tags,omitempty"`
	ProjectID  string     `json:"project_id,omitempty"`
	Embedding  []float32  `json:"embedding,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Global reports whether the entry belongs to the shared corpus.
func (e Entry) Global() bool { return e.ProjectID == "" }

// ScoredEntry is a search result with its cosine similarity to the query.
type ScoredEntry struct {
	Entry      Entry   `json:"entry"`
	Similarity float64 `json:"similarity"`
}

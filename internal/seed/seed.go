// Package seed bootstraps the shared global knowledge corpus from a YAML file.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/Nireus79/Socrates-sub009/internal/knowledge"
)

// GlobalWriter is the store capability seeding needs.
type GlobalWriter interface {
	AddGlobalKnowledge(ctx context.Context, e knowledge.Entry) (knowledge.Entry, error)
}

type seedFile struct {
	Entries []seedEntry `yaml:"entries"`
}

type seedEntry struct {
	Content    string   `yaml:"content"`
	Category   string   `yaml:"category"`
	Topic      string   `yaml:"topic"`
	Difficulty string   `yaml:"difficulty"`
	Tags       []string `yaml:"tags"`
}

// Load parses a seed file into knowledge entries. Entry IDs are derived
// from the content, so re-seeding on every start replaces rather than
// duplicates.
func Load(path string) ([]knowledge.Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	entries := make([]knowledge.Entry, 0, len(f.Entries))
	for i, se := range f.Entries {
		if strings.TrimSpace(se.Content) == "" {
			return nil, fmt.Errorf("seed entry %d: content is empty", i)
		}
		if strings.TrimSpace(se.Category) == "" {
			return nil, fmt.Errorf("seed entry %d: category is empty", i)
		}
		entries = append(entries, knowledge.Entry{
			ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte("seed:"+se.Content)).String(),
			Content:    se.Content,
			Category:   se.Category,
			Topic:      se.Topic,
			Difficulty: knowledge.ParseDifficulty(se.Difficulty),
			Tags:       se.Tags,
		})
	}
	return entries, nil
}

// Apply stores every entry as global knowledge. Individual failures are
// logged and skipped; the return value is the number stored.
func Apply(ctx context.Context, w GlobalWriter, entries []knowledge.Entry, logger zerolog.Logger) int {
	stored := 0
	for _, e := range entries {
		if _, err := w.AddGlobalKnowledge(ctx, e); err != nil {
			logger.Warn().Err(err).Str("category", e.Category).Msg("seed entry not stored")
			continue
		}
		stored++
	}
	logger.Info().Int("stored", stored).Int("total", len(entries)).Msg("global knowledge seeded")
	return stored
}

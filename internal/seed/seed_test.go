package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Nireus79/Socrates-sub009/internal/errors"
	"github.com/Nireus79/Socrates-sub009/internal/knowledge"
)

const sampleSeed = `entries:
  - content: "Prefer composition over inheritance"
    category: design
    topic: structure
    difficulty: beginner
    tags: [oo, principles]
  - content: "Benchmark before optimizing"
    category: performance
    difficulty: advanced
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	entries, err := Load(writeSeed(t, sampleSeed))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Prefer composition over inheritance", entries[0].Content)
	assert.Equal(t, "design", entries[0].Category)
	assert.Equal(t, "structure", entries[0].Topic)
	assert.Equal(t, knowledge.DifficultyBeginner, entries[0].Difficulty)
	assert.Equal(t, []string{"oo", "principles"}, entries[0].Tags)
	assert.Empty(t, entries[0].ProjectID, "seed entries are global")

	assert.Equal(t, knowledge.DifficultyAdvanced, entries[1].Difficulty)
}

func TestLoad_DeterministicIDs(t *testing.T) {
	first, err := Load(writeSeed(t, sampleSeed))
	require.NoError(t, err)
	second, err := Load(writeSeed(t, sampleSeed))
	require.NoError(t, err)

	// Same content, same id — re-seeding replaces instead of duplicating.
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeSeed(t, "entries: [not a map"))
	assert.Error(t, err)

	_, err = Load(writeSeed(t, "entries:\n  - category: c\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content is empty")

	_, err = Load(writeSeed(t, "entries:\n  - content: c\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category is empty")
}

type fakeWriter struct {
	stored  []knowledge.Entry
	failFor string
}

func (f *fakeWriter) AddGlobalKnowledge(_ context.Context, e knowledge.Entry) (knowledge.Entry, error) {
	if e.Content == f.failFor {
		return knowledge.Entry{}, apperrors.Storagef("write failed")
	}
	f.stored = append(f.stored, e)
	return e, nil
}

func TestApply_SkipsFailures(t *testing.T) {
	entries, err := Load(writeSeed(t, sampleSeed))
	require.NoError(t, err)

	w := &fakeWriter{failFor: "Benchmark before optimizing"}
	stored := Apply(context.Background(), w, entries, zerolog.Nop())

	assert.Equal(t, 1, stored)
	require.Len(t, w.stored, 1)
	assert.Equal(t, "Prefer composition over inheritance", w.stored[0].Content)
}

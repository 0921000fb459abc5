package knowledge

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Nireus79/Socrates-sub009/internal/errors"
)

// fakeEmbedder returns a fixed vector per exact text, with a default for
// everything else, so tests can stage similarity rankings.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f fakeEmbedder) Dimensions() int { return 3 }

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

func (failingEmbedder) Dimensions() int { return 3 }

func tempStore(t *testing.T, embedder Embedder) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "socrates-knowledge-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := Open(f.Name(), embedder, zerolog.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(content, category string) Entry {
	return Entry{Content: content, Category: category, Difficulty: DifficultyIntermediate}
}

func TestAddProjectKnowledge_And_Get(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{})

	stored, err := s.AddProjectKnowledge(ctx, entry("use dependency injection", "architecture"), "P1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "P1", stored.ProjectID)

	entries, err := s.GetProjectKnowledge(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "architecture", entries[0].Category)
	assert.Equal(t, "use dependency injection", entries[0].Content)
}

func TestAdd_Validation(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{})

	_, err := s.AddProjectKnowledge(ctx, entry("", "architecture"), "P1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = s.AddProjectKnowledge(ctx, entry("content", ""), "P1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = s.AddProjectKnowledge(ctx, entry("content", "cat"), "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAdd_EmbedFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, failingEmbedder{})

	_, err := s.AddProjectKnowledge(ctx, entry("content", "cat"), "P1")
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchSimilar_ProjectIsolation(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{vectors: map[string][]float32{
		"p1 private fact": {1, 0, 0},
		"p2 private fact": {1, 0, 0},
		"global fact":     {0.9, 0.1, 0},
		"query":           {1, 0, 0},
	}})

	p1, err := s.AddProjectKnowledge(ctx, entry("p1 private fact", "facts"), "P1")
	require.NoError(t, err)
	p2, err := s.AddProjectKnowledge(ctx, entry("p2 private fact", "facts"), "P2")
	require.NoError(t, err)
	global, err := s.AddGlobalKnowledge(ctx, entry("global fact", "facts"))
	require.NoError(t, err)

	results, err := s.SearchSimilar(ctx, "query", 10, "P1")
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, r := range results {
		ids[r.Entry.ID] = true
		assert.NotEqual(t, "P2", r.Entry.ProjectID, "another project's private entry leaked")
	}
	assert.True(t, ids[p1.ID], "own private entry missing")
	assert.True(t, ids[global.ID], "global entry missing from scoped search")
	assert.False(t, ids[p2.ID])
}

func TestSearchSimilar_UnscopedSeesEverything(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{vectors: map[string][]float32{"query": {0, 0, 1}}})

	_, err := s.AddProjectKnowledge(ctx, entry("a", "c"), "P1")
	require.NoError(t, err)
	_, err = s.AddProjectKnowledge(ctx, entry("b", "c"), "P2")
	require.NoError(t, err)
	_, err = s.AddGlobalKnowledge(ctx, entry("g", "c"))
	require.NoError(t, err)

	results, err := s.SearchSimilar(ctx, "query", 10, "")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchSimilar_RanksByDescendingSimilarity(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{vectors: map[string][]float32{
		"aligned":    {1, 0, 0},
		"orthogonal": {0, 1, 0},
		"query":      {1, 0, 0},
	}})

	_, err := s.AddProjectKnowledge(ctx, entry("orthogonal", "c"), "P1")
	require.NoError(t, err)
	aligned, err := s.AddProjectKnowledge(ctx, entry("aligned", "c"), "P1")
	require.NoError(t, err)

	results, err := s.SearchSimilar(ctx, "query", 2, "P1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, aligned.ID, results[0].Entry.ID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchSimilar_TopKLimits(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{})

	for i := 0; i < 5; i++ {
		_, err := s.AddProjectKnowledge(ctx, entry(fmt.Sprintf("fact %d", i), "c"), "P1")
		require.NoError(t, err)
	}

	results, err := s.SearchSimilar(ctx, "query", 3, "P1")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchSimilar_EmptyQuery(t *testing.T) {
	s := tempStore(t, fakeEmbedder{})
	_, err := s.SearchSimilar(context.Background(), "  ", 5, "P1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSearchSimilar_NoEmbedderFallsBackToRecency(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, nil)

	_, err := s.AddProjectKnowledge(ctx, entry("mine", "c"), "P1")
	require.NoError(t, err)
	_, err = s.AddProjectKnowledge(ctx, entry("theirs", "c"), "P2")
	require.NoError(t, err)
	_, err = s.AddGlobalKnowledge(ctx, entry("shared", "c"))
	require.NoError(t, err)

	results, err := s.SearchSimilar(ctx, "anything", 10, "P1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "P2", r.Entry.ProjectID)
		assert.Zero(t, r.Similarity)
	}
}

func TestGetProjectKnowledge_ExcludesGlobals(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{})

	_, err := s.AddProjectKnowledge(ctx, entry("private", "c"), "P1")
	require.NoError(t, err)
	_, err = s.AddGlobalKnowledge(ctx, entry("shared", "c"))
	require.NoError(t, err)

	entries, err := s.GetProjectKnowledge(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "private", entries[0].Content)
}

func TestExportDeleteImport_RoundTrips(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{})

	a := Entry{Content: "entry a", Category: "c1", Topic: "t1", Tags: []string{"x", "y"}}
	b := Entry{Content: "entry b", Category: "c2", Difficulty: DifficultyAdvanced}
	_, err := s.AddProjectKnowledge(ctx, a, "P1")
	require.NoError(t, err)
	_, err = s.AddProjectKnowledge(ctx, b, "P1")
	require.NoError(t, err)

	exported, err := s.ExportProjectKnowledge(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, exported, 2)
	for _, e := range exported {
		assert.NotEmpty(t, e.Embedding, "export must carry vectors")
	}

	removed, err := s.DeleteProjectKnowledge(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := s.GetProjectKnowledge(ctx, "P1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	imported, err := s.ImportProjectKnowledge(ctx, "P1", exported)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	entries, err = s.GetProjectKnowledge(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byContent := map[string]Entry{}
	for _, e := range entries {
		byContent[e.Content] = e
	}
	require.Contains(t, byContent, "entry a")
	assert.Equal(t, "c1", byContent["entry a"].Category)
	assert.Equal(t, "t1", byContent["entry a"].Topic)
	assert.Equal(t, []string{"x", "y"}, byContent["entry a"].Tags)
	require.Contains(t, byContent, "entry b")
	assert.Equal(t, DifficultyAdvanced, byContent["entry b"].Difficulty)
}

func TestImport_OverwritesProjectTag(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{})

	foreign := Entry{Content: "came from elsewhere", Category: "c", ProjectID: "P9"}
	n, err := s.ImportProjectKnowledge(ctx, "P1", []Entry{foreign})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := s.GetProjectKnowledge(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "P1", entries[0].ProjectID)

	other, err := s.GetProjectKnowledge(ctx, "P9")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDeleteProjectKnowledge_NeverTouchesGlobals(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t, fakeEmbedder{vectors: map[string][]float32{"query": {0, 0, 1}}})

	_, err := s.AddProjectKnowledge(ctx, entry("private", "c"), "P1")
	require.NoError(t, err)
	global, err := s.AddGlobalKnowledge(ctx, entry("shared", "c"))
	require.NoError(t, err)

	removed, err := s.DeleteProjectKnowledge(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Deleting with an empty project id must be rejected, not wipe globals.
	_, err = s.DeleteProjectKnowledge(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	results, err := s.SearchSimilar(ctx, "query", 10, "P1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, global.ID, results[0].Entry.ID)
}

func TestVectorsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	f, err := os.CreateTemp("", "socrates-knowledge-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	emb := fakeEmbedder{vectors: map[string][]float32{
		"persisted fact": {1, 0, 0},
		"query":          {1, 0, 0},
	}}

	s1, err := Open(f.Name(), emb, zerolog.Nop(), nil)
	require.NoError(t, err)
	_, err = s1.AddProjectKnowledge(ctx, entry("persisted fact", "c"), "P1")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(f.Name(), emb, zerolog.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() })

	results, err := s2.SearchSimilar(ctx, "query", 1, "P1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted fact", results[0].Entry.Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, cosineSimilarity(nil, nil))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestVectorCodec(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	assert.Equal(t, vec, decodeVector(encodeVector(vec)))
	assert.Nil(t, decodeVector(nil))
	assert.Nil(t, decodeVector([]byte{1, 2, 3}))
}

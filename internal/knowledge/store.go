package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	apperrors "github.com/Nireus79/Socrates-sub009/internal/errors"
	"github.com/Nireus79/Socrates-sub009/internal/metrics"
)

type cachedVector struct {
	vec       []float32
	projectID string
}

// Store persists knowledge entries in SQLite and keeps embedding vectors
// mirrored in memory for similarity scoring. Text, metadata and vectors all
// live in the database, so the cache is rebuilt on open.
type Store struct {
	db       *sql.DB
	embedder Embedder
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	vectors map[string]cachedVector
}

// Open opens (or creates) the SQLite database, applies migrations and loads
// the vector cache. A nil embedder disables cosine ranking. metrics may be nil.
func Open(path string, embedder Embedder, logger zerolog.Logger, m *metrics.Metrics) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping knowledge store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if embedder == nil {
		embedder = NoopEmbedder{}
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		logger:   logger.With().Str("component", "knowledge.store").Logger(),
		metrics:  m,
		vectors:  make(map[string]cachedVector),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate knowledge store: %w", err)
	}
	if err := s.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}

	s.refreshGauge(context.Background())
	s.logger.Info().Int("vectors", len(s.vectors)).Msg("knowledge store opened")
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS knowledge_entries (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			category   TEXT NOT NULL,
			topic      TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT 'intermediate',
			tags       TEXT NOT NULL DEFAULT '',
			project_id TEXT,
			embedding  BLOB,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_knowledge_project
			ON knowledge_entries(project_id);
	`)
	return err
}

func (s *Store) loadVectors() error {
	rows, err := s.db.Query(`
		SELECT id, project_id, embedding
		FROM knowledge_entries
		WHERE embedding IS NOT NULL`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var projectID sql.NullString
		var blob []byte
		if err := rows.Scan(&id, &projectID, &blob); err != nil {
			return err
		}
		vec := decodeVector(blob)
		if len(vec) == 0 {
			continue
		}
		s.vectors[id] = cachedVector{vec: vec, projectID: projectID.String}
	}
	return rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// AddProjectKnowledge embeds and persists an entry tagged with projectID.
// Embedding and insert happen before anything is visible; a failure in
// either persists nothing and is reported as a storage error.
func (s *Store) AddProjectKnowledge(ctx context.Context, e Entry, projectID string) (Entry, error) {
	if strings.TrimSpace(projectID) == "" {
		return Entry{}, apperrors.Validationf("project id is empty")
	}
	return s.add(ctx, e, projectID)
}

// AddGlobalKnowledge embeds and persists an entry into the shared corpus.
func (s *Store) AddGlobalKnowledge(ctx context.Context, e Entry) (Entry, error) {
	return s.add(ctx, e, "")
}

func (s *Store) add(ctx context.Context, e Entry, projectID string) (Entry, error) {
	if strings.TrimSpace(e.Content) == "" {
		return Entry{}, apperrors.Validationf("entry content is empty")
	}
	if strings.TrimSpace(e.Category) == "" {
		return Entry{}, apperrors.Validationf("entry category is empty")
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.ProjectID = projectID
	e.Difficulty = ParseDifficulty(string(e.Difficulty))
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if len(e.Embedding) == 0 && s.canEmbed() {
		vec, err := s.embedder.Embed(ctx, e.Content)
		if err != nil {
			s.recordOp("add", "error")
			return Entry{}, apperrors.Storagef("embed entry: %v", err)
		}
		e.Embedding = vec
	}

	if err := s.insert(ctx, e); err != nil {
		s.recordOp("add", "error")
		return Entry{}, apperrors.Storagef("persist entry: %v", err)
	}

	s.cacheVector(e)
	s.recordOp("add", "ok")
	s.refreshGauge(ctx)
	s.logger.Debug().
		Str("entry_id", e.ID).
		Str("project_id", projectID).
		Str("category", e.Category).
		Msg("knowledge entry stored")
	return e, nil
}

func (s *Store) insert(ctx context.Context, e Entry) error {
	var blob []byte
	if len(e.Embedding) > 0 {
		blob = encodeVector(e.Embedding)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO knowledge_entries
			(id, content, category, topic, difficulty, tags, project_id, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Content, e.Category, e.Topic, string(e.Difficulty),
		strings.Join(e.Tags, ","),
		sql.NullString{String: e.ProjectID, Valid: e.ProjectID != ""},
		blob, e.CreatedAt,
	)
	return err
}

func (s *Store) cacheVector(e Entry) {
	if len(e.Embedding) == 0 {
		return
	}
	s.mu.Lock()
	s.vectors[e.ID] = cachedVector{vec: e.Embedding, projectID: e.ProjectID}
	s.mu.Unlock()
}

// SearchSimilar returns up to topK entries ranked by descending cosine
// similarity to query. With projectID set, the candidate set is entries
// tagged with that project plus the untagged global corpus — never another
// project's private entries. With projectID empty the whole corpus is
// searched. Without an embedder, results fall back to recency order.
func (s *Store) SearchSimilar(ctx context.Context, query string, topK int, projectID string) ([]ScoredEntry, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSearch(time.Since(start).Seconds())
		}
	}()

	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Validationf("search query is empty")
	}
	if topK <= 0 {
		topK = 10
	}

	if !s.canEmbed() {
		return s.searchRecent(ctx, topK, projectID)
	}

	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.recordOp("search", "error")
		return nil, apperrors.Storagef("embed query: %v", err)
	}

	type scored struct {
		id    string
		score float64
	}

	s.mu.RLock()
	candidates := make([]scored, 0, len(s.vectors))
	for id, cv := range s.vectors {
		if !visible(cv.projectID, projectID) {
			continue
		}
		candidates = append(candidates, scored{id: id, score: cosineSimilarity(qvec, cv.vec)})
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if topK > len(candidates) {
		topK = len(candidates)
	}

	results := make([]ScoredEntry, 0, topK)
	for _, c := range candidates[:topK] {
		e, err := s.getEntry(ctx, c.id)
		if err != nil || e == nil {
			continue
		}
		results = append(results, ScoredEntry{Entry: *e, Similarity: c.score})
	}
	s.recordOp("search", "ok")
	return results, nil
}

// visible implements the project-scoped filter: an entry is a candidate if
// the search is unscoped, the entry is global, or the projects match.
func visible(entryProject, searchProject string) bool {
	if searchProject == "" {
		return true
	}
	return entryProject == "" || entryProject == searchProject
}

func (s *Store) searchRecent(ctx context.Context, topK int, projectID string) ([]ScoredEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM knowledge_entries
		ORDER BY created_at DESC LIMIT ?`
	args := []interface{}{topK}
	if projectID != "" {
		query = `SELECT ` + entryColumns + ` FROM knowledge_entries
			WHERE project_id IS NULL OR project_id = ?
			ORDER BY created_at DESC LIMIT ?`
		args = []interface{}{projectID, topK}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.recordOp("search", "error")
		return nil, apperrors.Storagef("search entries: %v", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		s.recordOp("search", "error")
		return nil, apperrors.Storagef("scan entries: %v", err)
	}

	results := make([]ScoredEntry, 0, len(entries))
	for _, e := range entries {
		results = append(results, ScoredEntry{Entry: e})
	}
	s.recordOp("search", "ok")
	return results, nil
}

// GetProjectKnowledge returns only the entries explicitly tagged with
// projectID — the project-private view. Global entries are not included;
// SearchSimilar is the merged view.
func (s *Store) GetProjectKnowledge(ctx context.Context, projectID string) ([]Entry, error) {
	return s.listProject(ctx, projectID, false)
}

// ExportProjectKnowledge returns a full-fidelity dump of the project's
// private entries, embeddings included, for backup or transfer.
func (s *Store) ExportProjectKnowledge(ctx context.Context, projectID string) ([]Entry, error) {
	return s.listProject(ctx, projectID, true)
}

func (s *Store) listProject(ctx context.Context, projectID string, withVectors bool) ([]Entry, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, apperrors.Validationf("project id is empty")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM knowledge_entries
		WHERE project_id = ?
		ORDER BY created_at`, projectID)
	if err != nil {
		return nil, apperrors.Storagef("list project entries: %v", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, apperrors.Storagef("scan project entries: %v", err)
	}
	if !withVectors {
		for i := range entries {
			entries[i].Embedding = nil
		}
	}
	return entries, nil
}

// ImportProjectKnowledge stores entries under projectID, overwriting any
// project tag they carry. Entries without a vector are embedded when an
// embedder is available; an embedding failure stores the entry without a
// vector rather than dropping it. Returns the number stored.
func (s *Store) ImportProjectKnowledge(ctx context.Context, projectID string, entries []Entry) (int, error) {
	if strings.TrimSpace(projectID) == "" {
		return 0, apperrors.Validationf("project id is empty")
	}

	count := 0
	for _, e := range entries {
		e.ProjectID = projectID
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.Difficulty = ParseDifficulty(string(e.Difficulty))
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		if len(e.Embedding) == 0 && s.canEmbed() {
			vec, err := s.embedder.Embed(ctx, e.Content)
			if err != nil {
				s.logger.Warn().Err(err).Str("entry_id", e.ID).Msg("import: embedding failed, storing without vector")
			} else {
				e.Embedding = vec
			}
		}

		if err := s.insert(ctx, e); err != nil {
			s.recordOp("import", "error")
			s.logger.Warn().Err(err).Str("entry_id", e.ID).Msg("import: entry not stored")
			continue
		}
		s.cacheVector(e)
		count++
	}

	s.recordOp("import", "ok")
	s.refreshGauge(ctx)
	s.logger.Info().Str("project_id", projectID).Int("stored", count).Msg("knowledge imported")
	return count, nil
}

// DeleteProjectKnowledge removes every entry tagged with projectID and
// returns the number removed. Global entries are never touched; deleting
// with an empty project id is rejected outright.
func (s *Store) DeleteProjectKnowledge(ctx context.Context, projectID string) (int, error) {
	if strings.TrimSpace(projectID) == "" {
		return 0, apperrors.Validationf("project id is empty")
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM knowledge_entries WHERE project_id = ?`, projectID)
	if err != nil {
		s.recordOp("delete", "error")
		return 0, apperrors.Storagef("delete project entries: %v", err)
	}
	n, _ := res.RowsAffected()

	s.mu.Lock()
	for id, cv := range s.vectors {
		if cv.projectID == projectID {
			delete(s.vectors, id)
		}
	}
	s.mu.Unlock()

	s.recordOp("delete", "ok")
	s.refreshGauge(ctx)
	s.logger.Info().Str("project_id", projectID).Int64("removed", n).Msg("project knowledge deleted")
	return int(n), nil
}

// Count returns the total number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM knowledge_entries`).Scan(&n); err != nil {
		return 0, apperrors.Storagef("count entries: %v", err)
	}
	return n, nil
}

func (s *Store) getEntry(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM knowledge_entries WHERE id = ?`, id)
	e, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) canEmbed() bool {
	switch s.embedder.(type) {
	case nil, NoopEmbedder, *NoopEmbedder:
		return false
	}
	return true
}

func (s *Store) recordOp(op, status string) {
	if s.metrics != nil {
		s.metrics.RecordStoreOp(op, status)
	}
}

func (s *Store) refreshGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if n, err := s.Count(ctx); err == nil {
		s.metrics.SetEntriesStored(float64(n))
	}
}

// ---- row scanning ----

const entryColumns = `id, content, category, topic, difficulty, tags, project_id, embedding, created_at`

func scanEntry(scan func(dest ...interface{}) error) (Entry, error) {
	var e Entry
	var difficulty, tags string
	var projectID sql.NullString
	var blob []byte

	err := scan(&e.ID, &e.Content, &e.Category, &e.Topic, &difficulty,
		&tags, &projectID, &blob, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}

	e.Difficulty = Difficulty(difficulty)
	if tags != "" {
		e.Tags = strings.Split(tags, ",")
	}
	e.ProjectID = projectID.String
	e.Embedding = decodeVector(blob)
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ---- vector helpers ----

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec
}

// cosineSimilarity returns the cosine similarity in [-1, 1]; zero-magnitude
// or mismatched vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

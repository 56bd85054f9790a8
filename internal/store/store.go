package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/doganyilmaz/profile-assistant/internal/rag"
	"github.com/doganyilmaz/profile-assistant/models"
)

type Store struct {
	DB *sql.DB
}

// DefaultEmbeddingDimensions indicates the expected length of semantic vectors stored in pgvector columns.
const DefaultEmbeddingDimensions = 1536

func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// UpsertChunks writes chunks to the vector store inside a single transaction.
// Chunks are keyed by (profile_id, source_type, source_id, chunk_index) so
// re-inserting an existing chunk replaces its text and embedding.
func (s *Store) UpsertChunks(ctx context.Context, chunks []rag.VectorChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO profile_chunks (id, profile_id, source_type, source_id, chunk_index, content, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7::vector,NOW())
ON CONFLICT (profile_id, source_type, source_id, chunk_index)
DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding, created_at = NOW()`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	written := 0
	for _, chunk := range chunks {
		vectorLiteral, err := encodeVectorLiteral(chunk.Embedding)
		if err != nil {
			return 0, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID,
			chunk.Metadata.ProfileID,
			string(chunk.Metadata.SourceType),
			chunk.Metadata.SourceID,
			chunk.Metadata.ChunkIndex,
			chunk.Text,
			vectorLiteral,
		); err != nil {
			return 0, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

// DeleteProfileChunks removes every stored chunk for a profile and reports
// how many rows were removed.
func (s *Store) DeleteProfileChunks(ctx context.Context, profileID int64) (int, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM profile_chunks WHERE profile_id = $1`, profileID)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// CountProfileChunks returns the number of stored chunks for a profile.
func (s *Store) CountProfileChunks(ctx context.Context, profileID int64) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM profile_chunks WHERE profile_id = $1`, profileID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Search returns the topK chunks for a profile closest to the query
// embedding by cosine distance. Only chunks belonging to the given profile
// are considered. Distance ties resolve to the lower chunk index, then the
// lower source id, so identical queries produce identical orderings.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, profileID int64, topK int) ([]rag.RetrievedChunk, error) {
	vecLiteral, err := encodeVectorLiteral(queryEmbedding)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT content, source_type, source_id, chunk_index, 1 - (embedding <=> $1::vector) AS similarity
FROM profile_chunks
WHERE profile_id = $2
ORDER BY embedding <=> $1::vector ASC, chunk_index ASC, source_id ASC
LIMIT $3`, vecLiteral, profileID, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rag.RetrievedChunk
	for rows.Next() {
		var (
			chunk      rag.RetrievedChunk
			sourceType string
		)
		if err := rows.Scan(&chunk.Text, &sourceType, &chunk.Metadata.SourceID, &chunk.Metadata.ChunkIndex, &chunk.Score); err != nil {
			return nil, err
		}
		chunk.Metadata.ProfileID = profileID
		chunk.Metadata.SourceType = rag.SourceType(sourceType)
		out = append(out, chunk)
	}
	return out, rows.Err()
}

// GetProfile loads a profile by id.
func (s *Store) GetProfile(ctx context.Context, profileID int64) (models.Profile, error) {
	var p models.Profile
	err := s.DB.QueryRowContext(ctx, `
SELECT id, full_name, title, summary, email, location, github_url, cv_path, created_at, updated_at
FROM profiles WHERE id = $1`, profileID).Scan(
		&p.ID, &p.FullName, &p.Title, &p.Summary, &p.Email, &p.Location, &p.GitHubURL, &p.CVPath, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Profile{}, models.ErrProfileNotFound
	}
	if err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// ListProfiles returns all profile ids, used by the reingestion scheduler.
func (s *Store) ListProfiles(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM profiles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListExperiences returns a profile's experiences ordered by start date, newest first.
func (s *Store) ListExperiences(ctx context.Context, profileID int64) ([]models.Experience, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, profile_id, role, company, description, start_date, end_date
FROM experiences WHERE profile_id = $1
ORDER BY start_date DESC NULLS LAST, id`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Experience
	for rows.Next() {
		var e models.Experience
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.Role, &e.Company, &e.Description, &e.StartDate, &e.EndDate); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListProjects returns a profile's projects.
func (s *Store) ListProjects(ctx context.Context, profileID int64) ([]models.Project, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, profile_id, title, description, tech_stack, repo_url
FROM projects WHERE profile_id = $1
ORDER BY id`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.Title, &p.Description, pq.Array(&p.TechStack), &p.RepoURL); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}

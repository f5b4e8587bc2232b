package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

const analysisColumns = `id, image_name, analysis_type, descriptions, metadata, created_at, updated_at`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Image analyses ---

func (s *PostgresStore) CreateAnalysis(ctx context.Context, a *models.ImageAnalysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	if a.Descriptions == nil {
		a.Descriptions = []string{}
	}

	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode analysis metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO image_analyses (`+analysisColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ImageName, a.AnalysisType, a.Descriptions, meta, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id uuid.UUID) (*models.ImageAnalysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM image_analyses WHERE id = $1`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]*models.ImageAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM image_analyses`
	var args []any
	argIdx := 1

	if filter.AnalysisType != "" {
		query += fmt.Sprintf(" WHERE analysis_type = $%d", argIdx)
		args = append(args, filter.AnalysisType)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return collectAnalyses(rows, "list analyses")
}

func (s *PostgresStore) SearchAnalysesByName(ctx context.Context, name string) ([]*models.ImageAnalysis, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+analysisColumns+` FROM image_analyses
		 WHERE image_name ILIKE '%' || $1 || '%' ESCAPE '\'
		 ORDER BY created_at DESC`, escapeLike(name))
	if err != nil {
		return nil, fmt.Errorf("search analyses: %w", err)
	}
	return collectAnalyses(rows, "search analyses")
}

func (s *PostgresStore) FindByImageIdentity(ctx context.Context, identity string) (*models.ImageAnalysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM image_analyses
		 WHERE metadata->>'imageUri' = $1
		 ORDER BY created_at DESC LIMIT 1`, identity)
	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis by image identity: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.ImageAnalysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM image_analyses
		 WHERE LOWER(image_name) = LOWER($1)
		 ORDER BY created_at DESC LIMIT 1`, name)
	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis by name: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) UpdateAnalysis(ctx context.Context, id uuid.UUID, upd AnalysisUpdate) (*models.ImageAnalysis, error) {
	if upd.Empty() {
		return s.GetAnalysis(ctx, id)
	}

	query := "UPDATE image_analyses SET updated_at = NOW()"
	args := []any{id}
	argIdx := 2

	if upd.ImageName != nil {
		query += fmt.Sprintf(", image_name = $%d", argIdx)
		args = append(args, *upd.ImageName)
		argIdx++
	}
	if upd.AnalysisType != nil {
		query += fmt.Sprintf(", analysis_type = $%d", argIdx)
		args = append(args, *upd.AnalysisType)
		argIdx++
	}
	if upd.Descriptions != nil {
		query += fmt.Sprintf(", descriptions = $%d", argIdx)
		args = append(args, upd.Descriptions)
		argIdx++
	}
	if upd.Metadata != nil {
		meta, err := json.Marshal(upd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode analysis metadata: %w", err)
		}
		query += fmt.Sprintf(", metadata = $%d", argIdx)
		args = append(args, meta)
		argIdx++
	}

	query += " WHERE id = $1 RETURNING " + analysisColumns

	a, err := scanAnalysis(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update analysis: %w", err)
	}
	return a, nil
}

// DeleteAnalysis removes a record and returns what was deleted so callers
// can invalidate derived cache entries.
func (s *PostgresStore) DeleteAnalysis(ctx context.Context, id uuid.UUID) (*models.ImageAnalysis, error) {
	a, err := scanAnalysis(s.pool.QueryRow(ctx,
		`DELETE FROM image_analyses WHERE id = $1 RETURNING `+analysisColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete analysis: %w", err)
	}
	return a, nil
}

func scanAnalysis(row pgx.Row) (*models.ImageAnalysis, error) {
	var (
		a    models.ImageAnalysis
		meta []byte
	)
	if err := row.Scan(&a.ID, &a.ImageName, &a.AnalysisType, &a.Descriptions, &meta, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			return nil, fmt.Errorf("decode analysis metadata: %w", err)
		}
	}
	if a.Descriptions == nil {
		a.Descriptions = []string{}
	}
	return &a, nil
}

func collectAnalyses(rows pgx.Rows, op string) ([]*models.ImageAnalysis, error) {
	defer rows.Close()

	out := []*models.ImageAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)

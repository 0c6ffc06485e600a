package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

// PGSearcher ranks chunks inside postgres with the pgvector cosine operator.
type PGSearcher struct {
	pool  *pgxpool.Pool
	embed Embedder
	log   *logger.Logger
}

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pgx pool: %w", err)
	}
	return pool, nil
}

func NewPGSearcher(pool *pgxpool.Pool, embed Embedder, baseLog *logger.Logger) *PGSearcher {
	return &PGSearcher{pool: pool, embed: embed, log: baseLog.With("component", "PGSearcher")}
}

func (s *PGSearcher) Search(ctx context.Context, query string, k int, opts ...Option) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Hit{}, nil
	}
	qvec, err := s.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sql, args := buildSearchSQL(pgvector.NewVector(qvec), clampK(k), resolve(opts))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	out := []Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Text, &h.Score, &h.DocumentID, &h.Order); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func buildSearchSQL(vec pgvector.Vector, k int, sc scope) (string, []any) {
	args := []any{vec}
	where := []string{"c.embedding IS NOT NULL"}
	if sc.owner != uuid.Nil {
		args = append(args, sc.owner.String())
		where = append(where, fmt.Sprintf("d.owner_id = $%d::uuid", len(args)))
	}
	if len(sc.documents) > 0 {
		ids := make([]string, len(sc.documents))
		for i, id := range sc.documents {
			ids[i] = id.String()
		}
		args = append(args, ids)
		where = append(where, fmt.Sprintf("c.document_id = ANY($%d::uuid[])", len(args)))
	}
	args = append(args, k)
	sql := fmt.Sprintf(`
		SELECT c.text, 1 - (c.embedding <=> $1) AS score, c.document_id, c.position
		FROM study_chunk c
		JOIN study_document d ON d.id = c.document_id
		WHERE %s
		ORDER BY c.embedding <=> $1
		LIMIT $%d`, strings.Join(where, " AND "), len(args))
	return sql, args
}

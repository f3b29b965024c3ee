package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
)

// AddEmbedding stores one vector in its own transaction. Batch writers
// should use Tx.AddEmbedding directly.
func (s *Store) AddEmbedding(ctx context.Context, e *content.Embedding) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck
	if err := tx.AddEmbedding(ctx, e); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Embeddings lists every stored vector for a node, newest first.
func (s *Store) Embeddings(ctx context.Context, nodeID string) ([]content.Embedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node_id, vector, model_name, created_at
		FROM embeddings WHERE node_id = ?
		ORDER BY created_at DESC, id
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var embs []content.Embedding //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e content.Embedding
		var blob []byte
		if err := rows.Scan(&e.ID, &e.NodeID, &blob, &e.ModelName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		e.Vector = bytesToFloat32Slice(blob)
		embs = append(embs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return embs, nil
}

// EmbeddingFor returns the current vector for a node under one model:
// filter by model name, newest created_at wins. Insertion order is never
// consulted.
func (s *Store) EmbeddingFor(ctx context.Context, nodeID, modelName string) (*content.Embedding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, node_id, vector, model_name, created_at
		FROM embeddings WHERE node_id = ? AND model_name = ?
		ORDER BY created_at DESC, id LIMIT 1
	`, nodeID, modelName)

	var e content.Embedding
	var blob []byte
	if err := row.Scan(&e.ID, &e.NodeID, &blob, &e.ModelName, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	e.Vector = bytesToFloat32Slice(blob)
	return &e, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
)

// AddRelation stores one edge in its own transaction. Batch writers should
// use Tx.AddRelation directly.
func (s *Store) AddRelation(ctx context.Context, rel *content.Relation) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck
	if err := tx.AddRelation(ctx, rel); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RelationsFrom returns edges whose source is the given node, optionally
// filtered by type, ordered by sequence_in_node.
func (s *Store) RelationsFrom(ctx context.Context, nodeID string, typeFilter content.RelationType) ([]content.Relation, error) {
	return s.queryRelations(ctx, "source_node_id", nodeID, typeFilter)
}

// RelationsTo returns edges whose target is the given node, optionally
// filtered by type, ordered by sequence_in_node.
func (s *Store) RelationsTo(ctx context.Context, nodeID string, typeFilter content.RelationType) ([]content.Relation, error) {
	return s.queryRelations(ctx, "target_node_id", nodeID, typeFilter)
}

func (s *Store) queryRelations(ctx context.Context, endpoint, nodeID string, typeFilter content.RelationType) ([]content.Relation, error) {
	query := `
		SELECT id, source_node_id, target_node_id, relation_type, marker_text, sequence_in_node
		FROM relations WHERE ` + endpoint + ` = ?`
	args := []any{nodeID}
	if typeFilter != "" {
		query += " AND relation_type = ?"
		args = append(args, string(typeFilter))
	}
	query += " ORDER BY sequence_in_node, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	var rels []content.Relation //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rel content.Relation
		var relType string
		if err := rows.Scan(&rel.ID, &rel.SourceNodeID, &rel.TargetNodeID,
			&relType, &rel.MarkerText, &rel.SequenceInNode); err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}
		rel.Type = content.RelationType(relType)
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relations: %w", err)
	}
	return rels, nil
}

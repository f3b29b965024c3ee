package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
)

// Tx is one ingestion transaction. A document's tree, positional data, and
// payloads are normally written through a single Tx; relations and
// embeddings may arrive in later ones. Commit runs the payload invariant
// check over everything the transaction touched and rolls the whole batch
// back on a violation.
type Tx struct {
	tx   *sql.Tx
	done bool

	// Node ids whose payload was created or modified in this transaction,
	// re-validated against the owning node's tag at commit.
	pendingPayloads map[string]bool
}

// Begin starts a write transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Tx{tx: tx, pendingPayloads: make(map[string]bool)}, nil
}

// Rollback discards the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

// Commit validates every payload written in this transaction and commits.
// A description or caption on a node whose tag is not img or table fails the
// whole batch with *content.ValidationError; nothing persists.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	for nodeID := range t.pendingPayloads {
		if err := t.validatePayload(ctx, nodeID); err != nil {
			t.done = true
			if rbErr := t.tx.Rollback(); rbErr != nil {
				return fmt.Errorf("rolling back after %v: %w", err, rbErr)
			}
			return err
		}
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// validatePayload re-reads the owning node's current tag, which may have
// been created or altered earlier in this same transaction.
func (t *Tx) validatePayload(ctx context.Context, nodeID string) error {
	row := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(n.tag_name, ''), p.description, p.caption
		FROM content_payloads p
		JOIN nodes n ON n.id = p.node_id
		WHERE p.node_id = ?
	`, nodeID)

	var tag, description, caption string
	if err := row.Scan(&tag, &description, &caption); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // payload or node deleted later in the batch
		}
		return fmt.Errorf("reading payload for validation: %w", err)
	}

	if (description != "" || caption != "") && !content.TagName(tag).CanCarryMedia() {
		return &content.ValidationError{
			NodeID:  nodeID,
			TagName: content.TagName(tag),
			Reason:  "description/caption are only allowed on img and table nodes",
		}
	}
	return nil
}

// CreateNode inserts one structural node. The tree invariants are checked
// here, before the row can corrupt the store: the parent must exist in the
// same document, the sibling sequence number must be free, and the parent
// chain must stay acyclic. Checks see rows created earlier in the same
// transaction.
func (t *Tx) CreateNode(ctx context.Context, n *content.Node) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if !n.TagName.Valid() {
		return &content.StructuralError{NodeID: n.ID, Reason: fmt.Sprintf("tag %q is not in the vocabulary", n.TagName)}
	}
	if !n.SectionType.Valid() {
		return &content.StructuralError{NodeID: n.ID, Reason: fmt.Sprintf("section type %q is not in the vocabulary", n.SectionType)}
	}

	if n.ParentID != "" {
		if n.ParentID == n.ID {
			return &content.StructuralError{NodeID: n.ID, Reason: "node cannot be its own parent"}
		}
		var parentDoc string
		err := t.tx.QueryRowContext(ctx, "SELECT document_id FROM nodes WHERE id = ?", n.ParentID).Scan(&parentDoc)
		if errors.Is(err, sql.ErrNoRows) {
			return &content.StructuralError{NodeID: n.ID, Reason: "parent " + n.ParentID + " does not exist"}
		}
		if err != nil {
			return fmt.Errorf("resolving parent: %w", err)
		}
		if parentDoc != n.DocumentID {
			return &content.StructuralError{NodeID: n.ID, Reason: "parent " + n.ParentID + " belongs to document " + parentDoc}
		}
		if err := t.checkAcyclic(ctx, n.ID, n.ParentID); err != nil {
			return err
		}
	}

	var collision int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM nodes
		WHERE document_id = ? AND parent_id IS ? AND sequence_in_parent = ?
	`, n.DocumentID, nullString(n.ParentID), n.SequenceInParent).Scan(&collision)
	if err != nil {
		return fmt.Errorf("checking sibling sequence: %w", err)
	}
	if collision > 0 {
		return &content.StructuralError{
			NodeID: n.ID,
			Reason: fmt.Sprintf("sequence_in_parent %d collides with an existing sibling", n.SequenceInParent),
		}
	}

	records, err := json.Marshal(n.PositionalRecords)
	if err != nil {
		return fmt.Errorf("marshalling positional records: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO nodes (id, document_id, tag_name, section_type, parent_id, sequence_in_parent, positional_records)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.DocumentID, nullString(string(n.TagName)), nullString(string(n.SectionType)),
		nullString(n.ParentID), n.SequenceInParent, string(records))
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

// checkAcyclic walks the parent chain from parentID; encountering nodeID, or
// a chain that never terminates, rejects the edge.
func (t *Tx) checkAcyclic(ctx context.Context, nodeID, parentID string) error {
	seen := map[string]bool{nodeID: true}
	current := parentID
	for current != "" {
		if seen[current] {
			return &content.StructuralError{NodeID: nodeID, Reason: "parent edge would create a cycle"}
		}
		seen[current] = true

		var next sql.NullString
		err := t.tx.QueryRowContext(ctx, "SELECT parent_id FROM nodes WHERE id = ?", current).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("walking parent chain: %w", err)
		}
		current = next.String
	}
	return nil
}

// UpdatePositionalRecords replaces a node's positional data; used by the
// correction pass that refines page and bounding-box information.
func (t *Tx) UpdatePositionalRecords(ctx context.Context, nodeID string, records []content.PositionalRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshalling positional records: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, "UPDATE nodes SET positional_records = ? WHERE id = ?", string(data), nodeID)
	if err != nil {
		return fmt.Errorf("updating positional records: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return content.ErrNotFound
	}
	return nil
}

// AttachContent creates or updates the node's payload and registers it for
// the commit-time invariant check.
func (t *Tx) AttachContent(ctx context.Context, p *content.ContentPayload) error {
	if !p.EmbeddingSource.Valid() {
		return &content.StructuralError{NodeID: p.NodeID, Reason: fmt.Sprintf("embedding source %q is not in the vocabulary", p.EmbeddingSource)}
	}
	source := p.EmbeddingSource
	if source == "" {
		source = content.EmbedText
	}

	var exists int
	if err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes WHERE id = ?", p.NodeID).Scan(&exists); err != nil {
		return fmt.Errorf("resolving payload node: %w", err)
	}
	if exists == 0 {
		return content.ErrNotFound
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO content_payloads (node_id, text_content, storage_url, description, caption, embedding_source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(node_id) DO UPDATE SET
			text_content = excluded.text_content,
			storage_url = excluded.storage_url,
			description = excluded.description,
			caption = excluded.caption,
			embedding_source = excluded.embedding_source
	`, p.NodeID, nullString(p.TextContent), nullString(p.StorageURL),
		p.Description, p.Caption, string(source))
	if err != nil {
		return fmt.Errorf("attaching content: %w", err)
	}

	t.pendingPayloads[p.NodeID] = true
	return nil
}

// AddRelation stores a typed directed edge. Both endpoints must exist and
// belong to the same document; duplicate edges are allowed, the graph does
// not deduplicate or collapse directions.
func (t *Tx) AddRelation(ctx context.Context, rel *content.Relation) error {
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if !rel.Type.Valid() {
		return &content.StructuralError{NodeID: rel.SourceNodeID, Reason: fmt.Sprintf("relation type %q is not in the vocabulary", rel.Type)}
	}

	var srcDoc, dstDoc string
	if err := t.tx.QueryRowContext(ctx, "SELECT document_id FROM nodes WHERE id = ?", rel.SourceNodeID).Scan(&srcDoc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return content.ErrNotFound
		}
		return fmt.Errorf("resolving relation source: %w", err)
	}
	if err := t.tx.QueryRowContext(ctx, "SELECT document_id FROM nodes WHERE id = ?", rel.TargetNodeID).Scan(&dstDoc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return content.ErrNotFound
		}
		return fmt.Errorf("resolving relation target: %w", err)
	}
	if srcDoc != dstDoc {
		return &content.StructuralError{NodeID: rel.SourceNodeID, Reason: "relation endpoints span documents " + srcDoc + " and " + dstDoc}
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO relations (id, source_node_id, target_node_id, relation_type, marker_text, sequence_in_node)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rel.ID, rel.SourceNodeID, rel.TargetNodeID, string(rel.Type), rel.MarkerText, rel.SequenceInNode)
	if err != nil {
		return fmt.Errorf("inserting relation: %w", err)
	}
	return nil
}

// AddEmbedding stores a vector for the node's payload. Several embeddings
// may coexist per payload, one per model version.
func (t *Tx) AddEmbedding(ctx context.Context, e *content.Embedding) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.ModelName == "" {
		return &content.StructuralError{NodeID: e.NodeID, Reason: "embedding model name is required"}
	}

	var exists int
	if err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM content_payloads WHERE node_id = ?", e.NodeID).Scan(&exists); err != nil {
		return fmt.Errorf("resolving embedding payload: %w", err)
	}
	if exists == 0 {
		return content.ErrNotFound
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO embeddings (id, node_id, vector, model_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.NodeID, float32SliceToBytes(e.Vector), e.ModelName, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting embedding: %w", err)
	}
	return nil
}

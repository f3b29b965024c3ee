package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
)

const nodeColumns = `
	n.id, n.document_id, COALESCE(n.tag_name, ''), COALESCE(n.section_type, ''),
	COALESCE(n.parent_id, ''), n.sequence_in_parent, n.positional_records,
	p.node_id, p.text_content, p.storage_url, p.description, p.caption, p.embedding_source
`

// LoadTree reads a document's full node set plus its publication metadata
// into an arena snapshot for rendering. Returns content.ErrNotFound for an
// unknown document.
func (s *Store) LoadTree(ctx context.Context, documentID string) (*content.Tree, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	pub, err := s.GetPublication(ctx, doc.PublicationID)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return nil, err
	}
	if pub == nil {
		pub = &content.Publication{ID: doc.PublicationID}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n
		LEFT JOIN content_payloads p ON p.node_id = n.id
		WHERE n.document_id = ?
		ORDER BY n.sequence_in_parent
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}
	return content.NewTree(*doc, *pub, nodes), nil
}

// GetNode retrieves a single node with its payload.
func (s *Store) GetNode(ctx context.Context, id string) (*content.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n
		LEFT JOIN content_payloads p ON p.node_id = n.id
		WHERE n.id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying node: %w", err)
	}
	defer rows.Close()

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, content.ErrNotFound
	}
	return nodes[0], nil
}

// Children returns a node's children ordered strictly by sequence_in_parent.
func (s *Store) Children(ctx context.Context, nodeID string) ([]*content.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n
		LEFT JOIN content_payloads p ON p.node_id = n.id
		WHERE n.parent_id = ?
		ORDER BY n.sequence_in_parent
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("querying children: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// RootNodes returns a document's parentless nodes ordered by
// sequence_in_parent.
func (s *Store) RootNodes(ctx context.Context, documentID string) ([]*content.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n
		LEFT JOIN content_payloads p ON p.node_id = n.id
		WHERE n.document_id = ? AND n.parent_id IS NULL
		ORDER BY n.sequence_in_parent
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying root nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func scanNodes(rows *sql.Rows) ([]*content.Node, error) {
	var nodes []*content.Node //nolint:prealloc // size unknown from query
	for rows.Next() {
		var n content.Node
		var tag, sectionType, records string
		var payloadID, textContent, storageURL, description, caption, embeddingSource sql.NullString
		if err := rows.Scan(&n.ID, &n.DocumentID, &tag, &sectionType,
			&n.ParentID, &n.SequenceInParent, &records,
			&payloadID, &textContent, &storageURL, &description, &caption, &embeddingSource); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.TagName = content.TagName(tag)
		n.SectionType = content.SectionType(sectionType)
		if err := json.Unmarshal([]byte(records), &n.PositionalRecords); err != nil {
			return nil, fmt.Errorf("unmarshalling positional records for node %s: %w", n.ID, err)
		}
		if payloadID.Valid {
			n.Payload = &content.ContentPayload{
				NodeID:          payloadID.String,
				TextContent:     textContent.String,
				StorageURL:      storageURL.String,
				Description:     description.String,
				Caption:         caption.String,
				EmbeddingSource: content.EmbeddingSource(embeddingSource.String),
			}
		}
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

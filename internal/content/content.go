// Package content holds the hierarchical content model for extracted
// publications: the node tree, leaf payloads, positional metadata,
// non-hierarchical relations, and embeddings. It is pure data plus a few
// value-type algorithms; persistence lives in internal/store and rendering in
// internal/render.
package content

import "time"

// DocumentType distinguishes a publication's main file from supplements.
type DocumentType string

const (
	DocumentMain         DocumentType = "MAIN"
	DocumentSupplemental DocumentType = "SUPPLEMENTAL"
	DocumentOther        DocumentType = "OTHER"
)

// Publication is the bibliographic record a document tree belongs to. Its
// fields feed the renderer's data-publication-* citation attributes.
type Publication struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract,omitempty"`
	Citation        string `json:"citation,omitempty"`
	Authors         string `json:"authors"`
	PublicationDate string `json:"publication_date"` // ISO-8601 date
	Source          string `json:"source"`
	SourceURL       string `json:"source_url"`
	URI             string `json:"uri,omitempty"`
}

// Document is one file of a publication; it owns a node tree.
type Document struct {
	ID            string
	PublicationID string
	Type          DocumentType
	DownloadURL   string
	Description   string
	MimeType      string
	Charset       string
	StorageURL    string
	FileSize      int64
}

// BoundingBox locates content on a page, in PDF user-space coordinates.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// PositionalRecord pins part of a node's content to one page. Content that
// spans pages carries one record per page, in reading order.
type PositionalRecord struct {
	PagePDF     int         `json:"page_pdf"`
	PageLogical string      `json:"page_logical,omitempty"` // printed label, e.g. "xiv"
	BoundingBox BoundingBox `json:"bounding_box"`
}

// EmbeddingSource names which payload field feeds the embedding pipeline.
type EmbeddingSource string

const (
	EmbedText        EmbeddingSource = "text_content"
	EmbedDescription EmbeddingSource = "description"
	EmbedCaption     EmbeddingSource = "caption"
)

// Valid reports whether e is a known embedding source; empty means text.
func (e EmbeddingSource) Valid() bool {
	switch e {
	case "", EmbedText, EmbedDescription, EmbedCaption:
		return true
	}
	return false
}

// ContentPayload is the leaf data of a content-bearing node, exactly one per
// node. Description and caption are only legal on img and table nodes; the
// store enforces that rule at commit time.
type ContentPayload struct {
	NodeID          string
	TextContent     string
	StorageURL      string
	Description     string
	Caption         string
	EmbeddingSource EmbeddingSource
}

// Node is one structural unit of a document: a heading, paragraph, table,
// image, or grouping element. Parent linkage is by id, never by pointer;
// Tree resolves it.
type Node struct {
	ID                string
	DocumentID        string
	TagName           TagName     // "" for anonymous grouping nodes
	SectionType       SectionType // "" when unclassified
	ParentID          string      // "" for document roots
	SequenceInParent  int
	PositionalRecords []PositionalRecord
	Payload           *ContentPayload // nil until content is attached
}

// Pages returns the distinct PDF page numbers in the node's own positional
// records, in record order.
func (n *Node) Pages() []int {
	var pages []int
	seen := map[int]bool{}
	for _, rec := range n.PositionalRecords {
		if !seen[rec.PagePDF] {
			seen[rec.PagePDF] = true
			pages = append(pages, rec.PagePDF)
		}
	}
	return pages
}

// RelationType labels a directed, non-hierarchical edge between nodes.
type RelationType string

const (
	RelReferencesNote     RelationType = "references_note"
	RelReferencesCitation RelationType = "references_citation"
	RelIsCaptionedBy      RelationType = "is_captioned_by"
	RelIsSupplementedBy   RelationType = "is_supplemented_by"
	RelContinues          RelationType = "continues"
	RelCrossReferences    RelationType = "cross_references"
)

var validRelationTypes = map[RelationType]bool{
	RelReferencesNote: true, RelReferencesCitation: true,
	RelIsCaptionedBy: true, RelIsSupplementedBy: true,
	RelContinues: true, RelCrossReferences: true,
}

// Valid reports whether r is a known relation type.
func (r RelationType) Valid() bool {
	return validRelationTypes[r]
}

// Relation is a typed directed edge between two nodes of the same document.
// MarkerText and SequenceInNode carry the footnote marker ("1", "†") and its
// position within the referencing node; the core stores them uninterpreted.
type Relation struct {
	ID             string       `json:"id"`
	SourceNodeID   string       `json:"source_node_id"`
	TargetNodeID   string       `json:"target_node_id"`
	Type           RelationType `json:"relation_type"`
	MarkerText     string       `json:"marker_text,omitempty"`
	SequenceInNode int          `json:"sequence_in_node,omitempty"`
}

// Embedding is one vector produced for a payload's embedding source field.
// Several may coexist per node, one per model version.
type Embedding struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"node_id"`
	Vector    []float32 `json:"vector"`
	ModelName string    `json:"model_name"`
	CreatedAt time.Time `json:"created_at"`
}

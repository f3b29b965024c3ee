package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
)

type payloadRequest struct {
	TextContent     string `json:"text_content"`
	StorageURL      string `json:"storage_url"`
	Description     string `json:"description"`
	Caption         string `json:"caption"`
	EmbeddingSource string `json:"embedding_source"`
}

type nodeRequest struct {
	ID                string                     `json:"id"`
	TagName           string                     `json:"tag_name"`
	SectionType       string                     `json:"section_type"`
	ParentID          string                     `json:"parent_id"`
	SequenceInParent  int                        `json:"sequence_in_parent"`
	PositionalRecords []content.PositionalRecord `json:"positional_records"`
	Payload           *payloadRequest            `json:"payload"`
}

type ingestRequest struct {
	Nodes []nodeRequest `json:"nodes"`
}

// handleIngestNodes writes a document's tree batch in one transaction. The
// payload invariant is checked at commit; any violation rolls back the whole
// batch, including valid sibling payloads.
func (s *Server) handleIngestNodes(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()

	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		storeError(w, err)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Nodes) == 0 {
		jsonError(w, "nodes are required", http.StatusBadRequest)
		return
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		storeError(w, err)
		return
	}
	defer tx.Rollback() //nolint:errcheck

	ids := make([]string, 0, len(req.Nodes))
	for _, nr := range req.Nodes {
		node := content.Node{
			ID:                nr.ID,
			DocumentID:        docID,
			TagName:           content.TagName(nr.TagName),
			SectionType:       content.SectionType(nr.SectionType),
			ParentID:          nr.ParentID,
			SequenceInParent:  nr.SequenceInParent,
			PositionalRecords: nr.PositionalRecords,
		}
		if err := tx.CreateNode(ctx, &node); err != nil {
			storeError(w, err)
			return
		}
		if nr.Payload != nil {
			payload := content.ContentPayload{
				NodeID:          node.ID,
				TextContent:     nr.Payload.TextContent,
				StorageURL:      nr.Payload.StorageURL,
				Description:     nr.Payload.Description,
				Caption:         nr.Payload.Caption,
				EmbeddingSource: content.EmbeddingSource(nr.Payload.EmbeddingSource),
			}
			if err := tx.AttachContent(ctx, &payload); err != nil {
				storeError(w, err)
				return
			}
		}
		ids = append(ids, node.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		storeError(w, err)
		return
	}

	s.log.Info("nodes ingested", "document_id", docID, "count", len(ids))
	writeJSON(w, http.StatusCreated, map[string]any{
		"document_id": docID,
		"node_ids":    ids,
	})
}

type nodeResponse struct {
	ID                string                     `json:"id"`
	DocumentID        string                     `json:"document_id"`
	TagName           string                     `json:"tag_name,omitempty"`
	SectionType       string                     `json:"section_type,omitempty"`
	ParentID          string                     `json:"parent_id,omitempty"`
	SequenceInParent  int                        `json:"sequence_in_parent"`
	PositionalRecords []content.PositionalRecord `json:"positional_records,omitempty"`
	Payload           *payloadRequest            `json:"payload,omitempty"`
}

func toNodeResponse(n *content.Node) nodeResponse {
	resp := nodeResponse{
		ID:                n.ID,
		DocumentID:        n.DocumentID,
		TagName:           string(n.TagName),
		SectionType:       string(n.SectionType),
		ParentID:          n.ParentID,
		SequenceInParent:  n.SequenceInParent,
		PositionalRecords: n.PositionalRecords,
	}
	if n.Payload != nil {
		resp.Payload = &payloadRequest{
			TextContent:     n.Payload.TextContent,
			StorageURL:      n.Payload.StorageURL,
			Description:     n.Payload.Description,
			Caption:         n.Payload.Caption,
			EmbeddingSource: string(n.Payload.EmbeddingSource),
		}
	}
	return resp
}

func (s *Server) handleRootNodes(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if _, err := s.store.GetDocument(r.Context(), docID); err != nil {
		storeError(w, err)
		return
	}
	nodes, err := s.store.RootNodes(r.Context(), docID)
	if err != nil {
		storeError(w, err)
		return
	}
	resp := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		resp = append(resp, toNodeResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": resp})
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	if _, err := s.store.GetNode(r.Context(), nodeID); err != nil {
		storeError(w, err)
		return
	}
	nodes, err := s.store.Children(r.Context(), nodeID)
	if err != nil {
		storeError(w, err)
		return
	}
	resp := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		resp = append(resp, toNodeResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": resp})
}

type relationRequest struct {
	SourceNodeID   string `json:"source_node_id"`
	TargetNodeID   string `json:"target_node_id"`
	RelationType   string `json:"relation_type"`
	MarkerText     string `json:"marker_text"`
	SequenceInNode int    `json:"sequence_in_node"`
}

func (s *Server) handleAddRelation(w http.ResponseWriter, r *http.Request) {
	var req relationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.SourceNodeID == "" || req.TargetNodeID == "" {
		jsonError(w, "source_node_id and target_node_id are required", http.StatusBadRequest)
		return
	}

	rel := content.Relation{
		SourceNodeID:   req.SourceNodeID,
		TargetNodeID:   req.TargetNodeID,
		Type:           content.RelationType(req.RelationType),
		MarkerText:     req.MarkerText,
		SequenceInNode: req.SequenceInNode,
	}
	if err := s.store.AddRelation(r.Context(), &rel); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": rel.ID})
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	typeFilter := content.RelationType(r.URL.Query().Get("type"))

	var (
		rels []content.Relation
		err  error
	)
	if r.URL.Query().Get("direction") == "to" {
		rels, err = s.store.RelationsTo(r.Context(), nodeID, typeFilter)
	} else {
		rels, err = s.store.RelationsFrom(r.Context(), nodeID, typeFilter)
	}
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relations": rels})
}

type embeddingRequest struct {
	Vector    []float32 `json:"vector"`
	ModelName string    `json:"model_name"`
}

func (s *Server) handleAddEmbedding(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	var req embeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Vector) == 0 || req.ModelName == "" {
		jsonError(w, "vector and model_name are required", http.StatusBadRequest)
		return
	}

	emb := content.Embedding{
		NodeID:    nodeID,
		Vector:    req.Vector,
		ModelName: req.ModelName,
	}
	if err := s.store.AddEmbedding(r.Context(), &emb); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": emb.ID})
}

// handleGetEmbedding returns the current vector for one model, or every
// stored version when no model is given.
func (s *Server) handleGetEmbedding(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	if model := r.URL.Query().Get("model"); model != "" {
		emb, err := s.store.EmbeddingFor(r.Context(), nodeID, model)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, emb)
		return
	}

	embs, err := s.store.Embeddings(r.Context(), nodeID)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"embeddings": embs})
}

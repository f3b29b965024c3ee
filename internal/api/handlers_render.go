package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/render"
)

// handleRenderNode reconstructs the HTML subtree rooted at a node.
// ?citations=1 adds publication provenance and data-pages attributes.
func (s *Server) handleRenderNode(w http.ResponseWriter, r *http.Request) {
	s.renderNode(w, r, false)
}

// handleRenderContext returns citation-ready HTML for the nearest meaningful
// container around a node.
func (s *Server) handleRenderContext(w http.ResponseWriter, r *http.Request) {
	s.renderNode(w, r, true)
}

func (s *Server) renderNode(w http.ResponseWriter, r *http.Request, asContext bool) {
	nodeID := chi.URLParam(r, "nodeID")
	ctx := r.Context()

	node, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		storeError(w, err)
		return
	}
	tree, err := s.store.LoadTree(ctx, node.DocumentID)
	if err != nil {
		storeError(w, err)
		return
	}

	citations := r.URL.Query().Get("citations") != "" && r.URL.Query().Get("citations") != "0"
	if asContext {
		// Context snippets exist for citation; metadata is on by default.
		citations = r.URL.Query().Get("citations") != "0"
	}

	renderer := render.New(tree)
	var html string
	if asContext {
		html, err = renderer.RenderContext(nodeID, citations)
	} else {
		html, err = renderer.Render(nodeID, citations)
	}
	if err != nil {
		storeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

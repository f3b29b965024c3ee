package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/config"
	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/store"
)

const testAPIKey = "test-key"

func setupServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(st, log, config.Config{Port: "0", APIKey: testAPIKey})
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

// seedDocument registers a publication and document for tree ingestion.
func seedDocument(t *testing.T, s *Server) {
	t.Helper()
	w := doRequest(t, s, http.MethodPost, "/api/publications", map[string]any{
		"id":               "pub_001",
		"title":            "Nepal CCDR",
		"authors":          "World Bank Group",
		"publication_date": "2022-09-01",
		"source":           "World Bank",
		"source_url":       "https://example.org/ccdr",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("save publication: status %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(t, s, http.MethodPost, "/api/publications/pub_001/documents", map[string]any{
		"id":          "doc_001",
		"type":        "MAIN",
		"description": "Main report PDF",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("save document: status %d: %s", w.Code, w.Body.String())
	}
}

func ingestSampleTree(t *testing.T, s *Server) {
	t.Helper()
	w := doRequest(t, s, http.MethodPost, "/api/documents/doc_001/nodes", map[string]any{
		"nodes": []map[string]any{
			{"id": "sec", "tag_name": "section", "section_type": "chapter", "sequence_in_parent": 1},
			{"id": "para", "tag_name": "p", "parent_id": "sec", "sequence_in_parent": 1,
				"positional_records": []map[string]any{
					{"page_pdf": 3, "bounding_box": map[string]float64{"x1": 0.1, "y1": 0.1, "x2": 0.9, "y2": 0.3}},
				},
				"payload": map[string]any{"text_content": "Emissions rose."}},
			{"id": "tbl", "tag_name": "table", "parent_id": "sec", "sequence_in_parent": 2,
				"payload": map[string]any{"caption": "Table 1", "embedding_source": "caption"}},
			{"id": "row", "tag_name": "tr", "parent_id": "tbl", "sequence_in_parent": 1},
			{"id": "cell", "tag_name": "td", "parent_id": "row", "sequence_in_parent": 1,
				"payload": map[string]any{"text_content": "42"}},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest: status %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	s := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/publications/p", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", w.Code)
	}
}

func TestIngestAndRender(t *testing.T) {
	s := setupServer(t)
	seedDocument(t, s)
	ingestSampleTree(t, s)

	w := doRequest(t, s, http.MethodGet, "/api/nodes/sec/html?citations=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("render: status %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{
		"<section",
		"Emissions rose.",
		`data-publication-title="Nepal CCDR"`,
		`data-pages="3"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("render missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "Table 1") {
		t.Errorf("caption leaked into visible markup:\n%s", body)
	}

	w = doRequest(t, s, http.MethodGet, "/api/nodes/sec/html", nil)
	if strings.Contains(w.Body.String(), "data-pages") {
		t.Errorf("citation metadata present without ?citations:\n%s", w.Body.String())
	}
}

func TestRenderContext_ExpandsCell(t *testing.T) {
	s := setupServer(t)
	seedDocument(t, s)
	ingestSampleTree(t, s)

	w := doRequest(t, s, http.MethodGet, "/api/nodes/cell/context?citations=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("context: status %d: %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "<table") {
		t.Errorf("td context should be rooted at the table:\n%s", w.Body.String())
	}
}

func TestIngest_CaptionViolationRollsBack(t *testing.T) {
	s := setupServer(t)
	seedDocument(t, s)

	w := doRequest(t, s, http.MethodPost, "/api/documents/doc_001/nodes", map[string]any{
		"nodes": []map[string]any{
			{"id": "ok", "tag_name": "p", "sequence_in_parent": 1,
				"payload": map[string]any{"text_content": "fine"}},
			{"id": "bad", "tag_name": "p", "sequence_in_parent": 2,
				"payload": map[string]any{"text_content": "text", "caption": "not allowed"}},
		},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	// The valid sibling must not have persisted either.
	if w := doRequest(t, s, http.MethodGet, "/api/nodes/ok/html", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for rolled-back node, got %d", w.Code)
	}
}

func TestIngest_StructuralErrorIsBadRequest(t *testing.T) {
	s := setupServer(t)
	seedDocument(t, s)

	w := doRequest(t, s, http.MethodPost, "/api/documents/doc_001/nodes", map[string]any{
		"nodes": []map[string]any{
			{"id": "a", "tag_name": "p", "sequence_in_parent": 1},
			{"id": "b", "tag_name": "p", "sequence_in_parent": 1},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate sibling sequence, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRelationsAndEmbeddings(t *testing.T) {
	s := setupServer(t)
	seedDocument(t, s)
	ingestSampleTree(t, s)

	w := doRequest(t, s, http.MethodPost, "/api/relations", map[string]any{
		"source_node_id": "para",
		"target_node_id": "tbl",
		"relation_type":  "cross_references",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add relation: status %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, s, http.MethodGet, "/api/nodes/para/relations?type=cross_references", nil)
	var relResp struct {
		Relations []map[string]any `json:"relations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &relResp); err != nil {
		t.Fatalf("decode relations: %v", err)
	}
	if len(relResp.Relations) != 1 {
		t.Fatalf("expected 1 relation, got %d", len(relResp.Relations))
	}

	w = doRequest(t, s, http.MethodPost, "/api/nodes/para/embeddings", map[string]any{
		"vector":     []float32{0.25, -1.5},
		"model_name": "text-embedding-3-small",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add embedding: status %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, s, http.MethodGet, "/api/nodes/para/embeddings?model=text-embedding-3-small", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get embedding: status %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := setupServer(t)
	seedDocument(t, s)
	ingestSampleTree(t, s)

	if w := doRequest(t, s, http.MethodDelete, "/api/documents/doc_001", nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status %d: %s", w.Code, w.Body.String())
	}
	if w := doRequest(t, s, http.MethodGet, "/api/nodes/sec/html", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after cascade, got %d", w.Code)
	}
	if w := doRequest(t, s, http.MethodDelete, "/api/documents/doc_001", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for repeated delete, got %d", w.Code)
	}
}

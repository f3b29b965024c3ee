package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
)

type publicationRequest struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	Citation        string `json:"citation"`
	Authors         string `json:"authors"`
	PublicationDate string `json:"publication_date"`
	Source          string `json:"source"`
	SourceURL       string `json:"source_url"`
	URI             string `json:"uri"`
}

func (s *Server) handleSavePublication(w http.ResponseWriter, r *http.Request) {
	var req publicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.Title == "" {
		jsonError(w, "id and title are required", http.StatusBadRequest)
		return
	}

	pub := content.Publication{
		ID:              req.ID,
		Title:           req.Title,
		Abstract:        req.Abstract,
		Citation:        req.Citation,
		Authors:         req.Authors,
		PublicationDate: req.PublicationDate,
		Source:          req.Source,
		SourceURL:       req.SourceURL,
		URI:             req.URI,
	}
	if err := s.store.SavePublication(r.Context(), &pub); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": pub.ID})
}

func (s *Server) handleGetPublication(w http.ResponseWriter, r *http.Request) {
	pub, err := s.store.GetPublication(r.Context(), chi.URLParam(r, "pubID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pub)
}

func (s *Server) handleDeletePublication(w http.ResponseWriter, r *http.Request) {
	pubID := chi.URLParam(r, "pubID")
	if err := s.store.DeletePublication(r.Context(), pubID); err != nil {
		storeError(w, err)
		return
	}
	s.log.Info("publication deleted", "publication_id", pubID)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": pubID})
}

type documentRequest struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
	Description string `json:"description"`
	MimeType    string `json:"mime_type"`
	Charset     string `json:"charset"`
	StorageURL  string `json:"storage_url"`
	FileSize    int64  `json:"file_size"`
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	pubID := chi.URLParam(r, "pubID")

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		jsonError(w, "id is required", http.StatusBadRequest)
		return
	}
	docType := content.DocumentType(req.Type)
	if docType == "" {
		docType = content.DocumentMain
	}

	// The publication must exist before documents hang off it.
	if _, err := s.store.GetPublication(r.Context(), pubID); err != nil {
		storeError(w, err)
		return
	}

	doc := content.Document{
		ID:            req.ID,
		PublicationID: pubID,
		Type:          docType,
		DownloadURL:   req.DownloadURL,
		Description:   req.Description,
		MimeType:      req.MimeType,
		Charset:       req.Charset,
		StorageURL:    req.StorageURL,
		FileSize:      req.FileSize,
	}
	if err := s.store.SaveDocument(r.Context(), &doc); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": doc.ID})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.store.DeleteDocument(r.Context(), docID); err != nil {
		storeError(w, err)
		return
	}
	s.log.Info("document deleted", "document_id", docID)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": docID})
}

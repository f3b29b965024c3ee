// Package store persists the content model in SQLite. It uses
// modernc.org/sqlite (pure Go, no CGO) with WAL mode and foreign keys on;
// the schema is managed through versioned migrations embedded at compile
// time. All writes go through Tx, whose commit runs the payload invariant
// check; a violation rolls back the whole batch.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/store/migrations"
)

// Store is the SQLite-backed persistence layer for publications, documents,
// and their content trees.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database under dataDir and applies pending
// migrations.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them;
	// foreign_keys in particular is per-connection in SQLite and the
	// cascade chains depend on it.
	dbPath := filepath.Join(dataDir, "content.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies all pending .up.sql migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		sqlText, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(sqlText)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// SavePublication stores or updates a publication's bibliographic record.
func (s *Store) SavePublication(ctx context.Context, pub *content.Publication) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO publications (id, title, abstract, citation, authors, publication_date, source, source_url, uri)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			citation = excluded.citation,
			authors = excluded.authors,
			publication_date = excluded.publication_date,
			source = excluded.source,
			source_url = excluded.source_url,
			uri = excluded.uri
	`, pub.ID, pub.Title, pub.Abstract, pub.Citation, pub.Authors,
		pub.PublicationDate, pub.Source, pub.SourceURL, pub.URI)
	if err != nil {
		return fmt.Errorf("saving publication: %w", err)
	}
	return nil
}

// GetPublication retrieves a publication by id.
func (s *Store) GetPublication(ctx context.Context, id string) (*content.Publication, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, abstract, citation, authors, publication_date, source, source_url, uri
		FROM publications WHERE id = ?
	`, id)

	var pub content.Publication
	if err := row.Scan(&pub.ID, &pub.Title, &pub.Abstract, &pub.Citation, &pub.Authors,
		&pub.PublicationDate, &pub.Source, &pub.SourceURL, &pub.URI); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("scanning publication: %w", err)
	}
	return &pub, nil
}

// SaveDocument stores or updates a document. Its publication must exist.
func (s *Store) SaveDocument(ctx context.Context, doc *content.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, publication_id, type, download_url, description, mime_type, charset, storage_url, file_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			publication_id = excluded.publication_id,
			type = excluded.type,
			download_url = excluded.download_url,
			description = excluded.description,
			mime_type = excluded.mime_type,
			charset = excluded.charset,
			storage_url = excluded.storage_url,
			file_size = excluded.file_size
	`, doc.ID, doc.PublicationID, string(doc.Type), doc.DownloadURL, doc.Description,
		doc.MimeType, doc.Charset, nullString(doc.StorageURL), nullInt64(doc.FileSize))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*content.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, publication_id, type, download_url, description, mime_type, charset, storage_url, file_size
		FROM documents WHERE id = ?
	`, id)

	var doc content.Document
	var docType string
	var storageURL sql.NullString
	var fileSize sql.NullInt64
	if err := row.Scan(&doc.ID, &doc.PublicationID, &docType, &doc.DownloadURL,
		&doc.Description, &doc.MimeType, &doc.Charset, &storageURL, &fileSize); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Type = content.DocumentType(docType)
	doc.StorageURL = storageURL.String
	doc.FileSize = fileSize.Int64
	return &doc, nil
}

// DeleteDocument removes a document; nodes, payloads, positional data,
// relations, and embeddings cascade in the same statement's transaction.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return content.ErrNotFound
	}
	return nil
}

// DeletePublication removes a publication and cascades through its documents.
func (s *Store) DeletePublication(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM publications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting publication: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return content.ErrNotFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

// float32SliceToBytes converts a vector to a little-endian byte blob.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a stored blob back to a vector.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// Package store persists indexed documents and their keyword counts in
// PostgreSQL and answers keyword searches against them.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/postgres"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	storage_key TEXT PRIMARY KEY,
	digest      TEXT NOT NULL UNIQUE,
	filename    TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	doctype     TEXT NOT NULL DEFAULT '',
	size        BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS keywords (
	document        TEXT NOT NULL REFERENCES documents(storage_key) ON DELETE CASCADE,
	word            TEXT NOT NULL,
	occurrences     BIGINT NOT NULL,
	weight_modifier BIGINT NOT NULL DEFAULT 1,
	PRIMARY KEY (document, word)
);

CREATE INDEX IF NOT EXISTS keywords_word_idx ON keywords (word);
`

// Document is one indexed file.
type Document struct {
	StorageKey  string    `json:"storage_key"`
	Digest      string    `json:"digest"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	DocType     string    `json:"doctype"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Hit is a document matching a search with its summed occurrences.
type Hit struct {
	Document
	Score uint64 `json:"score"`
}

// Store is the postgres-backed document and keyword repository.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "store"),
	}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertDocument writes doc and replaces its keywords in one transaction.
// A different document with the same digest fails with ErrDocumentExists.
func (s *Store) InsertDocument(ctx context.Context, doc Document, records []keywords.KeywordRecord) error {
	words := make([]string, len(records))
	occurrences := make([]int64, len(records))
	modifiers := make([]int64, len(records))
	for i, r := range records {
		words[i] = r.Word
		occurrences[i] = int64(r.Occurrences)
		modifiers[i] = int64(r.WeightModifier)
	}

	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (storage_key, digest, filename, title, description, doctype, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (storage_key) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description, doctype = EXCLUDED.doctype`,
			doc.StorageKey, doc.Digest, doc.Filename, doc.Title, doc.Description, doc.DocType, doc.Size)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.Newf(apperrors.ErrDocumentExists, http.StatusConflict, "digest %s is already indexed", doc.Digest)
			}
			return fmt.Errorf("inserting document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE document = $1`, doc.StorageKey); err != nil {
			return fmt.Errorf("clearing keywords: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO keywords (document, word, occurrences, weight_modifier)
		SELECT $1, w, o, m FROM unnest($2::text[], $3::bigint[], $4::bigint[]) AS t(w, o, m)`,
			doc.StorageKey, pq.Array(words), pq.Array(occurrences), pq.Array(modifiers))
		if err != nil {
			return fmt.Errorf("inserting %d keywords: %w", len(records), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("document stored", "storage_key", doc.StorageKey, "keywords", len(records))
	return nil
}

// Known reports the storage key holding digest, if any.
func (s *Store) Known(ctx context.Context, digest [sha256.Size]byte) (string, bool, error) {
	var key string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT storage_key FROM documents WHERE digest = $1`, hex.EncodeToString(digest[:])).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up digest: %w", err)
	}
	return key, true, nil
}

const documentColumns = `storage_key, digest, filename, title, description, doctype, size, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner, extra ...any) (Document, error) {
	var d Document
	dest := append([]any{&d.StorageKey, &d.Digest, &d.Filename, &d.Title, &d.Description, &d.DocType, &d.Size, &d.CreatedAt}, extra...)
	err := row.Scan(dest...)
	return d, err
}

// GetDocument returns the document stored under key.
func (s *Store) GetDocument(ctx context.Context, key string) (Document, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE storage_key = $1`, key)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %s not found", key)
	}
	if err != nil {
		return Document{}, fmt.Errorf("getting document: %w", err)
	}
	return d, nil
}

// ListDocuments returns documents newest first.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]Document, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, storage_key LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0, limit)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes the document and, by cascade, its keywords.
func (s *Store) DeleteDocument(ctx context.Context, key string) error {
	res, err := s.db.DB.ExecContext(ctx, `DELETE FROM documents WHERE storage_key = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %s not found", key)
	}
	return nil
}

// DocumentKeywords returns the keywords of key, most frequent first.
func (s *Store) DocumentKeywords(ctx context.Context, key string) ([]keywords.KeywordRecord, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT word, occurrences, weight_modifier FROM keywords
		WHERE document = $1 ORDER BY occurrences DESC, word`, key)
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	defer rows.Close()

	var out []keywords.KeywordRecord
	for rows.Next() {
		r := keywords.KeywordRecord{DocumentKey: key}
		var occ, mod int64
		if err := rows.Scan(&r.Word, &occ, &mod); err != nil {
			return nil, fmt.Errorf("scanning keyword: %w", err)
		}
		r.Occurrences, r.WeightModifier = uint64(occ), uint64(mod)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SearchKeywords ranks documents containing any of words by the sum of
// their occurrences.
func (s *Store) SearchKeywords(ctx context.Context, words []string, limit int) ([]Hit, error) {
	if len(words) == 0 {
		return nil, nil
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT d.storage_key, d.digest, d.filename, d.title, d.description, d.doctype, d.size, d.created_at,
			SUM(k.occurrences) AS score
		FROM keywords k JOIN documents d ON d.storage_key = k.document
		WHERE k.word = ANY($1)
		GROUP BY d.storage_key
		ORDER BY score DESC, d.storage_key
		LIMIT $2`, pq.Array(words), limit)
	if err != nil {
		return nil, fmt.Errorf("searching keywords: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var score int64
		d, err := scanDocument(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, Hit{Document: d, Score: uint64(score)})
	}
	return hits, rows.Err()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
